package ply

import (
	"strconv"
	"strings"
)

// DefaultComment is written when a mesh carries no comments
const DefaultComment = "Generated by plywrite"

// PropertyHeader declares one property of an element
type PropertyHeader struct {
	Name string
	Type Type
}

// ElementHeader declares an element, its record count and its properties
type ElementHeader struct {
	Name       string
	Count      int
	Properties []PropertyHeader
}

// BuildHeader renders a PLY header. Elements and properties are declared in
// the given order, which must be the order records are written in.
func BuildHeader(f Format, comments, objInfo []string, elements []ElementHeader) string {
	var b strings.Builder
	b.WriteString("ply\n")
	b.WriteString("format ")
	b.WriteString(f.String())
	b.WriteByte(' ')
	b.WriteString(Version)
	b.WriteByte('\n')

	if len(comments) == 0 {
		comments = []string{DefaultComment}
	}
	for _, c := range comments {
		b.WriteString("comment ")
		b.WriteString(escapeHeaderText(c))
		b.WriteByte('\n')
	}
	for _, info := range objInfo {
		b.WriteString("obj_info ")
		b.WriteString(escapeHeaderText(info))
		b.WriteByte('\n')
	}

	for _, el := range elements {
		b.WriteString("element ")
		b.WriteString(el.Name)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(el.Count))
		b.WriteByte('\n')
		for _, prop := range el.Properties {
			b.WriteString("property ")
			prop.Type.writeTo(&b)
			b.WriteByte(' ')
			b.WriteString(prop.Name)
			b.WriteByte('\n')
		}
	}

	b.WriteString("end_header\n")
	return b.String()
}

// escapeHeaderText keeps free text on a single header line
func escapeHeaderText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
