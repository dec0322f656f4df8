package ply

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Version is the PLY version written in the format line
const Version = "1.0"

// Format selects the payload encoding of a PLY file
type Format uint8

const (
	FormatASCII Format = iota
	FormatBinaryLittleEndian
	FormatBinaryBigEndian
)

// FormatBinary is the default binary encoding
const FormatBinary = FormatBinaryLittleEndian

// String returns the name used in the header format line
func (f Format) String() string {
	switch f {
	case FormatASCII:
		return "ascii"
	case FormatBinaryLittleEndian:
		return "binary_little_endian"
	case FormatBinaryBigEndian:
		return "binary_big_endian"
	default:
		return "unknown"
	}
}

// IsBinary reports whether records are written in binary
func (f Format) IsBinary() bool {
	return f == FormatBinaryLittleEndian || f == FormatBinaryBigEndian
}

// ByteOrder returns the byte order of a binary format. ASCII returns nil.
func (f Format) ByteOrder() binary.ByteOrder {
	switch f {
	case FormatBinaryLittleEndian:
		return binary.LittleEndian
	case FormatBinaryBigEndian:
		return binary.BigEndian
	default:
		return nil
	}
}

// ParseFormat parses a format name. Besides the header names it accepts the
// short forms "binary" (little endian), "binary_le" and "binary_be".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ascii", "text":
		return FormatASCII, nil
	case "binary", "binary_le", "binary_little_endian", "le":
		return FormatBinaryLittleEndian, nil
	case "binary_be", "binary_big_endian", "be":
		return FormatBinaryBigEndian, nil
	default:
		return FormatASCII, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// SupportedFormats returns the canonical names of all formats
func SupportedFormats() []string {
	return []string{
		FormatASCII.String(),
		FormatBinaryLittleEndian.String(),
		FormatBinaryBigEndian.String(),
	}
}
