package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleksaelezovic/plywrite/internal/config"
	"github.com/aleksaelezovic/plywrite/internal/logging"
	"github.com/aleksaelezovic/plywrite/internal/meshdoc"
	"github.com/aleksaelezovic/plywrite/internal/server"
	"github.com/aleksaelezovic/plywrite/internal/sink"
	"github.com/aleksaelezovic/plywrite/internal/storage"
	"github.com/aleksaelezovic/plywrite/pkg/ply"
)

func usage() {
	fmt.Println("Usage: plywrite <command> [flags] [args]")
	fmt.Println("Commands:")
	fmt.Println("  convert <in.json> [out.ply]   - Convert a mesh document to PLY (stdout without out.ply)")
	fmt.Println("  import <name> <in.json>       - Store a mesh document")
	fmt.Println("  export [names...]             - Write stored meshes to -dir or to MinIO with -minio")
	fmt.Println("  serve [addr]                  - Start the HTTP endpoint (default from config)")
	fmt.Println("  demo                          - Print a sample mesh as ASCII PLY")
	fmt.Println("Common flags: -config <file.toml> -format <ascii|binary_le|binary_be>")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	command, args := os.Args[1], os.Args[2:]
	var err error
	switch command {
	case "convert":
		err = runConvert(args)
	case "import":
		err = runImport(args)
	case "export":
		err = runExport(args)
	case "serve":
		err = runServe(args)
	case "demo":
		err = runDemo(os.Stdout)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "plywrite %s: %v\n", command, err)
		os.Exit(1)
	}
}

// env is what every command needs from the config file and common flags
type env struct {
	cfg    config.Config
	format ply.Format
	logger *slog.Logger
	cache  *ply.PlanCache
}

func parseCommon(fs *flag.FlagSet, args []string) (*env, error) {
	configPath := fs.String("config", "", "TOML config file")
	format := fs.String("format", "", "output format (default from config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *format != "" {
		cfg.Output.Format = *format
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		format: cfg.Format(),
		logger: logger,
		cache:  ply.NewPlanCache(cfg.Output.PlanCacheSize),
	}, nil
}

func (e *env) options() []ply.Option {
	return []ply.Option{
		ply.WithFormat(e.format),
		ply.WithPlanCache(e.cache),
		ply.WithLogger(e.logger),
	}
}

func (e *env) openStore() (*storage.MeshStore, func(), error) {
	var (
		s   *storage.BadgerStorage
		err error
	)
	if e.cfg.Storage.InMemory {
		s, err = storage.NewInMemoryStorage(e.logger)
	} else {
		s, err = storage.NewBadgerStorage(e.cfg.Storage.Path, e.logger)
	}
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := s.Close(); err != nil {
			e.logger.Error("failed to close storage", "error", err)
		}
	}
	return storage.NewMeshStore(s, e.logger), closeFn, nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	e, err := parseCommon(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return fmt.Errorf("usage: plywrite convert [flags] <in.json> [out.ply]")
	}

	in, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer in.Close()
	m, err := meshdoc.Decode(in)
	if err != nil {
		return err
	}

	if fs.NArg() == 1 {
		_, err = ply.Write(os.Stdout, m, e.options()...)
		return err
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	n, err := ply.Write(out, m, e.options()...)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	e.logger.Info("converted mesh", "input", fs.Arg(0), "output", fs.Arg(1), "bytes", n)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	e, err := parseCommon(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: plywrite import [flags] <name> <in.json>")
	}

	doc, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return err
	}
	meshes, closeStore, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	info, err := meshes.Put(fs.Arg(0), doc)
	if err != nil {
		return err
	}
	fmt.Printf("Stored %s: %d vertices, %d faces\n", info.Name, info.Vertices, info.Faces)
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dir := fs.String("dir", "", "output directory (default from config)")
	toMinio := fs.Bool("minio", false, "upload to the configured MinIO bucket")
	jobs := fs.Int("j", sink.DefaultConcurrency, "concurrent exports")
	e, err := parseCommon(fs, args)
	if err != nil {
		return err
	}

	meshes, closeStore, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	var out sink.Sink
	if *toMinio {
		if !e.cfg.Minio.Enabled() {
			return fmt.Errorf("-minio needs a [minio] endpoint in the config")
		}
		if out, err = sink.DialMinio(e.cfg.Minio); err != nil {
			return err
		}
	} else {
		if *dir == "" {
			*dir = e.cfg.Output.Dir
		}
		out = sink.FileSink{Dir: *dir}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter := &sink.Exporter{
		Store:       meshes,
		Sink:        out,
		Options:     e.options(),
		Concurrency: *jobs,
		Logger:      e.logger,
	}
	results, err := exporter.ExportAll(ctx, fs.Args())
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("  ✓ %s (%d bytes)\n", r.Name, r.Bytes)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	e, err := parseCommon(fs, args)
	if err != nil {
		return err
	}
	addr := e.cfg.Server.Addr
	if fs.NArg() >= 1 {
		addr = fs.Arg(0)
	}

	meshes, closeStore, err := e.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	srv := server.NewServer(meshes, addr, e.format, e.cache, e.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("shutdown failed", "error", err)
		}
	}()

	return srv.Start()
}

// demoMesh is a unit cube: eight corners, six quad faces
func demoMesh() *ply.Mesh {
	return &ply.Mesh{
		Comments: []string{"plywrite demo cube"},
		Vertex: ply.NewGroup().
			Add("x", ply.Values[float32]{0, 1, 1, 0, 0, 1, 1, 0}).
			Add("y", ply.Values[float32]{0, 0, 1, 1, 0, 0, 1, 1}).
			Add("z", ply.Values[float32]{0, 0, 0, 0, 1, 1, 1, 1}),
		Face: ply.NewGroup().
			Add("vertex_indices", ply.Lists[int32]{
				{0, 3, 2, 1},
				{4, 5, 6, 7},
				{0, 1, 5, 4},
				{1, 2, 6, 5},
				{2, 3, 7, 6},
				{3, 0, 4, 7},
			}),
	}
}

func runDemo(w io.Writer) error {
	_, err := ply.Write(w, demoMesh())
	return err
}
