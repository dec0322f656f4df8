package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aleksaelezovic/plywrite/pkg/ply"
	"github.com/pelletier/go-toml/v2"
)

// Config is the plywrite configuration file
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Output  Output  `toml:"output"`
	Log     Log     `toml:"log"`
	Minio   Minio   `toml:"minio"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Storage struct {
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

type Output struct {
	Format        string `toml:"format"`
	PlanCacheSize int    `toml:"plan_cache_size"`
	Dir           string `toml:"dir"`
}

type Log struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Minio configures the object storage export target. An empty endpoint
// disables it.
type Minio struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Secure    bool   `toml:"secure"`
}

// Enabled reports whether an endpoint is configured
func (m Minio) Enabled() bool { return m.Endpoint != "" }

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server:  Server{Addr: "localhost:8080"},
		Storage: Storage{Path: "./plywrite_data"},
		Output: Output{
			Format:        "ascii",
			PlanCacheSize: ply.DefaultPlanCacheSize,
			Dir:           ".",
		},
		Log: Log{Format: "text", Level: "info"},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults and validates the result
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown config keys:\n%s", strict.String())
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that the decoder cannot
func (c Config) Validate() error {
	if _, err := ply.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if c.Output.PlanCacheSize < 0 {
		return fmt.Errorf("output.plan_cache_size must not be negative, got %d", c.Output.PlanCacheSize)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	if c.Minio.Enabled() && c.Minio.Bucket == "" {
		return errors.New("minio.bucket is required when minio.endpoint is set")
	}
	return nil
}

// Format returns the parsed output format
func (c Config) Format() ply.Format {
	f, err := ply.ParseFormat(c.Output.Format)
	if err != nil {
		return ply.FormatASCII
	}
	return f
}
