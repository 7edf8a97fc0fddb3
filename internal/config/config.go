package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/binlens/internal/logging"
)

var ErrInvalid = errors.New("config: invalid")

const (
	DefaultServerName   = "binlensd"
	DefaultServerAddr   = ":9400"
	DefaultMaxBodyBytes = 32 << 20
	DefaultMaxSessions  = 64
)

// ServerConfig is the resolved binlensd configuration.
type ServerConfig struct {
	Name         string
	Addr         string
	CorsOrigins  []string
	MaxBodyBytes int64
	MaxSessions  int
	Seed         uint64
	LogLevel     string
}

// CLIConfig holds defaults for the binlens command; flags override it.
type CLIConfig struct {
	Output   string
	Fields   bool
	Seed     uint64
	LogLevel string
}

type serverFile struct {
	Name         string   `toml:"name"`
	Addr         string   `toml:"addr"`
	CorsOrigins  []string `toml:"cors_origins"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
	MaxSessions  int      `toml:"max_sessions"`
	Seed         uint64   `toml:"seed"`
	LogLevel     string   `toml:"log_level"`
}

type cliFile struct {
	Output   string `toml:"output"`
	Fields   bool   `toml:"fields"`
	Seed     uint64 `toml:"seed"`
	LogLevel string `toml:"log_level"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Name:         DefaultServerName,
		Addr:         DefaultServerAddr,
		CorsOrigins:  []string{"http://localhost:3000"},
		MaxBodyBytes: DefaultMaxBodyBytes,
		MaxSessions:  DefaultMaxSessions,
		LogLevel:     "info",
	}
}

func DefaultCLIConfig() CLIConfig {
	return CLIConfig{Output: "text", LogLevel: "warn"}
}

// LoadServerConfig reads path over the defaults. Keys absent from the file
// keep their default values.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	var raw serverFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("load server config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ServerConfig{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("max_body_bytes") {
		cfg.MaxBodyBytes = raw.MaxBodyBytes
	}
	if meta.IsDefined("max_sessions") {
		cfg.MaxSessions = raw.MaxSessions
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func LoadCLIConfig(path string) (CLIConfig, error) {
	cfg := DefaultCLIConfig()

	var raw cliFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return CLIConfig{}, fmt.Errorf("load cli config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return CLIConfig{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}

	if meta.IsDefined("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(raw.Output))
	}
	if meta.IsDefined("fields") {
		cfg.Fields = raw.Fields
	}
	if meta.IsDefined("seed") {
		cfg.Seed = raw.Seed
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := ValidateCLIConfig(cfg); err != nil {
		return CLIConfig{}, err
	}
	return cfg, nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: server config missing name", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("%w: server config missing addr", ErrInvalid)
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("%w: addr %q: %v", ErrInvalid, cfg.Addr, err)
	}
	if cfg.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalid)
	}
	if cfg.MaxSessions < 0 {
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalid)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, cfg.LogLevel)
	}
	return nil
}

func ValidateCLIConfig(cfg CLIConfig) error {
	switch cfg.Output {
	case "text", "json":
	default:
		return fmt.Errorf("%w: output must be text or json, got %q", ErrInvalid, cfg.Output)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalid, cfg.LogLevel)
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		v := strings.TrimRight(strings.TrimSpace(o), "/")
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
