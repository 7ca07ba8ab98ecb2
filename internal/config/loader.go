package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Defaults returns a configuration with every optional field filled in.
func Defaults() *Config {
	return &Config{
		IPC: IPCConfig{
			ReadTimeout:      5 * time.Second,
			Warmup:           500 * time.Millisecond,
			JoinTimeout:      5 * time.Second,
			TerminationGrace: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "./data/journal.db",
			Buffer:  1024,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8089",
		},
		Console: ConsoleConfig{
			Tick: 500 * time.Millisecond,
		},
	}
}

// Load reads, interpolates and validates configuration from a file.
// A directory path is resolved to the config.yaml inside it.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	if _, err := VerifyChecksum(absPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", absPath, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	cfg.SourcePath = absPath

	if cfg.Journal.Path != "" && !filepath.IsAbs(cfg.Journal.Path) {
		cfg.Journal.Path = filepath.Join(filepath.Dir(absPath), cfg.Journal.Path)
	}

	return cfg, nil
}

// Parse decodes raw YAML on top of Defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	interpolated := interpolateEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(interpolated))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.Fingerprint = Fingerprint(data)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Unset variables are left in place and rejected by validate where it matters.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Engine.Path) == "" {
		return fmt.Errorf("engine.path is required")
	}
	if envVarPattern.MatchString(cfg.Engine.Path) {
		return fmt.Errorf("engine.path references an unset environment variable: %s", cfg.Engine.Path)
	}
	for i, kv := range cfg.Engine.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("engine.env[%d] must be KEY=VALUE (got %q)", i, kv)
		}
	}

	if cfg.IPC.ReadTimeout <= 0 {
		return fmt.Errorf("ipc.read_timeout must be positive")
	}
	if cfg.IPC.Warmup < 0 {
		return fmt.Errorf("ipc.warmup must not be negative")
	}
	if cfg.IPC.JoinTimeout <= 0 {
		return fmt.Errorf("ipc.join_timeout must be positive")
	}
	if cfg.IPC.TerminationGrace <= 0 {
		return fmt.Errorf("ipc.termination_grace must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error (got %q)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text (got %q)", cfg.Log.Format)
	}

	if cfg.Journal.Enabled {
		if cfg.Journal.Path == "" {
			return fmt.Errorf("journal.path is required when the journal is enabled")
		}
		if cfg.Journal.Buffer <= 0 {
			return fmt.Errorf("journal.buffer must be positive")
		}
	}

	if cfg.API.Enabled {
		if err := validateAPI(cfg.API); err != nil {
			return err
		}
	}

	if cfg.Console.Tick <= 0 {
		return fmt.Errorf("console.tick must be positive")
	}

	return nil
}

func validateAPI(api APIConfig) error {
	host, _, err := net.SplitHostPort(api.Listen)
	if err != nil {
		return fmt.Errorf("api.listen %q: %w", api.Listen, err)
	}
	if envVarPattern.MatchString(api.Token) {
		return fmt.Errorf("api.token references an unset environment variable: %s", api.Token)
	}
	if api.Token == "" && !isLoopback(host) {
		return fmt.Errorf("api.token is required when api.listen (%s) is not a loopback address", api.Listen)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
