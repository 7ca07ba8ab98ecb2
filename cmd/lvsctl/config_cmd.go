package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/config"
	"github.com/mattjoyce/lvsctl/internal/lock"
	"github.com/mattjoyce/lvsctl/internal/transport"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "hash", "lock":
		return runConfigHash(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: lvsctl config <action> [--config PATH]")
	fmt.Fprintln(w, "Actions: check [--json], hash [--write]")
}

// resolveConfigPath returns the config file to use: the flag value, or the
// first discovered location. A directory resolves to its config.yaml.
func resolveConfigPath(flagValue string) (string, error) {
	path := flagValue
	if path == "" {
		discovered, err := config.Discover()
		if err != nil {
			return "", fmt.Errorf("failed to discover config: %w", err)
		}
		path = discovered
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, "config.yaml")
	}
	return abs, nil
}

func loadConfig(flagValue string) (*config.Config, error) {
	path, err := resolveConfigPath(flagValue)
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

// lockPath is the single-instance lock beside the config file.
func lockPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.SourcePath), "lvsctl.lock")
}

// acquireInstance takes the single-instance lock for cfg, printing why it failed.
func acquireInstance(cfg *config.Config) (*lock.InstanceLock, bool) {
	l, err := lock.Acquire(lockPath(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Another lvsctl is using this config: %v\n", err)
		return nil, false
	}
	return l, true
}

// clientOptions maps configuration onto client options. A zero warm-up in
// config means none at all.
func clientOptions(cfg *config.Config, rec client.Recorder) client.Options {
	warmup := cfg.IPC.Warmup
	if warmup == 0 {
		warmup = -1
	}
	return client.Options{
		Engine: transport.Options{
			Path:        cfg.Engine.Path,
			Args:        cfg.Engine.Args,
			Dir:         cfg.Engine.Dir,
			Env:         cfg.Engine.Env,
			ReadTimeout: cfg.IPC.ReadTimeout,
		},
		Warmup:           warmup,
		JoinTimeout:      cfg.IPC.JoinTimeout,
		TerminationGrace: cfg.IPC.TerminationGrace,
		Recorder:         rec,
	}
}

type configCheckResult struct {
	Path        string `json:"path"`
	Valid       bool   `json:"valid"`
	Locked      bool   `json:"locked"`
	Fingerprint string `json:"fingerprint,omitempty"`
	EnginePath  string `json:"engine_path,omitempty"`
	Error       string `json:"error,omitempty"`
}

func runConfigCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	result := configCheckResult{Path: path}
	cfg, err := config.Load(path)
	if err != nil {
		result.Error = err.Error()
	} else {
		result.Valid = true
		result.Fingerprint = cfg.Fingerprint
		result.EnginePath = cfg.Engine.Path
	}
	if locked, lockErr := config.VerifyChecksum(path); lockErr == nil || locked {
		result.Locked = locked
	}

	if *jsonOut {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else if result.Valid {
		fmt.Printf("OK %s\n", result.Path)
		fmt.Printf("  engine: %s\n", result.EnginePath)
		fmt.Printf("  fingerprint: %s\n", result.Fingerprint)
		fmt.Printf("  locked: %t\n", result.Locked)
	} else {
		fmt.Fprintf(os.Stderr, "INVALID %s\n  %s\n", result.Path, result.Error)
	}

	if !result.Valid {
		return 1
	}
	return 0
}

func runConfigHash(args []string) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	write := fs.Bool("write", false, "Record the hash in .checksums beside the config")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	if !*write {
		hash, err := config.ComputeBlake3Hash(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to hash config: %v\n", err)
			return 1
		}
		fmt.Printf("%s  %s\n", hash, path)
		return 0
	}

	manifest, hash, err := config.Lock(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}
	fmt.Printf("%s  %s\n", hash, path)
	fmt.Printf("WROTE %s\n", manifest)
	return 0
}
