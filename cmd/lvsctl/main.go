package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "run":
		if hasHelpFlag(args) {
			printRunHelp()
			return 0
		}
		return runRun(args)
	case "send":
		if hasHelpFlag(args) {
			printSendHelp()
			return 0
		}
		return runSend(args)
	case "journal":
		return runJournalNoun(args)
	case "config":
		return runConfigNoun(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Print(`lvsctl - Controller for the LVS audio-reactive visualizer engine

Usage:
  lvsctl <command> [flags]
  lvsctl <noun> <action> [flags]

Commands:
  run               Start the engine and keep it under control
  send <kind>       Start the engine, send one command, print replies

Journal Commands:
  journal sessions  List recorded engine sessions
  journal tail      Show the latest recorded messages

Config Commands:
  config check      Validate syntax and integrity
  config hash       Show the config fingerprint (--write to lock it)

General:
  version           Show version information
  help              Show this help message

Use 'lvsctl <command> --help' for command-specific flags.
`)
}

func printRunHelp() {
	fmt.Println("Usage: lvsctl run [--config PATH] [--console] [--api]")
	fmt.Println("Starts the engine and runs until interrupted or the engine exits.")
	fmt.Println("  --console  open the terminal console")
	fmt.Println("  --api      serve the HTTP control API even if api.enabled is false")
}

func printSendHelp() {
	fmt.Println("Usage: lvsctl send <kind> [--config PATH] [--wait DURATION] [flags]")
	fmt.Println("Kinds:")
	fmt.Println("  timestamp --ms N")
	fmt.Println("  load      --name NAME [--at MS]")
	fmt.Println("  delete    --name NAME --at MS")
	fmt.Println("  start     [--from MS]")
	fmt.Println("  stop")
	fmt.Println("Wire names (LOAD_PRESET) and numbers (1) are accepted as kinds.")
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: lvsctl version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("lvsctl %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}
