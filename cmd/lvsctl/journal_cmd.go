package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattjoyce/lvsctl/internal/journal"
	"github.com/mattjoyce/lvsctl/internal/protocol"
	"github.com/mattjoyce/lvsctl/internal/storage"
)

func runJournalNoun(args []string) int {
	if len(args) < 1 {
		printJournalNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printJournalNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "sessions":
		return runJournalSessions(actionArgs)
	case "tail":
		return runJournalTail(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown journal action: %s\n", action)
		return 1
	}
}

func printJournalNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: lvsctl journal <action> [--config PATH | --journal PATH] [--limit N] [--json]")
	fmt.Fprintln(w, "Actions: sessions, tail [--session ID]")
}

type journalFlags struct {
	configPath  string
	journalPath string
	limit       int
	jsonOut     bool
}

func (f *journalFlags) register(fs *flag.FlagSet, defaultLimit int) {
	fs.StringVar(&f.configPath, "config", "", "Path to configuration file or directory")
	fs.StringVar(&f.journalPath, "journal", "", "Path to the journal database (overrides config)")
	fs.IntVar(&f.limit, "limit", defaultLimit, "Maximum rows to show")
	fs.BoolVar(&f.jsonOut, "json", false, "Output in JSON")
}

func (f *journalFlags) open(ctx context.Context) (*journal.Reader, error) {
	path := f.journalPath
	if path == "" {
		cfg, err := loadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.Path
	}
	return journal.OpenReader(ctx, path)
}

func runJournalSessions(args []string) int {
	var jf journalFlags
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	jf.register(fs, 20)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	r, err := jf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer r.Close()

	sessions, err := r.Sessions(ctx, jf.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list sessions: %v\n", err)
		return 1
	}

	if jf.jsonOut {
		return printJSON(os.Stdout, sessions)
	}
	printSessions(os.Stdout, sessions)
	return 0
}

func runJournalTail(args []string) int {
	var jf journalFlags
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	jf.register(fs, 50)
	session := fs.String("session", "", "Session id (default: latest)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	r, err := jf.open(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer r.Close()

	msgs, err := r.Tail(ctx, *session, jf.limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read journal: %v\n", err)
		return 1
	}

	if jf.jsonOut {
		return printJSON(os.Stdout, msgs)
	}
	printMessages(os.Stdout, msgs)
	return 0
}

func printSessions(w io.Writer, sessions []storage.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions recorded")
		return
	}
	fmt.Fprintf(w, "%-36s  %-20s  %-20s  %8s  %7s\n", "SESSION", "STARTED", "ENDED", "MESSAGES", "DROPPED")
	for _, s := range sessions {
		ended := "running"
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-36s  %-20s  %-20s  %8d  %7d\n",
			s.ID, s.StartedAt.Local().Format(time.DateTime), ended, s.Messages, s.Dropped)
	}
}

func printMessages(w io.Writer, msgs []storage.MessageRecord) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "no messages recorded")
		return
	}
	for _, m := range msgs {
		arrow := "<-"
		if m.Direction == string(protocol.Outbound) {
			arrow = "->"
		}
		fmt.Fprintf(w, "%s %s %-14s %s\n", m.RecordedAt.Local().Format("15:04:05.000"), arrow, m.Kind, m.Line)
	}
}

func printJSON(w io.Writer, v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, string(data))
	return 0
}
