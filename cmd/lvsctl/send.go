package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/log"
	"github.com/mattjoyce/lvsctl/internal/protocol"
)

const defaultSendWait = time.Second

var sendAliases = map[string]protocol.Kind{
	"timestamp": protocol.KindSetTimestamp,
	"load":      protocol.KindLoadPreset,
	"delete":    protocol.KindDeletePreset,
	"start":     protocol.KindStartPreview,
	"stop":      protocol.KindStopPreview,
}

// parseSendKind accepts a short alias, a wire name or a kind number.
// Only outbound kinds can be sent.
func parseSendKind(s string) (protocol.Kind, error) {
	if k, ok := sendAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	k, err := protocol.ParseKind(s)
	if err != nil {
		return 0, err
	}
	if k.Inbound() {
		return 0, fmt.Errorf("%s is sent by the engine, not to it", k)
	}
	return k, nil
}

type sendArgs struct {
	kind   protocol.Kind
	name   string
	atMs   uint64
	atSet  bool
	ms     uint64
	msSet  bool
	fromMs uint64
}

// issue sends the command described by a through ctrl.
func (a sendArgs) issue(ctrl commandSender) error {
	switch a.kind {
	case protocol.KindSetTimestamp:
		if !a.msSet {
			return errors.New("timestamp requires --ms")
		}
		return ctrl.SetTimestamp(a.ms)
	case protocol.KindLoadPreset:
		return ctrl.LoadPreset(a.name, a.atMs)
	case protocol.KindDeletePreset:
		if !a.atSet {
			return errors.New("delete requires --at")
		}
		return ctrl.DeletePreset(a.name, a.atMs)
	case protocol.KindStartPreview:
		return ctrl.StartPreview(a.fromMs)
	case protocol.KindStopPreview:
		return ctrl.StopPreview()
	default:
		return fmt.Errorf("cannot send %s", a.kind)
	}
}

type commandSender interface {
	SetTimestamp(ms uint64) error
	LoadPreset(name string, startMs uint64) error
	DeletePreset(name string, atMs uint64) error
	StartPreview(fromMs uint64) error
	StopPreview() error
}

// notificationLine is one reply printed by send, as a JSON line.
type notificationLine struct {
	Kind       string           `json:"kind"`
	ReceivedAt time.Time        `json:"received_at"`
	Data       protocol.Message `json:"data"`
}

type collector struct {
	mu    sync.Mutex
	lines []notificationLine
}

func (c *collector) handle(n client.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, notificationLine{Kind: n.Kind.String(), ReceivedAt: n.ReceivedAt, Data: n.Message})
}

func (c *collector) writeTo(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	enc := json.NewEncoder(w)
	for _, l := range c.lines {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return nil
}

func runSend(args []string) int {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		printSendHelp()
		return 1
	}
	kind, err := parseSendKind(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	sa := sendArgs{kind: kind}
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	wait := fs.Duration("wait", defaultSendWait, "How long to collect engine replies")
	fs.StringVar(&sa.name, "name", "", "Preset name (load, delete)")
	fs.Uint64Var(&sa.ms, "ms", 0, "Playback position in ms (timestamp)")
	fs.Uint64Var(&sa.atMs, "at", 0, "Preset start in ms (load, delete)")
	fs.Uint64Var(&sa.fromMs, "from", 0, "Preview start in ms (start)")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ms":
			sa.msSet = true
		case "at":
			sa.atSet = true
		}
	})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	instance, ok := acquireInstance(cfg)
	if !ok {
		return 1
	}
	defer instance.Release()

	log.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := log.WithComponent("send")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jr, rec, err := openJournal(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if jr != nil {
		defer jr.Close()
	}

	c, err := client.Start(ctx, clientOptions(cfg, rec))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		return 1
	}
	defer c.Close()

	var replies collector
	c.Subscribe(replies.handle)

	code := 0
	if err := sa.issue(c); err != nil {
		fmt.Fprintf(os.Stderr, "Send failed: %v\n", err)
		code = 1
	} else {
		logger.Debug("command sent", "kind", kind.String(), "wait", *wait)
		waitCtx, cancel := context.WithTimeout(ctx, *wait)
		_ = c.Wait(waitCtx)
		cancel()
	}

	if err := replies.writeTo(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to print replies: %v\n", err)
		return 1
	}
	return code
}
