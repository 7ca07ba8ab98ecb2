package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/lvsctl/internal/api"
	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/config"
	"github.com/mattjoyce/lvsctl/internal/events"
	"github.com/mattjoyce/lvsctl/internal/journal"
	"github.com/mattjoyce/lvsctl/internal/log"
	"github.com/mattjoyce/lvsctl/internal/tui"
)

const consoleStopTimeout = 2 * time.Second

var errEngineExited = errors.New("engine exited")

func runRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	withConsole := fs.Bool("console", false, "Open the terminal console")
	withAPI := fs.Bool("api", false, "Serve the HTTP control API")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *withAPI {
		cfg.API.Enabled = true
	}

	instance, ok := acquireInstance(cfg)
	if !ok {
		return 1
	}
	defer instance.Release()

	if *withConsole {
		// The console owns the terminal; logs go to a file beside the config.
		logPath := filepath.Join(filepath.Dir(cfg.SourcePath), "lvsctl.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		log.SetOutput(f)
	}
	log.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := log.WithComponent("main")
	logger.Info("lvsctl starting", "version", version, "config", cfg.SourcePath, "engine", cfg.Engine.Path)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, *withConsole, logger); err != nil {
		logger.Error("lvsctl stopped with error", "error", err)
		if *withConsole {
			fmt.Fprintf(os.Stderr, "lvsctl: %v\n", err)
		}
		return 1
	}
	logger.Info("lvsctl stopped")
	return 0
}

// serve runs the engine and its collaborators until ctx is done, the engine
// exits, the console quits, or a collaborator fails.
func serve(ctx context.Context, cfg *config.Config, withConsole bool, logger *slog.Logger) error {
	jr, rec, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	if jr != nil {
		defer func() {
			if err := jr.Close(); err != nil {
				logger.Warn("journal close failed", "error", err)
			}
			if dropped := jr.Dropped(); dropped > 0 {
				logger.Warn("journal dropped records", "count", dropped)
			}
		}()
		logger.Info("journal enabled", "path", cfg.Journal.Path, "session_id", jr.SessionID())
	}

	c, err := client.Start(ctx, clientOptions(cfg, rec))
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("client close failed", "error", err)
		}
	}()

	hub := events.NewHub(0)
	detach := hub.Attach(c)
	defer detach()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	if cfg.API.Enabled {
		server := api.New(api.Config{Listen: cfg.API.Listen, Token: cfg.API.Token}, c, hub, log.WithComponent("api"))
		go func() {
			if err := server.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	go func() {
		if err := c.Wait(runCtx); err == nil {
			hub.Publish(events.TypeEngineExited, map[string]any{"stats": c.Stats()})
			errCh <- errEngineExited
		}
	}()

	consoleDone := make(chan struct{})
	if withConsole {
		feed, unsubscribe := hub.Subscribe()
		program := tea.NewProgram(tui.New(c, feed, cfg.Console.Tick), tea.WithContext(runCtx))
		go func() {
			defer close(consoleDone)
			defer unsubscribe()
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				errCh <- fmt.Errorf("console: %w", err)
			}
		}()
	}

	var result error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case <-consoleDone:
		logger.Info("console closed")
		consoleDone = nil
	case err := <-errCh:
		logger.Warn("stopping", "reason", err)
		result = err
	}

	hub.Publish(events.TypeShutdown, nil)
	cancel()
	hub.Close()
	if withConsole && consoleDone != nil {
		waitOrTimeout(consoleDone, consoleStopTimeout)
	}
	return result
}

func openJournal(ctx context.Context, cfg *config.Config) (*journal.Journal, client.Recorder, error) {
	if !cfg.Journal.Enabled {
		return nil, nil, nil
	}
	jr, err := journal.Open(ctx, journal.Options{
		Path:       cfg.Journal.Path,
		EnginePath: cfg.Engine.Path,
		ConfigHash: cfg.Fingerprint,
		Buffer:     cfg.Journal.Buffer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}
	return jr, jr, nil
}

func waitOrTimeout(done <-chan struct{}, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
}
