package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/gesturefield/internal/app"
	"github.com/ayusman/gesturefield/internal/config"
	"github.com/ayusman/gesturefield/internal/log"
)

func main() {
	if err := run(); err != nil {
		log.Error("gesturefield failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// The terminal renderer owns stdout/stderr, so logs go to a file.
	if cfg.Renderer == "terminal" {
		f, err := os.OpenFile(filepath.Join(cfg.DataDir, "gesturefield.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.InitWriter(f, cfg.LogLevel)
	} else {
		log.Init(cfg.LogLevel)
	}

	if cfg.StaticDir == "" {
		cfg.StaticDir = findWebDir(cfg.DataDir)
	}
	if cfg.StaticDir != "" {
		log.Info("serving static files", "dir", cfg.StaticDir)
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		return a.Run(ctx)
	}

	// systray needs the main goroutine.
	t := a.Tray()
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	t.Run()
	a.Quit()
	return <-errCh
}

// findWebDir returns the first of "web", "../web", "../../web" and
// <dataDir>/web that exists, or "".
func findWebDir(dataDir string) string {
	for _, p := range []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
