// Package app wires the gesturefield components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/ayusman/gesturefield/internal/capture"
	"github.com/ayusman/gesturefield/internal/config"
	"github.com/ayusman/gesturefield/internal/control"
	"github.com/ayusman/gesturefield/internal/detector"
	"github.com/ayusman/gesturefield/internal/log"
	"github.com/ayusman/gesturefield/internal/particles"
	"github.com/ayusman/gesturefield/internal/render"
	"github.com/ayusman/gesturefield/internal/server"
	"github.com/ayusman/gesturefield/internal/session"
	"github.com/ayusman/gesturefield/internal/store"
	"github.com/ayusman/gesturefield/internal/tray"
)

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	source   capture.Source
	detector detector.Detector
	store    *store.Store
	screen   tcell.Screen
}

// WithSource replaces the camera source.
func WithSource(s capture.Source) Option {
	return func(o *options) { o.source = s }
}

// WithDetector replaces the hand detector.
func WithDetector(d detector.Detector) Option {
	return func(o *options) { o.detector = d }
}

// WithStore uses an already opened store. The app does not close it.
func WithStore(s *store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithScreen renders to screen instead of the process terminal.
func WithScreen(s tcell.Screen) Option {
	return func(o *options) { o.screen = s }
}

// App owns the engine, tracking session, parameter bridge and surfaces.
type App struct {
	config    config.Config
	store     *store.Store
	ownsStore bool
	screen    tcell.Screen

	engine   *particles.Engine
	session  *session.Manager
	bridge   *control.Bridge
	server   *server.Server
	detector detector.Detector

	tray *tray.Tray
	term *render.Terminal

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New opens the store, restores preferences and builds every component.
func New(cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{config: cfg, store: o.store, screen: o.screen}

	if a.store == nil {
		st, err := store.New(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = st
		a.ownsStore = true
	}

	def := control.DefaultPreferences()
	def.Template = particles.TemplateID(cfg.Template)
	def.Color = cfg.Color
	def.ParticleCountBase = cfg.ParticleCount
	prefs := LoadPreferences(a.store.Settings(), def)

	a.engine = particles.NewEngine(engineSettings(prefs), cfg.Seed, particles.WithChangeHook(func(s particles.Settings) {
		log.Debug("particle field rebuilt", "template", s.Template, "count", s.ParticleCountBase, "color", s.Color.Hex())
	}))

	// Try MediaPipe first, fall back to mock detector
	a.detector = o.detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig()); err == nil {
			a.detector = mp
			log.Info("using MediaPipe hand detection")
		} else {
			log.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	source := o.source
	if source == nil {
		source = capture.NewCameraSource(cfg.CameraID)
	}

	a.session = session.NewManager(source, a.detector, session.Config{
		Constraints: capture.Constraints{
			Width:  cfg.FrameWidth,
			Height: cfg.FrameHeight,
			Facing: capture.FacingUser,
		},
		AcquireTimeout: cfg.AcquireTimeout,
		ReadyTimeout:   cfg.ReadyTimeout,
		FrameInterval:  cfg.FrameInterval,
	})

	a.bridge = control.NewBridge(a.session, a.engine, prefs)
	a.bridge.OnChange(a.persist)

	a.server = server.New(server.Config{
		StaticDir: cfg.StaticDir,
		Controls:  a.bridge,
		Session:   a.session,
		Field:     a.engine,
	})

	return a, nil
}

func (a *App) persist(p control.Preferences) {
	if err := SavePreferences(a.store.Settings(), p); err != nil {
		log.Warn("failed to save preferences", "error", err)
	}
}

// Run serves HTTP, drives the render loop and blocks until ctx is cancelled,
// the terminal renderer quits or Quit is called. A server that fails to
// start ends Run with its error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	if a.config.Renderer == "terminal" {
		var (
			term *render.Terminal
			err  error
		)
		if a.screen != nil {
			term, err = render.NewTerminalWithScreen(ctx, a.screen, a.bridge)
		} else {
			term, err = render.NewTerminal(ctx, a.bridge)
		}
		if err != nil {
			return fmt.Errorf("start terminal renderer: %w", err)
		}
		a.term = term
		defer term.Close()

		go func() {
			select {
			case <-term.Done():
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	errCh := make(chan error, 1)
	if a.config.Addr != "" {
		go func() {
			err := a.server.ListenAndServe(ctx, a.config.Addr)
			if err != nil {
				log.Error("http server failed", "addr", a.config.Addr, "error", err)
				cancel()
			}
			errCh <- err
		}()
	} else {
		close(errCh)
	}

	a.runLoop(ctx)

	a.bridge.DisableGesture()
	if err, ok := <-errCh; ok && err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Quit stops a running Run.
func (a *App) Quit() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close releases the session, detector and store.
func (a *App) Close() error {
	a.session.Close()
	a.server.Close()

	var errs []error
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	if a.ownsStore {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Tray builds the tray menu bound to the bridge. Call before Run; the
// caller runs it on the main goroutine.
func (a *App) Tray() *tray.Tray {
	t := tray.New(a.bridge.Parameters().Template)

	t.OnToggle(func() {
		if _, err := a.bridge.ToggleGesture(context.Background()); err != nil {
			log.Warn("gesture control unavailable", "error", err)
		}
	})
	t.OnTemplate(func(id particles.TemplateID) {
		if err := a.bridge.SetTemplate(string(id)); err != nil {
			log.Warn("template change failed", "template", id, "error", err)
		}
	})
	t.OnOpen(func() {
		log.Info("web view", "url", "http://localhost"+a.config.Addr)
	})
	t.OnQuit(a.Quit)

	a.mu.Lock()
	a.tray = t
	a.mu.Unlock()
	return t
}

// Bridge returns the parameter bridge.
func (a *App) Bridge() *control.Bridge {
	return a.bridge
}

// Engine returns the particle engine.
func (a *App) Engine() *particles.Engine {
	return a.engine
}

// Session returns the tracking session manager.
func (a *App) Session() *session.Manager {
	return a.session
}

// Server returns the HTTP handler.
func (a *App) Server() *server.Server {
	return a.server
}

// Store returns the preferences store.
func (a *App) Store() *store.Store {
	return a.store
}
