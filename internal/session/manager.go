// Package session owns the camera stream and the detection loop of a gesture
// tracking session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/gesturefield/internal/capture"
	"github.com/ayusman/gesturefield/internal/detector"
	"github.com/ayusman/gesturefield/internal/gesture"
	"github.com/ayusman/gesturefield/internal/log"
)

// Default session timing.
const (
	DefaultAcquireTimeout = 10 * time.Second
	DefaultReadyTimeout   = 5 * time.Second
	DefaultFrameInterval  = 16 * time.Millisecond
)

// Config holds session options.
type Config struct {
	Constraints    capture.Constraints
	AcquireTimeout time.Duration
	ReadyTimeout   time.Duration
	FrameInterval  time.Duration
}

// DefaultConfig returns 640x480 user-facing capture with 10s/5s waits at ~60 Hz.
func DefaultConfig() Config {
	return Config{
		Constraints:    capture.DefaultConstraints(),
		AcquireTimeout: DefaultAcquireTimeout,
		ReadyTimeout:   DefaultReadyTimeout,
		FrameInterval:  DefaultFrameInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Constraints.Width <= 0 || c.Constraints.Height <= 0 {
		c.Constraints.Width, c.Constraints.Height = d.Constraints.Width, d.Constraints.Height
	}
	if c.Constraints.Facing == "" {
		c.Constraints.Facing = d.Constraints.Facing
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = d.AcquireTimeout
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = d.ReadyTimeout
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = d.FrameInterval
	}
	return c
}

// Status is a point-in-time view of the current session.
type Status struct {
	ID          string          `json:"id"`
	State       State           `json:"state"`
	IsTracking  bool            `json:"is_tracking"`
	IsLoading   bool            `json:"is_loading"`
	Err         *Error          `json:"-"`
	ErrorKind   ErrorKind       `json:"error_kind,omitempty"`
	Error       string          `json:"error,omitempty"`
	Sample      *gesture.Sample `json:"sample,omitempty"`
	Frames      uint64          `json:"frames"`
	Skipped     uint64          `json:"skipped"`
	FrameErrors uint64          `json:"frame_errors"`
}

// session is one start/stop cycle. Fields other than the channels and
// release guard are protected by Manager.mu.
type session struct {
	id      string
	machine *Machine
	err     *Error
	stream  capture.Stream
	ctx     context.Context
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	release sync.Once
	logger  *slog.Logger

	analyzer *gesture.Analyzer
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New().String()
	return &session{
		id:      id,
		machine: NewMachine(),
		ctx:     ctx,
		cancel:  cancel,
		logger:  log.With("session_id", id),

		analyzer: gesture.NewAnalyzer(),
	}
}

// closeStream closes the session stream at most once.
func (s *session) closeStream() {
	s.release.Do(func() {
		if s.stream == nil {
			return
		}
		if err := s.stream.Close(); err != nil {
			s.logger.Warn("failed to close camera stream", "error", err)
		}
	})
}

// Manager runs tracking sessions against one camera source and detector.
// At most one session is live at a time.
type Manager struct {
	source capture.Source
	det    detector.Detector
	cfg    Config

	mu  sync.Mutex
	cur *session

	tracking    atomic.Bool
	inflight    atomic.Bool
	sample      atomic.Pointer[gesture.Sample]
	frames      atomic.Uint64
	skipped     atomic.Uint64
	frameErrors atomic.Uint64
	detections  sync.WaitGroup
}

// NewManager creates a Manager in the Idle state.
func NewManager(source capture.Source, det detector.Detector, cfg Config) *Manager {
	return &Manager{
		source: source,
		det:    det,
		cfg:    cfg.withDefaults(),
		cur:    newSession(),
	}
}

// fire applies ev to s and logs the transition. Callers hold m.mu.
func (m *Manager) fire(s *session, ev Event) error {
	from, to, err := s.machine.Fire(ev)
	if err != nil {
		return err
	}
	if s == m.cur {
		m.tracking.Store(to == StateTracking)
	}
	if from != to {
		s.logger.Info("session transition", "from", from, "to", to, "event", ev)
	}
	return nil
}

// Start begins a tracking session and blocks until it is Tracking or has
// failed. It is a no-op while a session is initializing or tracking.
// Terminal sessions are replaced by a fresh one.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	s := m.cur
	switch st := s.machine.State(); {
	case st == StateInitializing || st == StateTracking:
		m.mu.Unlock()
		return nil
	case st.Terminal():
		s = newSession()
		m.cur = s
	}
	if err := m.fire(s, EventStart); err != nil {
		m.mu.Unlock()
		return err
	}
	m.sample.Store(nil)
	m.frames.Store(0)
	m.skipped.Store(0)
	m.frameErrors.Store(0)
	m.mu.Unlock()

	if in, ok := m.det.(detector.Initializer); ok {
		if err := in.Init(); err != nil {
			return m.fail(s, &Error{Kind: ModelInitError, Err: err})
		}
	}

	stream, err := m.acquire(ctx, s)
	if err != nil {
		return m.fail(s, err)
	}

	m.mu.Lock()
	if s.machine.State() != StateInitializing {
		m.mu.Unlock()
		closeLate(s, stream)
		return ErrStopped
	}
	s.stream = stream
	m.mu.Unlock()

	if err := m.awaitReady(ctx, s, stream); err != nil {
		return m.fail(s, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s.machine.State() != StateInitializing {
		return ErrStopped
	}
	if err := m.fire(s, EventReady); err != nil {
		return err
	}

	s.loop.Add(1)
	go m.run(s)

	return nil
}

type openResult struct {
	stream capture.Stream
	err    error
}

// acquire opens a stream within AcquireTimeout. Streams granted after the
// wait ended are closed as soon as they arrive.
func (m *Manager) acquire(ctx context.Context, s *session) (capture.Stream, error) {
	wctx, cancel := context.WithTimeout(ctx, m.cfg.AcquireTimeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	ch := make(chan openResult, 1)
	go func() {
		st, err := m.source.Open(wctx, m.cfg.Constraints)
		ch <- openResult{stream: st, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.stream, nil
		}
		if wctx.Err() != nil {
			return nil, m.waitError(ctx, s, CameraTimeout, m.cfg.AcquireTimeout)
		}
		return nil, cameraError(r.err)
	case <-wctx.Done():
		go func() {
			if r := <-ch; r.stream != nil {
				closeLate(s, r.stream)
			}
		}()
		return nil, m.waitError(ctx, s, CameraTimeout, m.cfg.AcquireTimeout)
	}
}

// awaitReady waits for the stream to produce frames within ReadyTimeout.
func (m *Manager) awaitReady(ctx context.Context, s *session, stream capture.Stream) error {
	wctx, cancel := context.WithTimeout(ctx, m.cfg.ReadyTimeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	ch := make(chan error, 1)
	go func() {
		ch <- stream.Ready(wctx)
	}()

	select {
	case err := <-ch:
		if err == nil {
			return nil
		}
		if wctx.Err() != nil {
			return m.waitError(ctx, s, VideoInitError, m.cfg.ReadyTimeout)
		}
		return &Error{Kind: VideoInitError, Err: err}
	case <-wctx.Done():
		return m.waitError(ctx, s, VideoInitError, m.cfg.ReadyTimeout)
	}
}

// waitError reports why a bounded wait ended: a Stop, the caller giving up,
// or the bound itself expiring. Only the last one is a timeout of kind.
func (m *Manager) waitError(ctx context.Context, s *session, kind ErrorKind, limit time.Duration) error {
	if s.ctx.Err() != nil {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return &Error{Kind: kind, Err: fmt.Errorf("no response within %s", limit)}
}

func closeLate(s *session, stream capture.Stream) {
	s.logger.Debug("closing camera stream granted after wait ended")
	if err := stream.Close(); err != nil {
		s.logger.Warn("failed to close late camera stream", "error", err)
	}
}

// fail moves s to Error, releases its stream and returns err.
// ErrStopped leaves the state set by Stop untouched.
func (m *Manager) fail(s *session, err error) error {
	if errors.Is(err, ErrStopped) {
		s.closeStream()
		return err
	}
	if errors.Is(err, ErrAborted) {
		m.mu.Lock()
		_ = m.fire(s, EventStop)
		m.mu.Unlock()
		s.logger.Info("session start abandoned by caller", "error", err)
		s.cancel()
		s.closeStream()
		return err
	}

	se, ok := err.(*Error)
	if !ok {
		se = &Error{Kind: Unknown, Err: err}
	}

	m.mu.Lock()
	if s.machine.State() == StateInitializing {
		s.err = se
		_ = m.fire(s, EventFail)
		s.logger.Error("session failed", "kind", se.Kind, "error", se.Err)
	}
	m.mu.Unlock()

	s.cancel()
	s.closeStream()
	return se
}

// Stop ends the current session. It is safe to call at any time and more
// than once, including while Start is waiting for the camera.
func (m *Manager) Stop() {
	m.mu.Lock()
	s := m.cur
	_ = m.fire(s, EventStop)
	m.mu.Unlock()

	s.cancel()
	s.loop.Wait()
	s.closeStream()
}

// Close stops the session and waits for outstanding detections.
func (m *Manager) Close() {
	m.Stop()
	m.detections.Wait()
}

// run submits frames to the detector once per FrameInterval until the
// session context is cancelled.
func (m *Manager) run(s *session) {
	defer s.loop.Done()

	ticker := time.NewTicker(m.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			m.submit(s)
		}
	}
}

// submit reads one frame and hands it to the detector. While a detection is
// outstanding the tick is skipped.
func (m *Manager) submit(s *session) {
	if !m.inflight.CompareAndSwap(false, true) {
		m.skipped.Add(1)
		return
	}

	frame, err := s.stream.ReadFrame()
	if err != nil {
		m.inflight.Store(false)
		m.frameError(s, err)
		return
	}

	m.detections.Add(1)
	go m.detect(s, frame)
}

func (m *Manager) detect(s *session, frame *gocv.Mat) {
	defer m.detections.Done()
	defer m.inflight.Store(false)
	defer frame.Close()
	defer func() {
		if r := recover(); r != nil {
			m.frameError(s, fmt.Errorf("detector panic: %v", r))
		}
	}()

	hands, err := m.det.Detect(frame)
	if err != nil {
		m.frameError(s, err)
		return
	}

	// A detection that outlived its session must not touch the next one.
	if s.ctx.Err() != nil {
		return
	}
	sample := s.analyzer.Process(hands, time.Now())
	m.sample.Store(&sample)
	m.frames.Add(1)
}

// frameError records a non-fatal per-frame failure.
func (m *Manager) frameError(s *session, err error) {
	n := m.frameErrors.Add(1)

	m.mu.Lock()
	_ = m.fire(s, EventFrameError)
	m.mu.Unlock()

	if n <= 3 || n%100 == 0 {
		s.logger.Warn("frame processing failed", "kind", FrameProcessingError, "error", err, "count", n)
	}
}

// Sample returns the latest gesture sample while tracking. Before the first
// detection completes it returns a neutral sample.
func (m *Manager) Sample() (gesture.Sample, bool) {
	if !m.tracking.Load() {
		return gesture.Sample{}, false
	}
	if p := m.sample.Load(); p != nil {
		return *p, true
	}
	return gesture.Sample{
		Scale: gesture.NeutralScale,
		Left:  gesture.Unknown,
		Right: gesture.Unknown,
	}, true
}

// IsTracking reports whether the current session is Tracking.
func (m *Manager) IsTracking() bool {
	return m.tracking.Load()
}

// Status returns a snapshot of the current session.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.cur
	st := Status{
		ID:          s.id,
		State:       s.machine.State(),
		Err:         s.err,
		Sample:      m.sample.Load(),
		Frames:      m.frames.Load(),
		Skipped:     m.skipped.Load(),
		FrameErrors: m.frameErrors.Load(),
	}
	st.IsTracking = st.State == StateTracking
	st.IsLoading = st.State == StateInitializing
	if s.err != nil {
		st.ErrorKind = s.err.Kind
		st.Error = s.err.Message()
	}
	return st
}
