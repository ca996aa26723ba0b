package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockSource grants MockStreams with scriptable failures for testing.
type MockSource struct {
	mu         sync.Mutex
	frames     []*gocv.Mat
	loop       bool
	errName    string
	block      bool
	delay      time.Duration
	neverReady bool
	frameErr   error
	opens      int
	streams    []*MockStream
}

// NewMockSource creates a source whose streams play back frames.
// With no frames, streams return blank 640x480 frames.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{frames: frames, loop: loop}
}

// SetError makes Open fail with a DeviceError of the given name.
func (s *MockSource) SetError(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errName = name
}

// SetBlock makes Open wait until its context is done.
func (s *MockSource) SetBlock(block bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = block
}

// SetDelay makes Open sleep d before granting a stream, ignoring cancellation.
func (s *MockSource) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetNeverReady makes granted streams block in Ready until cancelled.
func (s *MockSource) SetNeverReady(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neverReady = v
}

// SetFrameError makes granted streams fail every ReadFrame with err.
func (s *MockSource) SetFrameError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameErr = err
}

// Opens returns how many times Open was called.
func (s *MockSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Streams returns every stream granted so far.
func (s *MockSource) Streams() []*MockStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*MockStream(nil), s.streams...)
}

func (s *MockSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	s.mu.Lock()
	s.opens++
	errName, block, delay := s.errName, s.block, s.delay
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if errName != "" {
		return nil, &DeviceError{Name: errName, Err: fmt.Errorf("mock %s", errName)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := &MockStream{
		frames:     s.frames,
		loop:       s.loop,
		neverReady: s.neverReady,
		frameErr:   s.frameErr,
		width:      c.Width,
		height:     c.Height,
		running:    true,
	}
	if st.width <= 0 || st.height <= 0 {
		st.width, st.height = DefaultWidth, DefaultHeight
	}
	s.streams = append(s.streams, st)
	return st, nil
}

// MockStream plays back pre-recorded frames.
type MockStream struct {
	mu         sync.Mutex
	frames     []*gocv.Mat
	index      int
	loop       bool
	neverReady bool
	frameErr   error
	width      int
	height     int
	running    bool
	closes     int
	reads      int
}

func (s *MockStream) Ready(ctx context.Context) error {
	s.mu.Lock()
	never := s.neverReady
	s.mu.Unlock()

	if never {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (s *MockStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrStreamClosed
	}
	s.reads++
	if s.frameErr != nil {
		return nil, s.frameErr
	}

	if len(s.frames) == 0 {
		mat := gocv.NewMatWithSize(s.height, s.width, gocv.MatTypeCV8UC3)
		return &mat, nil
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return nil, fmt.Errorf("no more frames")
		}
		s.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	s.running = false
	return nil
}

// Closes returns how many times Close was called.
func (s *MockStream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Reads returns how many frames were requested.
func (s *MockStream) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
