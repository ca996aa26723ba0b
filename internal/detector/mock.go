package detector

import (
	"math"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results and latency.
type MockDetector struct {
	mu      sync.Mutex
	hands   []HandLandmarks
	err     error
	initErr error
	delay   time.Duration
	calls   int
	closed  bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetInitError sets the error that will be returned by Init.
func (m *MockDetector) SetInitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initErr = err
}

// SetDelay makes every Detect call block for d before returning.
func (m *MockDetector) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Init returns the configured init error.
func (m *MockDetector) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	hands, err := m.hands, m.err
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return hands, nil
}

// Close marks the mock detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// HandAt returns a synthetic hand with its wrist at wrist and all five fingertips
// exactly reach away from it, fanned out upward in the image plane. Intermediate
// joints sit on the wrist-to-tip segments.
func HandAt(handedness string, wrist Point3D, reach float64) HandLandmarks {
	h := HandLandmarks{Handedness: handedness, Score: 0.95}
	h.Points[Wrist] = wrist

	// Fan angles from thumb to pinky, measured from straight up.
	angles := [5]float64{-1.0, -0.4, 0.0, 0.35, 0.7}
	if handedness == Left {
		for i := range angles {
			angles[i] = -angles[i]
		}
	}

	for finger, tip := range Fingertips {
		dx := math.Sin(angles[finger]) * reach
		dy := -math.Cos(angles[finger]) * reach
		// Four joints per finger: base, two knuckles, tip.
		for j := 1; j <= 4; j++ {
			f := float64(j) / 4
			h.Points[tip-4+j] = Point3D{X: wrist.X + dx*f, Y: wrist.Y + dy*f, Z: wrist.Z}
		}
	}

	return h
}

// OpenPalmLandmarks returns a preset right hand with fingers spread (average reach 0.25).
func OpenPalmLandmarks() HandLandmarks {
	return HandAt(Right, Point3D{X: 0.65, Y: 0.8}, 0.25)
}

// FistLandmarks returns a preset right hand with fingers curled (average reach 0.08).
func FistLandmarks() HandLandmarks {
	return HandAt(Right, Point3D{X: 0.65, Y: 0.8}, 0.08)
}
