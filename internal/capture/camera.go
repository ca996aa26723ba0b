// Package capture provides camera streams using GoCV (OpenCV).
package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"

	"gocv.io/x/gocv"
)

// Default stream constraints.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// readyPoll is how often Ready retries reading the first frame.
const readyPoll = 50 * time.Millisecond

// ErrStreamClosed is returned when reading from a closed stream.
var ErrStreamClosed = errors.New("stream is closed")

// Facing selects the camera direction.
type Facing string

const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints are the requested stream properties.
type Constraints struct {
	Width  int
	Height int
	Facing Facing
}

// DefaultConstraints returns 640x480 from the user-facing camera.
func DefaultConstraints() Constraints {
	return Constraints{Width: DefaultWidth, Height: DefaultHeight, Facing: FacingUser}
}

// Source grants camera streams.
type Source interface {
	// Open acquires a stream. It may block until the device grants access.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired camera. It is owned by one caller and must be closed.
type Stream interface {
	// Ready blocks until the stream produces frames.
	Ready(ctx context.Context) error
	// ReadFrame reads one frame. The caller closes the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	Close() error
}

// Names reported by DeviceError, matching the conventional media device errors.
const (
	NotAllowedError       = "NotAllowedError"
	PermissionDeniedError = "PermissionDeniedError"
	NotFoundError         = "NotFoundError"
	DevicesNotFoundError  = "DevicesNotFoundError"
	NotReadableError      = "NotReadableError"
	TrackStartError       = "TrackStartError"
)

// DeviceError is a named camera acquisition failure.
type DeviceError struct {
	Name string
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return e.Name
	}
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// DeviceErrorName returns the name of a DeviceError in err's chain, or "".
func DeviceErrorName(err error) string {
	var de *DeviceError
	if errors.As(err, &de) {
		return de.Name
	}
	return ""
}

// CameraSource opens local cameras by device index.
type CameraSource struct {
	deviceID int
}

// NewCameraSource creates a Source for the given device index.
func NewCameraSource(deviceID int) *CameraSource {
	return &CameraSource{deviceID: deviceID}
}

// Open opens the camera and applies the size constraints.
// Facing is advisory; local devices are selected by index.
func (s *CameraSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := probeDevice(s.deviceID); err != nil {
		return nil, err
	}

	capture, err := gocv.OpenVideoCapture(s.deviceID)
	if err != nil {
		return nil, &DeviceError{Name: NotReadableError, Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, &DeviceError{Name: TrackStartError, Err: fmt.Errorf("device %d did not open", s.deviceID)}
	}

	if c.Width > 0 && c.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}

	return &cameraStream{capture: capture, running: true}, nil
}

// probeDevice maps OS errors on the video device node to device error names.
// It only checks on Linux where devices are exposed as /dev/videoN.
func probeDevice(id int) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	path := fmt.Sprintf("/dev/video%d", id)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err == nil {
		return f.Close()
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &DeviceError{Name: NotFoundError, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &DeviceError{Name: NotAllowedError, Err: err}
	case errors.Is(err, syscall.EBUSY):
		return &DeviceError{Name: NotReadableError, Err: err}
	default:
		return &DeviceError{Name: TrackStartError, Err: err}
	}
}

// cameraStream is a Stream backed by a GoCV VideoCapture.
type cameraStream struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	running bool
}

// Ready polls until a non-empty frame is read.
func (s *cameraStream) Ready(ctx context.Context) error {
	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()

	for {
		mat, err := s.ReadFrame()
		if err == nil {
			mat.Close()
			return nil
		}
		if errors.Is(err, ErrStreamClosed) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (s *cameraStream) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrStreamClosed
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// Close releases the device. Closing twice is a no-op.
func (s *cameraStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	return s.capture.Close()
}
