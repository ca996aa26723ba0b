package session

import (
	"errors"
	"fmt"

	"github.com/ayusman/gesturefield/internal/capture"
)

// ErrorKind classifies session failures.
type ErrorKind string

const (
	PermissionDenied     ErrorKind = "permission_denied"
	DeviceNotFound       ErrorKind = "device_not_found"
	DeviceBusy           ErrorKind = "device_busy"
	CameraTimeout        ErrorKind = "camera_timeout"
	VideoInitError       ErrorKind = "video_init_error"
	ModelInitError       ErrorKind = "model_init_error"
	FrameProcessingError ErrorKind = "frame_processing_error"
	Unknown              ErrorKind = "unknown"
)

var messages = map[ErrorKind]string{
	PermissionDenied:     "Failed to access camera. Please grant camera permissions and try again.",
	DeviceNotFound:       "Failed to access camera. No camera found. Please connect a camera and try again.",
	DeviceBusy:           "Failed to access camera. Camera is being used by another application. Please close other apps and try again.",
	CameraTimeout:        "Camera access timeout. Please check your camera permissions and try again.",
	VideoInitError:       "Video failed to load. Please try again.",
	ModelInitError:       "Failed to initialize hand tracking model. Please try again.",
	FrameProcessingError: "Error processing frame.",
	Unknown:              "Failed to access camera. Please check your camera and try again.",
}

// ErrStopped is returned by Start when Stop ran before the session became ready.
var ErrStopped = errors.New("session stopped")

// ErrAborted is returned by Start when the caller's context ended before the
// camera was ready. The session is stopped, not failed.
var ErrAborted = errors.New("session start aborted")

// Error is a classified session failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the user-facing description of the failure.
func (e *Error) Message() string {
	if m, ok := messages[e.Kind]; ok {
		return m
	}
	return messages[Unknown]
}

// KindOf returns the kind of the first *Error in err's chain.
// It returns "" for nil and Unknown for unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// cameraError classifies an acquisition error by its device error name.
func cameraError(err error) *Error {
	var kind ErrorKind
	switch capture.DeviceErrorName(err) {
	case capture.NotAllowedError, capture.PermissionDeniedError:
		kind = PermissionDenied
	case capture.NotFoundError, capture.DevicesNotFoundError:
		kind = DeviceNotFound
	case capture.NotReadableError, capture.TrackStartError:
		kind = DeviceBusy
	default:
		kind = Unknown
	}
	return &Error{Kind: kind, Err: err}
}
