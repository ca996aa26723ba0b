// Package detector provides hand detection interfaces and types for gesture control.
package detector

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Fingertips lists the five fingertip landmark indices, thumb first.
var Fingertips = [5]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Handedness labels as reported by the detection model.
const (
	Left  = "Left"
	Right = "Right"
)

// ErrLandmarkCount is returned when a detection does not carry exactly 21 points.
var ErrLandmarkCount = errors.New("hand must have exactly 21 landmarks")

// Point3D represents a normalized 3D point with x, y in [0,1] image space.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point to a gonum vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

// HandLandmarks represents the 21 hand landmarks of one detected hand in one frame.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// WristPoint returns the wrist landmark, used as a proxy for palm position.
func (h *HandLandmarks) WristPoint() Point3D {
	return h.Points[Wrist]
}

// NewHandLandmarks builds a HandLandmarks from a point slice.
// It fails unless the slice holds exactly NumLandmarks points.
func NewHandLandmarks(points []Point3D, handedness string, score float64) (HandLandmarks, error) {
	if len(points) != NumLandmarks {
		return HandLandmarks{}, fmt.Errorf("%w: got %d", ErrLandmarkCount, len(points))
	}

	h := HandLandmarks{Handedness: handedness, Score: score}
	copy(h.Points[:], points)
	return h, nil
}
