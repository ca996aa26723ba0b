// Package gesture turns per-frame hand landmarks into a continuous scale signal
// and per-hand openness state.
package gesture

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/gesturefield/internal/detector"
)

// Scale bounds and the neutral resting scale.
const (
	MinScale     = 0.5
	MaxScale     = 2.0
	NeutralScale = 1.0
)

// Geometry constants in normalized image units.
const (
	// OpenThreshold is the mean fingertip-to-wrist distance above which a hand is open.
	OpenThreshold = 0.15
	// BaseSeparation is the wrist separation that maps to ScaleAtBase.
	BaseSeparation = 0.3
	// ScaleAtBase is the raw scale produced at BaseSeparation.
	ScaleAtBase = 1.5
)

// HandState is the openness classification of one hand.
type HandState string

const (
	Unknown HandState = "unknown"
	Open    HandState = "open"
	Closed  HandState = "closed"
)

// Sample is the gesture reading for one processed frame.
type Sample struct {
	Scale     float64   `json:"scale"`
	Left      HandState `json:"left"`
	Right     HandState `json:"right"`
	BothHands bool      `json:"both_hands"`
	Timestamp time.Time `json:"timestamp"`
}

// Clamp limits v to [MinScale, MaxScale].
func Clamp(v float64) float64 {
	if v < MinScale {
		return MinScale
	}
	if v > MaxScale {
		return MaxScale
	}
	return v
}

// Openness classifies a hand by the mean distance from its fingertips to its wrist.
// A nil hand is Unknown.
func Openness(hand *detector.HandLandmarks) HandState {
	if hand == nil {
		return Unknown
	}
	if MeanReach(hand) > OpenThreshold {
		return Open
	}
	return Closed
}

// MeanReach returns the average fingertip-to-wrist distance of a hand.
func MeanReach(hand *detector.HandLandmarks) float64 {
	wrist := hand.WristPoint()
	distances := make([]float64, len(detector.Fingertips))
	for i, tip := range detector.Fingertips {
		distances[i] = detector.Distance(hand.Points[tip], wrist)
	}
	return stat.Mean(distances, nil)
}

// RawScale maps a wrist-to-wrist distance to an unsmoothed scale.
func RawScale(separation float64) float64 {
	return Clamp((separation / BaseSeparation) * ScaleAtBase)
}

// Analyzer converts detection results into smoothed gesture samples.
// It is safe for concurrent use; calls are serialized.
type Analyzer struct {
	mu       sync.Mutex
	smoother *Smoother
}

// NewAnalyzer creates an Analyzer resting at the neutral scale.
func NewAnalyzer() *Analyzer {
	return &Analyzer{smoother: NewSmoother()}
}

// Process analyzes the hands detected in one frame.
// Hands are assigned by handedness label; a repeated label is ignored.
func (a *Analyzer) Process(hands []detector.HandLandmarks, ts time.Time) Sample {
	var left, right *detector.HandLandmarks
	for i := range hands {
		h := &hands[i]
		switch h.Handedness {
		case detector.Left:
			if left == nil {
				left = h
			}
		case detector.Right:
			if right == nil {
				right = h
			}
		}
	}

	sample := Sample{
		Left:      Openness(left),
		Right:     Openness(right),
		BothHands: left != nil && right != nil,
		Timestamp: ts,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if sample.BothHands {
		separation := detector.Distance(left.WristPoint(), right.WristPoint())
		sample.Scale = a.smoother.Track(RawScale(separation))
	} else {
		sample.Scale = a.smoother.Relax()
	}

	return sample
}
