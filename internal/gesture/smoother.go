package gesture

// Blend factors of the dual-rate filter.
const (
	// TrackRate pulls the value toward the raw scale while both hands are visible.
	TrackRate = 0.1
	// RelaxRate pulls the value back to NeutralScale otherwise.
	RelaxRate = 0.05
)

// Smoother is a dual-rate exponential moving average.
// It follows the raw scale quickly when both hands are tracked and
// drifts slowly back to neutral when they are not.
type Smoother struct {
	value float64
}

// NewSmoother returns a Smoother at NeutralScale.
func NewSmoother() *Smoother {
	return &Smoother{value: NeutralScale}
}

// Track advances one frame toward raw and returns the new value.
func (s *Smoother) Track(raw float64) float64 {
	s.value += (raw - s.value) * TrackRate
	return s.value
}

// Relax advances one frame toward NeutralScale and returns the new value.
func (s *Smoother) Relax() float64 {
	s.value += (NeutralScale - s.value) * RelaxRate
	return s.value
}
