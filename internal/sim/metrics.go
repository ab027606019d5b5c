package sim

import "math"

// Metric observes one sample per integration step and reduces to a
// single value at the end of a mission.
type Metric interface {
	Name() string
	Observe(altitude, goalAltitude, thrust float64)
	Value() float64
}

// ControlEffort averages the absolute thrust command, a proxy for
// energy spent over the mission.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(_, _, thrust float64) {
	c.sum += math.Abs(thrust)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

// TrackingError is the root-mean-square altitude error against the
// goal altitude.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (e *TrackingError) Name() string { return "tracking_rms" }

func (e *TrackingError) Observe(altitude, goalAltitude, _ float64) {
	d := altitude - goalAltitude
	e.sumSq += d * d
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

// Settled reports the fraction of samples within the band around the
// goal altitude.
type Settled struct {
	band    float64
	inBand  int
	samples int
}

func NewSettled(band float64) *Settled { return &Settled{band: band} }

func (s *Settled) Name() string { return "settled_fraction" }

func (s *Settled) Observe(altitude, goalAltitude, _ float64) {
	s.samples++
	if math.Abs(altitude-goalAltitude) <= s.band {
		s.inBand++
	}
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.inBand) / float64(s.samples)
}
