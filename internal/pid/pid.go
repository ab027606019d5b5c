package pid

import "time"

// Loop is a single-axis proportional-integral-derivative controller with
// output clamping. One instance drives one command axis.
//
// The accumulated integral term is deliberately not clamped; only the
// final sum is. Under sustained saturation the integral can therefore
// still wind up. Callers that hand off between open-loop and closed-loop
// control compensate through SeedIntegral.
type Loop struct {
	kp, ki, kd float64
	min, max   float64
	name       string

	integral float64
	prevErr  float64
	prevTime time.Time
	first    bool

	now func() time.Time
}

// New returns a loop with the given gains and output range. The name
// identifies the axis in logs and tests.
func New(kp, ki, kd, min, max float64, name string) *Loop {
	return &Loop{
		kp:    kp,
		ki:    ki,
		kd:    kd,
		min:   min,
		max:   max,
		name:  name,
		first: true,
		now:   time.Now,
	}
}

// Update computes the clamped control output for the current error
// setpoint − measurement. The timestep is wall-clock time since the
// previous Update on this instance; the first call after New or Reset
// contributes no derivative or integral term.
func (l *Loop) Update(setpoint, measurement float64) float64 {
	err := setpoint - measurement
	t := l.now()

	// First call since New or Reset: the timestep is undefined, so the
	// derivative is skipped and nothing accumulates. A seeded integral
	// still contributes.
	if l.first {
		l.prevErr = err
		l.prevTime = t
		l.first = false
		return clamp(l.kp*err+l.ki*l.integral, l.min, l.max)
	}

	dt := t.Sub(l.prevTime).Seconds()
	if dt <= 0 {
		return clamp(l.kp*err+l.ki*l.integral, l.min, l.max)
	}

	l.integral += err * dt
	derivative := (err - l.prevErr) / dt

	l.prevErr = err
	l.prevTime = t

	return clamp(l.kp*err+l.ki*l.integral+l.kd*derivative, l.min, l.max)
}

// Reset clears the integral accumulator and previous-error state. Gains
// and output limits are untouched.
func (l *Loop) Reset() {
	l.integral = 0
	l.prevErr = 0
	l.first = true
}

// SeedIntegral overwrites the integral accumulator. Used once per flight,
// at the takeoff handoff, so the first closed-loop output matches the
// last open-loop thrust instead of stepping.
func (l *Loop) SeedIntegral(v float64) {
	l.integral = v
}

// Ki returns the integral gain. The takeoff handoff divides the ramped
// thrust by it to compute the seed value.
func (l *Loop) Ki() float64 { return l.ki }

// Integral returns the current accumulator value.
func (l *Loop) Integral() float64 { return l.integral }

// Name returns the axis label given at construction.
func (l *Loop) Name() string { return l.name }

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
