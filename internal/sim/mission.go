package sim

import (
	"context"
	"sync"
	"time"

	"github.com/san-kum/flightcore/internal/flight"
	"github.com/san-kum/flightcore/internal/geom"
)

// commandSink holds the controller's latest command for the vehicle.
// Like the real actuation layer it only ever acts on the newest value.
type commandSink struct {
	mu  sync.Mutex
	cmd flight.Command
}

func (s *commandSink) Publish(cmd flight.Command) error {
	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()
	return nil
}

func (s *commandSink) last() flight.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd
}

// MissionConfig describes a scripted demonstration flight.
type MissionConfig struct {
	Duration time.Duration // total wall-clock run time
	LandAt   time.Duration // when the land request fires
	Goal     geom.Pose     // tracking goal after takeoff
	Dt       time.Duration // vehicle integration step
}

// Result records one sample per integration step.
type Result struct {
	Times     []float64
	Altitudes []float64
	Thrusts   []float64
	States    []string
	Metrics   map[string]float64
}

// Fly runs the controller and the vehicle closed-loop in real time:
// takeoff, track the goal, land. The controller is exercised end to end
// exactly as in deployment, only with the broker replaced by direct
// calls.
func Fly(ctx context.Context, cfg MissionConfig) (*Result, error) {
	if cfg.Dt <= 0 {
		cfg.Dt = 10 * time.Millisecond
	}

	sink := &commandSink{}
	vehicle := NewQuadrotor()
	ctrl := flight.New("sim/pose", sink, flight.Options{})

	ctrl.UpdatePose(vehicle.Pose())
	ctrl.UpdateGoal(cfg.Goal)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Run(ctx)
	}()

	ctrl.RequestTakeoff()

	metrics := []Metric{NewControlEffort(), NewTrackingError(), NewSettled(0.05)}
	result := &Result{Metrics: make(map[string]float64)}
	start := time.Now()
	landed := false

	ticker := time.NewTicker(cfg.Dt)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed >= cfg.Duration {
				cancel()
				<-done
				for _, m := range metrics {
					result.Metrics[m.Name()] = m.Value()
				}
				return result, nil
			}
			if !landed && elapsed >= cfg.LandAt {
				ctrl.RequestLand()
				landed = true
			}

			cmd := sink.last()
			vehicle.Step(cmd, cfg.Dt.Seconds())
			ctrl.UpdatePose(vehicle.Pose())

			result.Times = append(result.Times, elapsed.Seconds())
			result.Altitudes = append(result.Altitudes, vehicle.Height())
			result.Thrusts = append(result.Thrusts, cmd.Linear.Z)
			result.States = append(result.States, ctrl.State().String())
			for _, m := range metrics {
				m.Observe(vehicle.Height(), cfg.Goal.Position.Z, cmd.Linear.Z)
			}
		}
	}
}
