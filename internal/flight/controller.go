package flight

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/san-kum/flightcore/internal/geom"
	"github.com/san-kum/flightcore/internal/pid"
)

const (
	// DefaultTickPeriod is the nominal control rate.
	DefaultTickPeriod = 10 * time.Millisecond

	// DefaultLatencyWarn is the pose age above which a staleness warning
	// is logged. Stale data is still used for control.
	DefaultLatencyWarn = 25 * time.Millisecond

	takeoffHeight  = 0.05  // height at which ground contact is broken
	thrustCeiling  = 50000 // ramp limit forcing the takeoff handoff
	thrustStep     = 100   // open-loop ramp increment per tick
	hoverAltitude  = 0.5   // working goal altitude after takeoff
	landingTargetZ = 0.05  // altitude goal forced during landing
	landedHeight   = 0.1   // height at or below which landing completes

	waitPollPeriod = time.Second
)

// Command is the velocity command emitted once per tick, consumed by the
// downstream actuation layer. Angular X and Y are always zero. Linear Z
// carries raw actuator units rather than a velocity.
type Command struct {
	Linear  geom.Vec3 `json:"linear"`
	Angular geom.Vec3 `json:"angular"`
}

// Sample couples a vehicle pose with its arrival timestamp.
type Sample struct {
	Pose geom.Pose
	At   time.Time
}

// Publisher consumes the command stream.
type Publisher interface {
	Publish(Command) error
}

// Options tunes loop timing. Zero values select the defaults.
type Options struct {
	TickPeriod  time.Duration
	LatencyWarn time.Duration
}

// Controller sequences the vehicle through takeoff, autonomous tracking
// and landing, converting the latest world-frame goal and vehicle pose
// into one body-frame velocity command per tick.
//
// Pose and goal updates arrive asynchronously and land in single-slot
// cells; the tick loop is the only other actor. Every error path keeps
// the loop ticking: a controller that stops commanding because of a
// sensing hiccup is worse than one commanding on stale data.
type Controller struct {
	frame string
	pub   Publisher

	pidX, pidY, pidZ, pidYaw *pid.Loop

	state  atomic.Int32
	pose   cell[Sample]
	goal   cell[geom.Pose]
	thrust float64

	tickPeriod  time.Duration
	latencyWarn time.Duration
	waitPoll    time.Duration

	now func() time.Time
}

// New returns an Idle controller subscribed (logically) to the named
// pose-source frame. Gains and output ranges per axis are fixed: the Y
// gains mirror X for the flipped body axis, Z runs in raw actuator units
// with a wide range, and yaw gains are negated.
func New(frame string, pub Publisher, opts Options) *Controller {
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = DefaultTickPeriod
	}
	if opts.LatencyWarn <= 0 {
		opts.LatencyWarn = DefaultLatencyWarn
	}
	return &Controller{
		frame:       frame,
		pub:         pub,
		pidX:        pid.New(35, 10, 0, -20, 20, "x"),
		pidY:        pid.New(-35, -10, 0, -20, 20, "y"),
		pidZ:        pid.New(4000, 3000, 2000, 10000, 60000, "z"),
		pidYaw:      pid.New(-50, 0, 0, -200, 200, "yaw"),
		tickPeriod:  opts.TickPeriod,
		latencyWarn: opts.LatencyWarn,
		waitPoll:    waitPollPeriod,
		now:         time.Now,
	}
}

// UpdatePose replaces the latest vehicle pose snapshot.
func (c *Controller) UpdatePose(p geom.Pose) {
	c.pose.store(Sample{Pose: p, At: c.now()})
}

// UpdateGoal replaces the latest goal pose snapshot.
func (c *Controller) UpdateGoal(p geom.Pose) {
	c.goal.store(p)
}

// RequestTakeoff switches to the TakingOff phase on the next tick.
func (c *Controller) RequestTakeoff() {
	log.Println("flight: takeoff requested")
	c.setState(TakingOff)
}

// RequestLand switches to the Landing phase on the next tick. Valid from
// any state.
func (c *Controller) RequestLand() {
	log.Println("flight: landing requested")
	c.setState(Landing)
}

// State returns the current flight phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Snapshot is a point-in-time view of the controller for telemetry
// surfaces. It never influences control.
type Snapshot struct {
	State    string    `json:"state"`
	HavePose bool      `json:"have_pose"`
	Pose     geom.Pose `json:"pose"`
	Goal     geom.Pose `json:"goal"`
}

// TakeSnapshot reads the latest cells without disturbing the tick loop.
func (c *Controller) TakeSnapshot() Snapshot {
	snap := Snapshot{State: c.State().String()}
	if sample, ok := c.pose.load(); ok {
		snap.HavePose = true
		snap.Pose = sample.Pose
	}
	if goal, ok := c.goal.load(); ok {
		snap.Goal = goal
	}
	return snap
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Run blocks until the first pose sample arrives, then ticks the state
// machine at the configured period until ctx is canceled. The initial
// wait is unbounded: a missing pose source is a deployment error
// surfaced through the periodic warning, not an in-loop failure.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.waitForPose(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.step(now)
		}
	}
}

func (c *Controller) waitForPose(ctx context.Context) error {
	for {
		if _, ok := c.pose.load(); ok {
			return nil
		}
		log.Printf("flight: waiting for pose on %q", c.frame)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.waitPoll):
		}
	}
}

// step runs one control tick. Single dispatch point: the phases are
// exclusive and each emits at most one command.
func (c *Controller) step(now time.Time) {
	switch c.State() {
	case TakingOff:
		c.stepTakingOff(now)
	case Automatic:
		c.stepTracking(now, false)
	case Landing:
		c.stepLanding(now)
	case Idle:
		c.publish(Command{})
	}
}

// stepTakingOff ramps open-loop thrust until ground contact breaks, then
// hands off to closed-loop control. The Z integral is seeded with
// thrust/ki so the first closed-loop output matches the last ramp value.
func (c *Controller) stepTakingOff(now time.Time) {
	sample, err := c.samplePose(now)
	if err != nil {
		log.Printf("flight: taking off: %v", err)
		return
	}

	if sample.Pose.Position.Z > takeoffHeight || c.thrust > thrustCeiling {
		c.resetLoops()
		c.pidZ.SeedIntegral(c.thrust / c.pidZ.Ki())
		c.liftGoal()
		c.setState(Automatic)
		c.thrust = 0
		return
	}

	c.thrust += thrustStep
	c.publish(Command{Linear: geom.Vec3{Z: c.thrust}})
}

// liftGoal sets the working goal altitude for the hover after takeoff,
// keeping whatever lateral and yaw goal was last supplied.
func (c *Controller) liftGoal() {
	goal, ok := c.goal.load()
	if !ok {
		goal = geom.IdentityPose()
	}
	goal.Position.Z = hoverAltitude
	c.goal.store(goal)
}

// stepTracking runs the four loops against the body-frame offset between
// the latest pose and goal. The setpoint is always zero: the controller
// drives the body-frame offset to nothing. In the landing phase the goal
// altitude is forced down regardless of the supplied goal.
func (c *Controller) stepTracking(now time.Time, landing bool) {
	sample, err := c.samplePose(now)
	if err != nil {
		log.Printf("flight: skipping tick: %v", err)
		return
	}
	c.track(sample.Pose, landing)
}

func (c *Controller) track(pose geom.Pose, landing bool) {
	goal, ok := c.goal.load()
	if !ok {
		goal = geom.IdentityPose()
	}
	if landing {
		goal.Position.Z = landingTargetZ
	}

	offset, currentYaw, goalYaw := geom.ToBodyFrame(pose, goal)

	c.publish(Command{
		Linear: geom.Vec3{
			X: c.pidX.Update(0, offset.X),
			Y: c.pidY.Update(0, offset.Y),
			Z: c.pidZ.Update(0, offset.Z),
		},
		Angular: geom.Vec3{
			Z: c.pidYaw.Update(currentYaw, goalYaw),
		},
	})
}

// stepLanding tracks with a forced low altitude goal until the vehicle
// reaches ground, then settles to Idle with a final zero command in
// place of the computed one.
func (c *Controller) stepLanding(now time.Time) {
	sample, err := c.samplePose(now)
	if err != nil {
		log.Printf("flight: landing: %v", err)
		return
	}

	if sample.Pose.Position.Z <= landedHeight {
		c.setState(Idle)
		c.publish(Command{})
		return
	}

	c.track(sample.Pose, true)
}

// samplePose returns the latest pose sample, logging a staleness warning
// when the sample age exceeds the threshold. The warning is advisory:
// stale data is still used for control.
func (c *Controller) samplePose(now time.Time) (Sample, error) {
	sample, ok := c.pose.load()
	if !ok {
		return Sample{}, ErrNoSample
	}

	if latency := now.Sub(sample.At); latency > c.latencyWarn {
		log.Printf("flight: high pose latency: %.1f ms", float64(latency.Microseconds())/1000)
	}
	return sample, nil
}

func (c *Controller) resetLoops() {
	c.pidX.Reset()
	c.pidY.Reset()
	c.pidZ.Reset()
	c.pidYaw.Reset()
}

func (c *Controller) publish(cmd Command) {
	if err := c.pub.Publish(cmd); err != nil {
		log.Printf("flight: publish error: %v", err)
	}
}
