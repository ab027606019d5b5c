// Package sim provides a point-mass quadrotor and a closed-loop harness
// that flies the controller against it in process, without a broker.
package sim

import (
	"math"

	"github.com/san-kum/flightcore/internal/flight"
	"github.com/san-kum/flightcore/internal/geom"
)

// Quadrotor is a simplified vehicle model. Lateral velocity commands are
// tracked with a first-order response; the vertical axis integrates the
// raw thrust command against gravity, matching the actuator-unit range
// the controller emits on linear Z.
type Quadrotor struct {
	Mass        float64
	Gravity     float64
	HoverThrust float64 // actuator units that balance gravity
	Drag        float64
	VelTau      float64 // lateral velocity response time constant

	position geom.Vec3
	yaw      float64
	velocity geom.Vec3
}

// NewQuadrotor returns a vehicle at rest on the ground at the origin.
func NewQuadrotor() *Quadrotor {
	return &Quadrotor{
		Mass:        0.03,
		Gravity:     9.81,
		HoverThrust: 36000,
		Drag:        0.9,
		VelTau:      0.3,
	}
}

// Step advances the vehicle by dt seconds under the given command.
func (q *Quadrotor) Step(cmd flight.Command, dt float64) {
	// Vertical: thrust actuator units against gravity.
	accel := q.Gravity*(cmd.Linear.Z/q.HoverThrust-1) - q.Drag*q.velocity.Z
	q.velocity.Z += accel * dt

	// Lateral: commanded body-frame velocities, first-order tracking,
	// rotated into the world frame by the current heading.
	sin, cos := math.Sin(q.yaw), math.Cos(q.yaw)
	wantX := cmd.Linear.X*cos - cmd.Linear.Y*sin
	wantY := cmd.Linear.X*sin + cmd.Linear.Y*cos
	alpha := dt / (q.VelTau + dt)
	q.velocity.X += (wantX - q.velocity.X) * alpha
	q.velocity.Y += (wantY - q.velocity.Y) * alpha

	q.yaw += cmd.Angular.Z * dt

	q.position = q.position.Add(q.velocity.Scale(dt))

	// Ground contact: no sinking below the floor.
	if q.position.Z < 0 {
		q.position.Z = 0
		if q.velocity.Z < 0 {
			q.velocity.Z = 0
		}
	}
}

// Pose returns the vehicle's world-frame pose.
func (q *Quadrotor) Pose() geom.Pose {
	return geom.Pose{
		Position:    q.position,
		Orientation: geom.FromYaw(q.yaw),
	}
}

// Height returns the current altitude.
func (q *Quadrotor) Height() float64 { return q.position.Z }
