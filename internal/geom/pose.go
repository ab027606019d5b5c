package geom

import "math"

// Vec3 is a point or offset in three-dimensional space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vec3) Scale(factor float64) Vec3 {
	return Vec3{v.X * factor, v.Y * factor, v.Z * factor}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Quat is a rotation quaternion in (x, y, z, w) component order.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity returns the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

// FromYaw builds a pure yaw rotation about the world Z axis.
func FromYaw(yaw float64) Quat {
	return Quat{Z: math.Sin(yaw / 2), W: math.Cos(yaw / 2)}
}

// Inverse returns the reverse rotation. For non-unit quaternions the
// conjugate is scaled by the inverse squared norm.
func (q Quat) Inverse() Quat {
	n := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if n == 0 {
		return Identity()
	}
	return Quat{-q.X / n, -q.Y / n, -q.Z / n, q.W / n}
}

// Yaw extracts the heading angle from the roll-pitch-yaw decomposition
// of q. Roll and pitch are discarded; only yaw drives the controller.
func (q Quat) Yaw() float64 {
	return math.Atan2(2*(q.W*q.Z+q.X*q.Y), 1-2*(q.Y*q.Y+q.Z*q.Z))
}

// Pose is a world-frame position and orientation pair. It is the wire
// format for both the vehicle pose feed and the goal feed.
type Pose struct {
	Position    Vec3 `json:"position"`
	Orientation Quat `json:"orientation"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: Identity()}
}
