package geom

// mat4 is a homogeneous 4x4 transform, row-major.
type mat4 [4][4]float64

func identityMat4() mat4 {
	return mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// rotationMat4 builds the homogeneous rotation matrix of q.
func rotationMat4(q Quat) mat4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return mat4{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y), 0},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x), 0},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y), 0},
		{0, 0, 0, 1},
	}
}

// translationMat4 builds the homogeneous translation matrix of v.
func translationMat4(v Vec3) mat4 {
	m := identityMat4()
	m[0][3] = v.X
	m[1][3] = v.Y
	m[2][3] = v.Z
	return m
}

func (m mat4) mul(other mat4) mat4 {
	var out mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += m[i][k] * other[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (m mat4) apply(v [4]float64) [4]float64 {
	var out [4]float64
	for i := 0; i < 4; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2] + m[i][3]*v[3]
	}
	return out
}

// ToBodyFrame expresses the goal position in the vehicle's body frame and
// returns it together with the current and goal heading angles.
//
// The transform is the inverse rigid transform of current: the inverse
// rotation composed with the negated translation, applied to the
// homogeneous goal position. The result is normalized by the homogeneous
// component, which the matrix math carries through even though it is 1
// for rigid transforms.
func ToBodyFrame(current, goal Pose) (offset Vec3, currentYaw, goalYaw float64) {
	rot := rotationMat4(current.Orientation.Inverse())
	trans := translationMat4(current.Position.Scale(-1))

	target := rot.mul(trans).apply([4]float64{
		goal.Position.X,
		goal.Position.Y,
		goal.Position.Z,
		1,
	})

	offset = Vec3{
		X: target[0] / target[3],
		Y: target[1] / target[3],
		Z: target[2] / target[3],
	}
	return offset, current.Orientation.Yaw(), goal.Orientation.Yaw()
}
