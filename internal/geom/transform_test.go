package geom

import (
	"math"
	"testing"
)

const eps = 1e-9

func vecClose(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestToBodyFrameIdentity(t *testing.T) {
	p := Pose{Position: Vec3{1.5, -2.0, 0.7}, Orientation: FromYaw(0.9)}

	offset, currentYaw, goalYaw := ToBodyFrame(p, p)

	if !vecClose(offset, Vec3{}) {
		t.Errorf("expected zero offset, got %+v", offset)
	}
	if math.Abs(currentYaw-goalYaw) > eps {
		t.Errorf("expected equal yaws, got %f and %f", currentYaw, goalYaw)
	}
}

func TestToBodyFrameTranslation(t *testing.T) {
	current := IdentityPose()
	goal := Pose{Position: Vec3{X: 1}, Orientation: Identity()}

	offset, currentYaw, goalYaw := ToBodyFrame(current, goal)

	if !vecClose(offset, Vec3{X: 1}) {
		t.Errorf("expected offset (1,0,0), got %+v", offset)
	}
	if currentYaw != 0 || goalYaw != 0 {
		t.Errorf("expected zero yaws, got %f and %f", currentYaw, goalYaw)
	}
}

func TestToBodyFrameRotated(t *testing.T) {
	// Vehicle at origin facing +Y (yaw 90°); a goal one unit ahead on the
	// world Y axis sits one unit along the body X axis.
	current := Pose{Orientation: FromYaw(math.Pi / 2)}
	goal := Pose{Position: Vec3{Y: 1}, Orientation: Identity()}

	offset, currentYaw, _ := ToBodyFrame(current, goal)

	if math.Abs(offset.X-1) > 1e-9 || math.Abs(offset.Y) > 1e-9 {
		t.Errorf("expected offset (1,0,0), got %+v", offset)
	}
	if math.Abs(currentYaw-math.Pi/2) > eps {
		t.Errorf("expected current yaw pi/2, got %f", currentYaw)
	}
}

func TestToBodyFrameTranslatedAndRotated(t *testing.T) {
	current := Pose{Position: Vec3{1, 1, 0.5}, Orientation: FromYaw(math.Pi)}
	goal := Pose{Position: Vec3{2, 1, 0.5}, Orientation: FromYaw(math.Pi)}

	offset, _, _ := ToBodyFrame(current, goal)

	// One unit in front in world X is one unit behind a vehicle facing -X.
	if !vecClose(offset, Vec3{X: -1}) {
		t.Errorf("expected offset (-1,0,0), got %+v", offset)
	}
}

func TestYaw(t *testing.T) {
	tests := []struct {
		name string
		yaw  float64
	}{
		{"zero", 0},
		{"quarter", math.Pi / 2},
		{"negative", -math.Pi / 3},
		{"small", 0.01},
	}

	for _, tt := range tests {
		q := FromYaw(tt.yaw)
		if got := q.Yaw(); math.Abs(got-tt.yaw) > eps {
			t.Errorf("%s: expected yaw %f, got %f", tt.name, tt.yaw, got)
		}
	}
}

func TestInverseUndoesRotation(t *testing.T) {
	q := FromYaw(1.2)
	m := rotationMat4(q).mul(rotationMat4(q.Inverse()))

	id := identityMat4()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(m[i][j]-id[i][j]) > eps {
				t.Fatalf("rotation times inverse not identity at (%d,%d): %f", i, j, m[i][j])
			}
		}
	}
}
