package flight

import (
	"math"
	"testing"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestPitchClamp(t *testing.T) {
	var p Pose
	p.ApplyLook(0, -10000, 0.01)
	if p.Pitch != math.Pi/2 {
		t.Fatalf("pitch = %v, want clamp at +pi/2", p.Pitch)
	}
	p.ApplyLook(0, 10000, 0.01)
	if p.Pitch != -math.Pi/2 {
		t.Fatalf("pitch = %v, want clamp at -pi/2", p.Pitch)
	}
}

func TestForwardAtZeroYawIsNegativeZ(t *testing.T) {
	var p Pose
	p.ApplyMovement(Intent{Forward: true}, 10, 0.5)
	if !approx(p.Pos.X(), 0) || !approx(p.Pos.Y(), 0) || !approx(p.Pos.Z(), -5) {
		t.Fatalf("pos = %v, want (0, 0, -5)", p.Pos)
	}
}

func TestStrafeRightAtZeroYawIsPositiveX(t *testing.T) {
	var p Pose
	p.ApplyMovement(Intent{Right: true}, 4, 1)
	if !approx(p.Pos.X(), 4) || !approx(p.Pos.Z(), 0) {
		t.Fatalf("pos = %v, want (4, 0, 0)", p.Pos)
	}
}

func TestVerticalIgnoresView(t *testing.T) {
	p := Pose{Yaw: 1.3, Pitch: 0.7}
	p.ApplyMovement(Intent{Up: true}, 2, 1)
	if !approx(p.Pos.X(), 0) || !approx(p.Pos.Y(), 2) || !approx(p.Pos.Z(), 0) {
		t.Fatalf("pos = %v, want pure +Y", p.Pos)
	}
}

func TestPitchDoesNotSlowForward(t *testing.T) {
	level := Pose{Pitch: 0}
	tilted := Pose{Pitch: 1.2}
	level.ApplyMovement(Intent{Forward: true}, 3, 1)
	tilted.ApplyMovement(Intent{Forward: true}, 3, 1)
	if !approx(level.Pos.Len(), tilted.Pos.Len()) {
		t.Fatalf("horizontal speed changed with pitch: %v vs %v", level.Pos.Len(), tilted.Pos.Len())
	}
}

func TestOpposingKeysCancel(t *testing.T) {
	var p Pose
	p.ApplyMovement(Intent{Forward: true, Back: true, Up: true, Down: true}, 5, 1)
	if p.Pos.Len() > eps {
		t.Fatalf("pos = %v, want origin", p.Pos)
	}
}

func TestDiagonalIsUnnormalized(t *testing.T) {
	var p Pose
	p.ApplyMovement(Intent{Forward: true, Right: true}, 1, 1)
	if !approx(p.Pos.Len(), math.Sqrt2) {
		t.Fatalf("diagonal displacement = %v, want sqrt(2)", p.Pos.Len())
	}
}

func TestLookDirMatchesHeading(t *testing.T) {
	p := Pose{Yaw: math.Pi / 2} // facing -X
	d := p.LookDir()
	if !approx(d.X(), -1) || !approx(d.Y(), 0) || !approx(d.Z(), 0) {
		t.Fatalf("look dir = %v, want (-1, 0, 0)", d)
	}
}
