package flight

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Intent is one tick's worth of held movement keys. Axes are independent;
// opposing keys cancel.
type Intent struct {
	Forward bool
	Back    bool
	Left    bool
	Right   bool
	Up      bool
	Down    bool
}

// Pose is the observer's position and view direction. Yaw rotates around
// world Y, pitch is clamped to straight up/down so the view never flips.
type Pose struct {
	Pos   mgl64.Vec3
	Yaw   float64
	Pitch float64
}

// InputSource is polled once per tick by the harness loop. Implementations
// must not block.
type InputSource interface {
	Sample() (Intent, float64, float64)
}

const maxPitch = math.Pi / 2

// ApplyLook folds mouse deltas into the pose. Positive dx turns the view
// right, positive dy tilts it down, matching the usual non-inverted mouse.
func (p *Pose) ApplyLook(dx, dy, sensitivity float64) {
	p.Yaw -= dx * sensitivity
	p.Pitch -= dy * sensitivity
	if p.Pitch > maxPitch {
		p.Pitch = maxPitch
	}
	if p.Pitch < -maxPitch {
		p.Pitch = -maxPitch
	}
}

// ApplyMovement advances the pose by one tick of held keys. Horizontal axes
// follow the yaw heading only, so looking up does not slow forward flight;
// up/down always move along world Y. Axis contributions add without
// renormalizing, so diagonal flight is faster by sqrt(2). That matches how
// most debug fly-cams behave and keeps per-axis speeds predictable.
func (p *Pose) ApplyMovement(in Intent, speed, dt float64) {
	forward := mgl64.Vec3{-math.Sin(p.Yaw), 0, -math.Cos(p.Yaw)}
	right := mgl64.Vec3{-math.Sin(p.Yaw - math.Pi/2), 0, -math.Cos(p.Yaw - math.Pi/2)}

	var v mgl64.Vec3
	if in.Forward {
		v = v.Add(forward)
	}
	if in.Back {
		v = v.Sub(forward)
	}
	if in.Right {
		v = v.Add(right)
	}
	if in.Left {
		v = v.Sub(right)
	}
	if in.Up {
		v = v.Add(mgl64.Vec3{0, 1, 0})
	}
	if in.Down {
		v = v.Sub(mgl64.Vec3{0, 1, 0})
	}

	p.Pos = p.Pos.Add(v.Mul(speed * dt))
}

// LookDir is the full 3D view direction including pitch, for consumers
// that need a ray rather than a heading.
func (p *Pose) LookDir() mgl64.Vec3 {
	cp := math.Cos(p.Pitch)
	return mgl64.Vec3{
		-math.Sin(p.Yaw) * cp,
		math.Sin(p.Pitch),
		-math.Cos(p.Yaw) * cp,
	}
}

// StaticInput is an InputSource that always reports the same sample. Handy
// for tests and scripted runs.
type StaticInput struct {
	Intent Intent
	DX, DY float64
}

func (s StaticInput) Sample() (Intent, float64, float64) {
	return s.Intent, s.DX, s.DY
}
