package simulator

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/xr"
)

const maxPitch = stdmath.Pi/2 - 0.01

// TrackerInput is one frame worth of desktop input driving the fake headset.
type TrackerInput struct {
	Forward, Back bool
	Left, Right   bool
	Up, Down      bool
	// Mouse delta in pixels. Only applied while Look is held.
	MouseDX, MouseDY float32
	Look             bool
}

// HeadTracker integrates keyboard and mouse input into a head pose. Yaw
// turns around +Y and pitch around the head's local +X.
type HeadTracker struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32

	// Meters per second.
	Speed float32
	// Radians per pixel.
	Sensitivity float32
}

func NewHeadTracker(eyeHeight float32) *HeadTracker {
	return &HeadTracker{
		Position:    mgl32.Vec3{0, eyeHeight, 0},
		Speed:       1.5,
		Sensitivity: 0.0025,
	}
}

func (h *HeadTracker) Update(dt float32, in TrackerInput) {
	if in.Look {
		h.Yaw -= in.MouseDX * h.Sensitivity
		h.Pitch -= in.MouseDY * h.Sensitivity
		h.Pitch = math.Clamp(h.Pitch, -maxPitch, maxPitch)
	}

	var move mgl32.Vec3
	if in.Forward {
		move = move.Add(mgl32.Vec3{0, 0, -1})
	}
	if in.Back {
		move = move.Add(mgl32.Vec3{0, 0, 1})
	}
	if in.Left {
		move = move.Add(mgl32.Vec3{-1, 0, 0})
	}
	if in.Right {
		move = move.Add(mgl32.Vec3{1, 0, 0})
	}
	if in.Up {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if in.Down {
		move = move.Add(mgl32.Vec3{0, -1, 0})
	}
	if move.Len() == 0 {
		return
	}
	// Walking follows yaw only, so looking down does not sink the head.
	move = h.yawRotation().Rotate(move.Normalize())
	h.Position = h.Position.Add(move.Mul(h.Speed * dt))
}

func (h *HeadTracker) yawRotation() mgl32.Quat {
	return mgl32.QuatRotate(h.Yaw, mgl32.Vec3{0, 1, 0})
}

func (h *HeadTracker) Orientation() mgl32.Quat {
	return h.yawRotation().Mul(mgl32.QuatRotate(h.Pitch, mgl32.Vec3{1, 0, 0}))
}

func (h *HeadTracker) Pose() math.Pose {
	return math.Pose{Position: h.Position, Orientation: h.Orientation()}
}

// Views places the two eyes ipd apart along the head's local X axis.
func (h *HeadTracker) Views(ipd float32, fov math.Fov) [2]xr.View {
	orientation := h.Orientation()
	half := orientation.Rotate(mgl32.Vec3{ipd / 2, 0, 0})
	return [2]xr.View{
		{Pose: math.Pose{Position: h.Position.Sub(half), Orientation: orientation}, Fov: fov},
		{Pose: math.Pose{Position: h.Position.Add(half), Orientation: orientation}, Fov: fov},
	}
}

var handOffsets = [xr.HAND_COUNT]mgl32.Vec3{
	xr.HAND_LEFT:  {-0.2, -0.35, -0.4},
	xr.HAND_RIGHT: {0.2, -0.35, -0.4},
}

// HandPose holds the controllers at a fixed offset in front of the body.
func (h *HeadTracker) HandPose(hand xr.Hand) math.Pose {
	body := h.yawRotation()
	return math.Pose{
		Position:    h.Position.Add(body.Rotate(handOffsets[hand])),
		Orientation: body,
	}
}
