package simulator

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/xr"
)

func TestHeadTrackerWalk(t *testing.T) {
	h := NewHeadTracker(1.6)
	h.Update(1, TrackerInput{Forward: true})
	assert.InDelta(t, -1.5, h.Position.Z(), 1e-5)
	assert.InDelta(t, 1.6, h.Position.Y(), 1e-5)

	// Turned 90 degrees left, forward walks towards -X.
	h = NewHeadTracker(1.6)
	h.Yaw = mgl32.DegToRad(90)
	h.Update(1, TrackerInput{Forward: true})
	assert.InDelta(t, -1.5, h.Position.X(), 1e-5)
	assert.InDelta(t, 0, h.Position.Z(), 1e-5)
}

func TestHeadTrackerLookClampsPitch(t *testing.T) {
	h := NewHeadTracker(1.6)
	h.Update(0.016, TrackerInput{MouseDY: 100, MouseDX: 100})
	assert.Zero(t, h.Yaw, "mouse ignored without look")

	h.Update(0.016, TrackerInput{Look: true, MouseDY: -100000})
	assert.InDelta(t, maxPitch, h.Pitch, 1e-5)

	// Looking straight up does not lift the head when walking.
	h.Update(1, TrackerInput{Forward: true})
	assert.InDelta(t, 1.6, h.Position.Y(), 1e-5)
}

func TestHeadTrackerViews(t *testing.T) {
	h := NewHeadTracker(1.6)
	fov := math.SymmetricFov(mgl32.DegToRad(90), 1)
	views := h.Views(0.064, fov)

	assert.InDelta(t, -0.032, views[0].Pose.Position.X(), 1e-6)
	assert.InDelta(t, 0.032, views[1].Pose.Position.X(), 1e-6)
	assert.Equal(t, fov, views[1].Fov)

	h.Yaw = mgl32.DegToRad(90)
	views = h.Views(0.064, fov)
	// Facing -X, the left eye sits at +Z.
	assert.InDelta(t, 0.032, views[0].Pose.Position.Z(), 1e-6)
}

func TestHandPoseFollowsBody(t *testing.T) {
	h := NewHeadTracker(1.6)
	left := h.HandPose(xr.HAND_LEFT)
	right := h.HandPose(xr.HAND_RIGHT)
	assert.InDelta(t, -0.2, left.Position.X(), 1e-6)
	assert.InDelta(t, 0.2, right.Position.X(), 1e-6)
	assert.InDelta(t, 1.25, left.Position.Y(), 1e-6)
}

func drain(l *lifecycle) []xr.RuntimeState {
	var states []xr.RuntimeState
	for {
		e, ok := l.poll()
		if !ok {
			return states
		}
		states = append(states, e.State)
	}
}

func TestLifecycle(t *testing.T) {
	var l lifecycle
	l.sessionCreated()
	assert.Equal(t, []xr.RuntimeState{xr.RUNTIME_STATE_IDLE, xr.RUNTIME_STATE_READY}, drain(&l))
	assert.False(t, l.shouldRender())

	l.sessionBegun()
	assert.Equal(t, []xr.RuntimeState{
		xr.RUNTIME_STATE_SYNCHRONIZED, xr.RUNTIME_STATE_VISIBLE, xr.RUNTIME_STATE_FOCUSED,
	}, drain(&l))
	assert.True(t, l.shouldRender())

	l.requestClose()
	l.requestClose()
	states := drain(&l)
	require.Len(t, states, 4)
	assert.Equal(t, xr.RUNTIME_STATE_STOPPING, states[2])
	assert.Equal(t, xr.RUNTIME_STATE_EXITING, states[3])
	assert.Empty(t, drain(&l), "exiting is reported once")
}

func TestLifecycleCloseWhileIdle(t *testing.T) {
	var l lifecycle
	l.sessionCreated()
	l.requestClose()
	assert.Equal(t, []xr.RuntimeState{
		xr.RUNTIME_STATE_IDLE, xr.RUNTIME_STATE_READY, xr.RUNTIME_STATE_EXITING,
	}, drain(&l))
}

func TestFramePacer(t *testing.T) {
	p := newFramePacer(100)
	require.Equal(t, int64(10_000_000), p.period)

	sleep, display := p.wait(0)
	assert.Equal(t, int64(0), sleep)
	assert.Equal(t, int64(10_000_000), display)

	sleep, display = p.wait(4_000_000)
	assert.Equal(t, int64(6_000_000), sleep)
	assert.Equal(t, int64(20_000_000), display)

	// Late by several periods: no sleep, schedule restarts from now.
	sleep, display = p.wait(55_000_000)
	assert.Equal(t, int64(0), sleep)
	assert.Equal(t, int64(65_000_000), display)
}
