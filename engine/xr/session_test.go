package xr

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
)

type fakeRuntime struct {
	events []Event

	began, ended       int
	spaces             int
	endFrames          []bool
	acquired, released int
	destroyed          bool
	shutdown           bool

	frame     FrameState
	views     [2]View
	hands     map[Hand]math.Pose
	waitErr   error
	createErr error
}

func newFakeRuntime() *fakeRuntime {
	left := View{Pose: math.IdentityPose(), Fov: math.SymmetricFov(mgl32.DegToRad(90), 1)}
	right := left
	left.Pose.Position = mgl32.Vec3{-0.032, 1.6, 0}
	right.Pose.Position = mgl32.Vec3{0.032, 1.6, 0}
	return &fakeRuntime{
		frame: FrameState{PredictedDisplayTime: 1000, ShouldRender: true},
		views: [2]View{left, right},
		hands: map[Hand]math.Pose{
			HAND_LEFT: {Position: mgl32.Vec3{-0.2, 1, -0.3}, Orientation: mgl32.QuatIdent()},
		},
	}
}

func (f *fakeRuntime) push(states ...RuntimeState) {
	for _, s := range states {
		f.events = append(f.events, Event{Type: EVENT_TYPE_SESSION_STATE_CHANGED, State: s})
	}
}

func (f *fakeRuntime) Initialize() error                  { return nil }
func (f *fakeRuntime) VulkanInstanceExtensions() []string { return nil }
func (f *fakeRuntime) VulkanDeviceExtensions() []string   { return nil }
func (f *fakeRuntime) VulkanPhysicalDevice(vk.Instance) (vk.PhysicalDevice, error) {
	return nil, nil
}
func (f *fakeRuntime) CreateSession(GraphicsBinding) error { return f.createErr }
func (f *fakeRuntime) PollEvent() (Event, bool) {
	if len(f.events) == 0 {
		return Event{}, false
	}
	e := f.events[0]
	f.events = f.events[1:]
	return e, true
}
func (f *fakeRuntime) BeginSession() error         { f.began++; return nil }
func (f *fakeRuntime) EndSession() error           { f.ended++; return nil }
func (f *fakeRuntime) CreateReferenceSpace() error { f.spaces++; return nil }
func (f *fakeRuntime) DestroyReferenceSpace()      { f.spaces-- }
func (f *fakeRuntime) WaitFrame() (FrameState, error) {
	return f.frame, f.waitErr
}
func (f *fakeRuntime) BeginFrame() error { return nil }
func (f *fakeRuntime) EndFrame(displayTime int64, views [2]View, shouldRender bool) error {
	f.endFrames = append(f.endFrames, shouldRender)
	return nil
}
func (f *fakeRuntime) LocateViews(int64) ([2]View, error)      { return f.views, nil }
func (f *fakeRuntime) RecommendedViewExtent() (uint32, uint32) { return 1440, 1584 }
func (f *fakeRuntime) SwapchainFormat() vk.Format              { return vk.FormatR8g8b8a8Srgb }
func (f *fakeRuntime) CreateSwapchain(w, h uint32) ([]vk.Image, error) {
	return make([]vk.Image, 3), nil
}
func (f *fakeRuntime) AcquireSwapchainImage() (uint32, error) { f.acquired++; return 1, nil }
func (f *fakeRuntime) ReleaseSwapchainImage() error           { f.released++; return nil }
func (f *fakeRuntime) HandPose(hand Hand, _ int64) (math.Pose, bool) {
	p, ok := f.hands[hand]
	return p, ok
}
func (f *fakeRuntime) StageBounds() (float32, float32, bool) { return 4, 3, true }
func (f *fakeRuntime) DestroySession()                       { f.destroyed = true }
func (f *fakeRuntime) Shutdown()                             { f.shutdown = true }

var _ Runtime = (*fakeRuntime)(nil)

func newCreatedSession(t *testing.T) (*Session, *fakeRuntime) {
	t.Helper()
	rt := newFakeRuntime()
	s := NewSession(rt)
	require.NoError(t, s.Initialize())
	require.NoError(t, s.CreateSession(GraphicsBinding{}))
	return s, rt
}

func TestSessionGatingBeforeCreate(t *testing.T) {
	s := NewSession(newFakeRuntime())

	_, ok := s.BeginFrame()
	assert.False(t, ok)
	_, ok = s.GetCameraData(0.01, 100)
	assert.False(t, ok)
	assert.False(t, s.EndFrame())
	_, ok = s.GetNextSwapchainImage()
	assert.False(t, ok)
	assert.False(t, s.ReleaseSwapchainImage())
	_, _, ok = s.GetSwapchainDimensions()
	assert.False(t, ok)
	_, ok = s.GetHandTransform(HAND_LEFT)
	assert.False(t, ok)
	_, _, ok = s.GetSpaceDimensions()
	assert.False(t, ok)
	assert.False(t, s.DestroySession())

	require.NoError(t, s.Initialize())
	_, ok = s.BeginFrame()
	assert.False(t, ok, "an initialized HMD without a session cannot begin frames")
}

func TestCreateSessionRequiresHMD(t *testing.T) {
	s := NewSession(newFakeRuntime())
	err := s.CreateSession(GraphicsBinding{})
	assert.ErrorIs(t, err, core.ErrInvalidFrameState)
	assert.Equal(t, SESSION_STATE_UNINITIALIZED, s.State())
}

func TestCreateSessionFailure(t *testing.T) {
	rt := newFakeRuntime()
	rt.createErr = errors.New("no device")
	s := NewSession(rt)
	require.NoError(t, s.Initialize())
	assert.Error(t, s.CreateSession(GraphicsBinding{}))
	assert.Equal(t, SESSION_STATE_HMD_READY, s.State())
}

func TestSessionCreated(t *testing.T) {
	s, _ := newCreatedSession(t)
	assert.Equal(t, SESSION_STATE_SESSION_CREATED, s.State())
	assert.Len(t, s.SwapchainImages(), 3)

	w, h, ok := s.GetSwapchainDimensions()
	require.True(t, ok)
	assert.Equal(t, uint32(1440), w)
	assert.Equal(t, uint32(1584), h)
}

func TestSessionStartsOnlyWhenRequested(t *testing.T) {
	s, rt := newCreatedSession(t)

	rt.push(RUNTIME_STATE_IDLE, RUNTIME_STATE_READY)
	s.Update()
	assert.Equal(t, 0, rt.began)
	assert.Equal(t, SESSION_STATE_IDLE, s.State())

	s.RequestStartSession()
	rt.push(RUNTIME_STATE_READY, RUNTIME_STATE_SYNCHRONIZED, RUNTIME_STATE_VISIBLE, RUNTIME_STATE_FOCUSED)
	s.Update()
	assert.Equal(t, 1, rt.began)
	assert.Equal(t, 1, rt.spaces)
	assert.Equal(t, SESSION_STATE_RUNNING, s.State())
	assert.True(t, s.SessionRunning())
	assert.Equal(t, RUNTIME_STATE_FOCUSED, s.RuntimeState())
}

func TestSessionStopping(t *testing.T) {
	s, rt := newCreatedSession(t)
	s.RequestStartSession()
	rt.push(RUNTIME_STATE_READY, RUNTIME_STATE_FOCUSED)
	s.Update()

	// Stopping while a run is still requested keeps the session alive.
	rt.push(RUNTIME_STATE_STOPPING)
	s.Update()
	assert.Equal(t, 0, rt.ended)
	assert.True(t, s.SessionRunning())

	s.RequestEndSession()
	rt.push(RUNTIME_STATE_STOPPING, RUNTIME_STATE_IDLE)
	s.Update()
	assert.Equal(t, 1, rt.ended)
	assert.Equal(t, 0, rt.spaces)
	assert.Equal(t, SESSION_STATE_IDLE, s.State())
	assert.False(t, s.SessionRunning())
}

func TestSessionExitFiresQuit(t *testing.T) {
	core.EventInitialize()
	quit := 0
	listener := new(int)
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, listener, func(core.EventContext, interface{}) bool {
		quit++
		return true
	})
	defer core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, listener)

	var transitions []core.SessionStateEvent
	core.EventRegister(core.EVENT_CODE_SESSION_STATE_CHANGED, listener, func(ctx core.EventContext, _ interface{}) bool {
		transitions = append(transitions, *ctx.Data.(*core.SessionStateEvent))
		return false
	})
	defer core.EventUnregister(core.EVENT_CODE_SESSION_STATE_CHANGED, listener)

	s, rt := newCreatedSession(t)
	rt.push(RUNTIME_STATE_IDLE, RUNTIME_STATE_EXITING)
	rt.events = append(rt.events, Event{Type: EVENT_TYPE_INSTANCE_LOSS_PENDING})
	s.Update()

	assert.True(t, s.ShouldExit())
	assert.Equal(t, 1, quit)
	require.Len(t, transitions, 2)
	assert.Equal(t, uint32(RUNTIME_STATE_IDLE), transitions[1].Previous)
	assert.Equal(t, uint32(RUNTIME_STATE_EXITING), transitions[1].Current)
}

func TestFrameProtocol(t *testing.T) {
	s, rt := newCreatedSession(t)

	assert.False(t, s.EndFrame(), "EndFrame without BeginFrame")

	shouldRender, ok := s.BeginFrame()
	require.True(t, ok)
	assert.True(t, shouldRender)

	cam, ok := s.GetCameraData(0.01, 100)
	require.True(t, ok)
	assert.InDelta(t, 0.032, cam.View[0].At(0, 3), 1e-6)
	assert.InDelta(t, -0.032, cam.View[1].At(0, 3), 1e-6)
	assert.Equal(t, mgl32.Vec4{0.032, 1.6, 0, 1}, cam.Position[1])
	assert.Equal(t, math.ProjectionFov(rt.views[0].Fov, 0.01, 100), cam.Projection[0])

	index, ok := s.GetNextSwapchainImage()
	require.True(t, ok)
	assert.Equal(t, uint32(1), index)
	assert.True(t, s.ReleaseSwapchainImage())
	assert.True(t, s.EndFrame())

	rt.frame.ShouldRender = false
	shouldRender, ok = s.BeginFrame()
	require.True(t, ok)
	assert.False(t, shouldRender)
	assert.True(t, s.EndFrame())

	assert.Equal(t, []bool{true, false}, rt.endFrames)
}

func TestBeginFrameWaitFailure(t *testing.T) {
	s, rt := newCreatedSession(t)
	rt.waitErr = errors.New("lost")
	_, ok := s.BeginFrame()
	assert.False(t, ok)
	assert.False(t, s.EndFrame())
}

func TestHandAndStage(t *testing.T) {
	s, _ := newCreatedSession(t)

	m, ok := s.GetHandTransform(HAND_LEFT)
	require.True(t, ok)
	assert.Equal(t, mgl32.Translate3D(-0.2, 1, -0.3), m)

	_, ok = s.GetHandTransform(HAND_RIGHT)
	assert.False(t, ok, "untracked hand")

	w, d, ok := s.GetSpaceDimensions()
	require.True(t, ok)
	assert.Equal(t, float32(4), w)
	assert.Equal(t, float32(3), d)
}

func TestDestroyAndShutdown(t *testing.T) {
	s, rt := newCreatedSession(t)
	s.RequestStartSession()
	rt.push(RUNTIME_STATE_READY)
	s.Update()

	assert.True(t, s.DestroySession())
	assert.True(t, rt.destroyed)
	assert.Equal(t, 0, rt.spaces)
	assert.Equal(t, SESSION_STATE_DESTROYED, s.State())
	assert.False(t, s.DestroySession())

	_, ok := s.BeginFrame()
	assert.False(t, ok)

	s.Shutdown()
	assert.True(t, rt.shutdown)
	assert.Equal(t, SESSION_STATE_UNINITIALIZED, s.State())
}
