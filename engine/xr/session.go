package xr

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// Session drives the runtime lifecycle and the per-frame wait/begin/end
// protocol. Every per-frame call is a soft failure: it logs and returns false
// instead of erroring.
type Session struct {
	runtime Runtime

	state        SessionState
	runtimeState RuntimeState
	// true = running, false = stopped
	requested    bool
	spaceCreated bool
	exit         bool

	frame      FrameState
	frameBegun bool

	swapchainImages []vk.Image
	width, height   uint32
}

func NewSession(runtime Runtime) *Session {
	return &Session{
		runtime: runtime,
		state:   SESSION_STATE_UNINITIALIZED,
	}
}

func (s *Session) State() SessionState {
	return s.state
}

func (s *Session) RuntimeState() RuntimeState {
	return s.runtimeState
}

// ShouldExit is set once the runtime reports EXITING or LOSS_PENDING.
func (s *Session) ShouldExit() bool {
	return s.exit
}

// Runtime is exposed so the renderer can use it as its GraphicsRequirements.
func (s *Session) Runtime() Runtime {
	return s.runtime
}

func (s *Session) SwapchainImages() []vk.Image {
	return s.swapchainImages
}

func (s *Session) hasSession() bool {
	return s.state == SESSION_STATE_SESSION_CREATED || s.state == SESSION_STATE_IDLE || s.state == SESSION_STATE_RUNNING
}

// Initialize connects to the runtime and finds the HMD.
func (s *Session) Initialize() error {
	if s.state != SESSION_STATE_UNINITIALIZED {
		return fmt.Errorf("%w: xr already initialized (%s)", core.ErrInvalidFrameState, s.state)
	}
	if err := s.runtime.Initialize(); err != nil {
		core.LogError("failed to initialize the xr runtime: %s", err)
		return err
	}
	s.state = SESSION_STATE_HMD_READY
	core.LogInfo("HMD ready.")
	return nil
}

// CreateSession binds the runtime to the renderer's device and creates the
// stereo swapchain at the recommended eye extent.
func (s *Session) CreateSession(binding GraphicsBinding) error {
	if s.state != SESSION_STATE_HMD_READY {
		return fmt.Errorf("%w: cannot create a session in state %s", core.ErrInvalidFrameState, s.state)
	}
	if err := s.runtime.CreateSession(binding); err != nil {
		core.LogError("failed to create xr session: %s", err)
		return err
	}

	w, h := s.runtime.RecommendedViewExtent()
	images, err := s.runtime.CreateSwapchain(w, h)
	if err != nil {
		core.LogError("failed to create xr swapchain: %s", err)
		s.runtime.DestroySession()
		return err
	}
	s.swapchainImages = images
	s.width, s.height = w, h
	s.state = SESSION_STATE_SESSION_CREATED
	core.LogInfo("XR session created with %d swapchain images of %dx%d.", len(images), w, h)
	return nil
}

func (s *Session) RequestStartSession() {
	if s.requested {
		core.LogDebug("Session start has already been requested or session is already running")
	}
	s.requested = true
}

func (s *Session) RequestEndSession() {
	if !s.requested {
		core.LogDebug("Session stop has already been requested or session is already stopped")
	}
	s.requested = false
}

func (s *Session) SessionRunning() bool {
	switch s.runtimeState {
	case RUNTIME_STATE_SYNCHRONIZED, RUNTIME_STATE_VISIBLE, RUNTIME_STATE_FOCUSED, RUNTIME_STATE_STOPPING:
		return true
	}
	return false
}

// Update drains the runtime event queue.
func (s *Session) Update() {
	if s.state == SESSION_STATE_UNINITIALIZED || s.state == SESSION_STATE_DESTROYED {
		return
	}
	for {
		event, ok := s.runtime.PollEvent()
		if !ok {
			return
		}
		switch event.Type {
		case EVENT_TYPE_SESSION_STATE_CHANGED:
			s.onStateChanged(event.State)
		case EVENT_TYPE_INSTANCE_LOSS_PENDING:
			s.requestExit()
		case EVENT_TYPE_REFERENCE_SPACE_CHANGE_PENDING:
			core.LogDebug("reference space change pending")
		}
	}
}

func (s *Session) onStateChanged(state RuntimeState) {
	previous := s.runtimeState
	s.runtimeState = state
	core.LogInfo("XR session state %s -> %s", previous, state)
	core.EventFire(core.EventContext{
		Type: core.EVENT_CODE_SESSION_STATE_CHANGED,
		Data: &core.SessionStateEvent{Previous: uint32(previous), Current: uint32(state)},
	})

	switch state {
	case RUNTIME_STATE_IDLE:
		if s.state == SESSION_STATE_SESSION_CREATED {
			s.state = SESSION_STATE_IDLE
		}
	case RUNTIME_STATE_READY:
		if s.requested {
			s.start()
		}
	case RUNTIME_STATE_STOPPING:
		if !s.requested {
			s.stop()
		}
	case RUNTIME_STATE_LOSS_PENDING, RUNTIME_STATE_EXITING:
		s.requestExit()
	}
}

func (s *Session) start() {
	if err := s.runtime.BeginSession(); err != nil {
		core.LogWarn("failed to begin xr session: %s", err)
		return
	}
	if err := s.runtime.CreateReferenceSpace(); err != nil {
		core.LogWarn("failed to create stage reference space: %s", err)
		_ = s.runtime.EndSession()
		return
	}
	s.spaceCreated = true
	s.state = SESSION_STATE_RUNNING
}

func (s *Session) stop() {
	if s.spaceCreated {
		s.runtime.DestroyReferenceSpace()
		s.spaceCreated = false
	}
	if err := s.runtime.EndSession(); err != nil {
		core.LogWarn("failed to end xr session: %s", err)
	}
	s.frameBegun = false
	s.state = SESSION_STATE_IDLE
}

func (s *Session) requestExit() {
	if s.exit {
		return
	}
	s.exit = true
	core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

// BeginFrame waits for the runtime's frame pacing and begins a frame. ok is
// false when no frame was begun. EndFrame must follow a successful call even
// when shouldRender is false.
func (s *Session) BeginFrame() (shouldRender bool, ok bool) {
	if !s.hasSession() {
		core.LogDebug("No session to begin frame")
		return false, false
	}
	frame, err := s.runtime.WaitFrame()
	if err != nil {
		core.LogWarn("xr wait frame failed: %s", err)
		return false, false
	}
	if err := s.runtime.BeginFrame(); err != nil {
		core.LogWarn("xr begin frame failed: %s", err)
		return false, false
	}
	s.frame = frame
	s.frameBegun = true
	return frame.ShouldRender, true
}

// GetCameraData locates both eyes at the predicted display time of the
// current frame.
func (s *Session) GetCameraData(near, far float32) (metadata.CameraData, bool) {
	var data metadata.CameraData
	if !s.hasSession() {
		core.LogDebug("No session to get camera matrices")
		return data, false
	}
	views, err := s.runtime.LocateViews(s.frame.PredictedDisplayTime)
	if err != nil {
		core.LogWarn("xr locate views failed: %s", err)
		return data, false
	}
	for i, view := range views {
		data.View[i] = view.Pose.View()
		data.Projection[i] = math.ProjectionFov(view.Fov, near, far)
		data.Position[i] = view.Pose.Position.Vec4(1)
	}
	return data, true
}

func (s *Session) EndFrame() bool {
	if !s.hasSession() {
		core.LogDebug("No session to end frame")
		return false
	}
	if !s.frameBegun {
		core.LogDebug("EndFrame called without a matching BeginFrame")
		return false
	}
	s.frameBegun = false

	var views [2]View
	if s.frame.ShouldRender {
		located, err := s.runtime.LocateViews(s.frame.PredictedDisplayTime)
		if err != nil {
			core.LogWarn("xr locate views failed: %s", err)
			return false
		}
		views = located
	}
	if err := s.runtime.EndFrame(s.frame.PredictedDisplayTime, views, s.frame.ShouldRender); err != nil {
		core.LogWarn("xr end frame failed: %s", err)
		return false
	}
	return true
}

func (s *Session) GetNextSwapchainImage() (uint32, bool) {
	if !s.hasSession() {
		core.LogDebug("No swapchain to acquire from")
		return 0, false
	}
	index, err := s.runtime.AcquireSwapchainImage()
	if err != nil {
		core.LogWarn("xr swapchain acquire failed: %s", err)
		return 0, false
	}
	return index, true
}

func (s *Session) ReleaseSwapchainImage() bool {
	if !s.hasSession() {
		core.LogDebug("No swapchain to release to")
		return false
	}
	if err := s.runtime.ReleaseSwapchainImage(); err != nil {
		core.LogWarn("xr swapchain release failed: %s", err)
		return false
	}
	return true
}

func (s *Session) GetSwapchainDimensions() (uint32, uint32, bool) {
	if !s.hasSession() {
		core.LogDebug("No swapchain")
		return 0, 0, false
	}
	return s.width, s.height, true
}

// GetHandTransform returns the grip transform of hand in stage space. It is
// false while the hand is not tracked.
func (s *Session) GetHandTransform(hand Hand) (mgl32.Mat4, bool) {
	if !s.hasSession() || hand >= HAND_COUNT {
		core.LogDebug("No session to get hand transform")
		return mgl32.Ident4(), false
	}
	pose, ok := s.runtime.HandPose(hand, s.frame.PredictedDisplayTime)
	if !ok {
		return mgl32.Ident4(), false
	}
	return pose.Matrix(), true
}

// GetSpaceDimensions returns the stage bounds in meters.
func (s *Session) GetSpaceDimensions() (float32, float32, bool) {
	if !s.hasSession() {
		core.LogDebug("No session to get space dimensions")
		return 0, 0, false
	}
	return s.runtime.StageBounds()
}

func (s *Session) DestroySession() bool {
	if !s.hasSession() {
		core.LogDebug("No session to destroy")
		return false
	}
	if s.spaceCreated {
		s.runtime.DestroyReferenceSpace()
		s.spaceCreated = false
	}
	s.runtime.DestroySession()
	s.swapchainImages = nil
	s.frameBegun = false
	s.runtimeState = RUNTIME_STATE_UNKNOWN
	s.state = SESSION_STATE_DESTROYED
	return true
}

// Shutdown destroys any live session and releases the runtime.
func (s *Session) Shutdown() {
	if s.hasSession() {
		s.DestroySession()
	}
	if s.state != SESSION_STATE_UNINITIALIZED {
		s.runtime.Shutdown()
	}
	s.state = SESSION_STATE_UNINITIALIZED
}
