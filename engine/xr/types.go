package xr

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/math"
)

type SessionState uint32

const (
	SESSION_STATE_UNINITIALIZED SessionState = iota
	SESSION_STATE_HMD_READY
	SESSION_STATE_SESSION_CREATED
	SESSION_STATE_IDLE
	SESSION_STATE_RUNNING
	SESSION_STATE_DESTROYED
)

func (s SessionState) String() string {
	switch s {
	case SESSION_STATE_UNINITIALIZED:
		return "uninitialized"
	case SESSION_STATE_HMD_READY:
		return "hmd-ready"
	case SESSION_STATE_SESSION_CREATED:
		return "session-created"
	case SESSION_STATE_IDLE:
		return "idle"
	case SESSION_STATE_RUNNING:
		return "running"
	case SESSION_STATE_DESTROYED:
		return "destroyed"
	}
	return "invalid"
}

// RuntimeState is the lifecycle state reported by the runtime. The values
// follow the OpenXR session states.
type RuntimeState uint32

const (
	RUNTIME_STATE_UNKNOWN RuntimeState = iota
	RUNTIME_STATE_IDLE
	RUNTIME_STATE_READY
	RUNTIME_STATE_SYNCHRONIZED
	RUNTIME_STATE_VISIBLE
	RUNTIME_STATE_FOCUSED
	RUNTIME_STATE_STOPPING
	RUNTIME_STATE_LOSS_PENDING
	RUNTIME_STATE_EXITING
)

func (s RuntimeState) String() string {
	switch s {
	case RUNTIME_STATE_UNKNOWN:
		return "unknown"
	case RUNTIME_STATE_IDLE:
		return "idle"
	case RUNTIME_STATE_READY:
		return "ready"
	case RUNTIME_STATE_SYNCHRONIZED:
		return "synchronized"
	case RUNTIME_STATE_VISIBLE:
		return "visible"
	case RUNTIME_STATE_FOCUSED:
		return "focused"
	case RUNTIME_STATE_STOPPING:
		return "stopping"
	case RUNTIME_STATE_LOSS_PENDING:
		return "loss-pending"
	case RUNTIME_STATE_EXITING:
		return "exiting"
	}
	return "invalid"
}

type EventType uint32

const (
	EVENT_TYPE_SESSION_STATE_CHANGED EventType = iota
	EVENT_TYPE_REFERENCE_SPACE_CHANGE_PENDING
	EVENT_TYPE_INSTANCE_LOSS_PENDING
)

// Event is one entry of the runtime event queue. State is only meaningful
// for EVENT_TYPE_SESSION_STATE_CHANGED.
type Event struct {
	Type  EventType
	State RuntimeState
}

type FrameState struct {
	// Nanoseconds, on the runtime clock.
	PredictedDisplayTime int64
	ShouldRender         bool
}

// View is the located pose and frustum of one eye.
type View struct {
	Pose math.Pose
	Fov  math.Fov
}

type Hand uint32

const (
	HAND_LEFT Hand = iota
	HAND_RIGHT
	HAND_COUNT
)

// GraphicsBinding hands the renderer's Vulkan objects to the runtime.
type GraphicsBinding struct {
	Instance         vk.Instance
	PhysicalDevice   vk.PhysicalDevice
	Device           vk.Device
	QueueFamilyIndex uint32
	QueueIndex       uint32
}
