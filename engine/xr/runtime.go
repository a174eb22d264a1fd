package xr

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/math"
)

// Runtime is the tracking and compositor provider behind a Session. A
// Runtime also satisfies vulkan.GraphicsRequirements, so the renderer can be
// created on the device the runtime composites from.
type Runtime interface {
	Initialize() error

	VulkanInstanceExtensions() []string
	VulkanDeviceExtensions() []string
	VulkanPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, error)

	CreateSession(binding GraphicsBinding) error
	// PollEvent returns the next queued event, or false when the queue is empty.
	PollEvent() (Event, bool)
	BeginSession() error
	EndSession() error
	CreateReferenceSpace() error
	DestroyReferenceSpace()

	WaitFrame() (FrameState, error)
	BeginFrame() error
	// EndFrame submits a projection layer with views when shouldRender is
	// set, and an empty frame otherwise.
	EndFrame(displayTime int64, views [2]View, shouldRender bool) error
	LocateViews(displayTime int64) ([2]View, error)

	RecommendedViewExtent() (width, height uint32)
	SwapchainFormat() vk.Format
	// CreateSwapchain returns the images of a 2-layer color swapchain.
	CreateSwapchain(width, height uint32) ([]vk.Image, error)
	AcquireSwapchainImage() (uint32, error)
	ReleaseSwapchainImage() error

	HandPose(hand Hand, displayTime int64) (math.Pose, bool)
	StageBounds() (width, depth float32, ok bool)

	// DestroySession releases every Vulkan object the runtime created on the
	// renderer's instance. Safe to call when no session exists.
	DestroySession()
	// Shutdown runs after the renderer is gone.
	Shutdown()
}
