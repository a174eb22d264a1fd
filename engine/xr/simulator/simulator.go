package simulator

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/platform"
	"github.com/spaghettifunk/anima-xr/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/xr"
)

const swapchainImageCount = 3

type Config struct {
	Name          string
	PreviewWidth  uint32
	PreviewHeight uint32
	EyeWidth      uint32
	EyeHeight     uint32
	// Meters.
	StageWidth float32
	StageDepth float32
	IPD        float32
	HeadHeight float32
	// Vertical field of view of each eye, in degrees.
	FovY        float32
	RefreshRate float64
}

// Simulator is a desktop xr.Runtime. A glfw window stands in for the
// headset: keyboard and mouse drive the head pose and the left eye is
// mirrored to the window.
type Simulator struct {
	config   Config
	platform *platform.Platform
	clock    *core.Clock
	pacer    *framePacer
	head     *HeadTracker
	life     lifecycle
	pumped   bool
	lastTime float64

	instance vk.Instance
	surface  vk.Surface
	context  *vulkan.VulkanContext
	preview  *vulkan.VulkanSwapchain

	images       []*vulkan.VulkanImage
	nextImage    uint32
	acquired     int
	released     int
	spaceCreated bool
}

func New(config Config) *Simulator {
	return &Simulator{
		config:   config,
		clock:    core.NewClock(),
		pacer:    newFramePacer(config.RefreshRate),
		head:     NewHeadTracker(config.HeadHeight),
		surface:  vk.NullSurface,
		acquired: -1,
		released: -1,
	}
}

func (s *Simulator) Initialize() error {
	p, err := platform.New()
	if err != nil {
		return err
	}
	if err := p.Init(); err != nil {
		return err
	}
	if err := p.Startup(s.config.Name, 100, 100, s.config.PreviewWidth, s.config.PreviewHeight); err != nil {
		_ = p.Shutdown()
		return err
	}
	p.OnResize(func(width, height uint32) {
		if s.preview != nil {
			s.preview.Resized()
		}
	})
	s.platform = p
	s.clock.Start()
	core.LogInfo("Simulated HMD: %dx%d per eye, %.0f Hz.", s.config.EyeWidth, s.config.EyeHeight, s.config.RefreshRate)
	return nil
}

func (s *Simulator) VulkanInstanceExtensions() []string {
	return s.platform.RequiredInstanceExtensions()
}

func (s *Simulator) VulkanDeviceExtensions() []string {
	return []string{"VK_KHR_swapchain"}
}

// VulkanPhysicalDevice picks the first GPU whose graphics queue can present
// to the preview window.
func (s *Simulator) VulkanPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, error) {
	if s.surface == vk.NullSurface {
		surface, err := s.platform.CreateSurface(instance)
		if err != nil {
			return nil, err
		}
		s.instance = instance
		s.surface = surface
	}

	var count uint32
	if err := vulkan.VulkanCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if count > 0 {
		if err := vulkan.VulkanCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
			return nil, err
		}
	}

	var fallback vk.PhysicalDevice
	for _, pd := range devices {
		family, ok := graphicsFamily(pd)
		if !ok {
			continue
		}
		var supported vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(pd, family, s.surface, &supported)
		if supported == vk.False {
			continue
		}
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		if properties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			return pd, nil
		}
		if fallback == nil {
			fallback = pd
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: no GPU can present to the simulator window", core.ErrDeviceUnsuitable)
	}
	return fallback, nil
}

func graphicsFamily(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i := range families {
		families[i].Deref()
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func (s *Simulator) CreateSession(binding xr.GraphicsBinding) error {
	if s.surface == vk.NullSurface {
		return fmt.Errorf("%w: simulator surface was not created during device selection", core.ErrInvalidFrameState)
	}
	context, err := vulkan.NewExternalContext(binding.Instance, binding.PhysicalDevice, binding.Device, binding.QueueFamilyIndex, binding.QueueIndex)
	if err != nil {
		return err
	}
	s.context = context

	w, h := s.platform.FramebufferSize()
	preview, err := vulkan.SwapchainCreate(context, s.surface, w, h)
	if err != nil {
		vulkan.DestroyExternalContext(context)
		s.context = nil
		return err
	}
	s.preview = preview
	s.life.sessionCreated()
	return nil
}

func (s *Simulator) PollEvent() (xr.Event, bool) {
	if !s.pumped {
		s.platform.PumpMessages()
		s.pumped = true
		if s.platform.ShouldClose() {
			s.life.requestClose()
		}
	}
	event, ok := s.life.poll()
	if !ok {
		s.pumped = false
	}
	return event, ok
}

func (s *Simulator) BeginSession() error {
	s.life.sessionBegun()
	return nil
}

func (s *Simulator) EndSession() error {
	s.life.sessionEnded()
	return nil
}

func (s *Simulator) CreateReferenceSpace() error {
	s.spaceCreated = true
	return nil
}

func (s *Simulator) DestroyReferenceSpace() {
	s.spaceCreated = false
}

func (s *Simulator) WaitFrame() (xr.FrameState, error) {
	s.clock.Update()
	sleep, display := s.pacer.wait(s.clock.ElapsedNanos())
	if sleep > 0 {
		time.Sleep(time.Duration(sleep))
	}
	return xr.FrameState{
		PredictedDisplayTime: display,
		ShouldRender:         s.life.shouldRender(),
	}, nil
}

// BeginFrame samples desktop input into the head pose.
func (s *Simulator) BeginFrame() error {
	s.clock.Update()
	now := s.clock.Elapsed()
	dt := float32(now - s.lastTime)
	s.lastTime = now

	x, y := core.InputGetMousePosition()
	px, py := core.InputGetPreviousMousePosition()
	s.head.Update(dt, TrackerInput{
		Forward: core.InputIsKeyDown(core.KEY_W),
		Back:    core.InputIsKeyDown(core.KEY_S),
		Left:    core.InputIsKeyDown(core.KEY_A),
		Right:   core.InputIsKeyDown(core.KEY_D),
		Up:      core.InputIsKeyDown(core.KEY_E),
		Down:    core.InputIsKeyDown(core.KEY_Q),
		MouseDX: float32(x - px),
		MouseDY: float32(y - py),
		Look:    core.InputIsButtonDown(core.BUTTON_RIGHT),
	})
	return nil
}

func (s *Simulator) EndFrame(displayTime int64, views [2]xr.View, shouldRender bool) error {
	if !shouldRender || s.released < 0 {
		return nil
	}
	w, h := s.platform.FramebufferSize()
	if w == 0 || h == 0 {
		// Minimized.
		return nil
	}
	_, err := s.preview.PresentLayer(s.context, s.images[s.released], 0, w, h)
	return err
}

func (s *Simulator) LocateViews(displayTime int64) ([2]xr.View, error) {
	aspect := float32(s.config.EyeWidth) / float32(s.config.EyeHeight)
	fov := math.SymmetricFov(mgl32.DegToRad(s.config.FovY), aspect)
	return s.head.Views(s.config.IPD, fov), nil
}

func (s *Simulator) RecommendedViewExtent() (uint32, uint32) {
	return s.config.EyeWidth, s.config.EyeHeight
}

func (s *Simulator) SwapchainFormat() vk.Format {
	return vk.FormatR8g8b8a8Srgb
}

func (s *Simulator) CreateSwapchain(width, height uint32) ([]vk.Image, error) {
	handles := make([]vk.Image, 0, swapchainImageCount)
	for i := 0; i < swapchainImageCount; i++ {
		image, err := vulkan.ImageCreate(s.context, vulkan.VulkanImageConfig{
			Width: width, Height: height,
			Layers:   2,
			Format:   s.SwapchainFormat(),
			Usage:    vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit,
			Aspect:   vk.ImageAspectColorBit,
			ViewType: vk.ImageViewType2dArray,
		})
		if err != nil {
			s.destroyImages()
			return nil, err
		}
		s.images = append(s.images, image)
		handles = append(handles, image.Handle)
	}
	return handles, nil
}

func (s *Simulator) destroyImages() {
	for _, image := range s.images {
		image.Destroy(s.context)
	}
	s.images = nil
}

func (s *Simulator) AcquireSwapchainImage() (uint32, error) {
	if len(s.images) == 0 {
		return 0, fmt.Errorf("%w: no swapchain", core.ErrInvalidFrameState)
	}
	if s.acquired >= 0 {
		return 0, fmt.Errorf("%w: swapchain image %d is still acquired", core.ErrInvalidFrameState, s.acquired)
	}
	index := s.nextImage
	s.nextImage = (s.nextImage + 1) % uint32(len(s.images))
	s.acquired = int(index)
	return index, nil
}

func (s *Simulator) ReleaseSwapchainImage() error {
	if s.acquired < 0 {
		return fmt.Errorf("%w: no swapchain image acquired", core.ErrInvalidFrameState)
	}
	s.released = s.acquired
	s.acquired = -1
	return nil
}

func (s *Simulator) HandPose(hand xr.Hand, displayTime int64) (math.Pose, bool) {
	if hand >= xr.HAND_COUNT || !s.spaceCreated {
		return math.Pose{}, false
	}
	return s.head.HandPose(hand), true
}

func (s *Simulator) StageBounds() (float32, float32, bool) {
	if s.config.StageWidth <= 0 || s.config.StageDepth <= 0 {
		return 0, 0, false
	}
	return s.config.StageWidth, s.config.StageDepth, true
}

// DestroySession releases the swapchain images, the preview and the window
// surface. It is safe to call without a session, so the surface created
// during device selection is always released before the instance.
func (s *Simulator) DestroySession() {
	if s.context != nil {
		_ = vulkan.VulkanCheck("vkDeviceWaitIdle", vk.DeviceWaitIdle(s.context.Device.LogicalDevice))
		s.destroyImages()
		if s.preview != nil {
			s.preview.SwapchainDestroy(s.context)
			s.preview = nil
		}
		vulkan.DestroyExternalContext(s.context)
		s.context = nil
	}
	if s.surface != vk.NullSurface {
		vk.DestroySurface(s.instance, s.surface, nil)
		s.surface = vk.NullSurface
	}
	s.acquired, s.released = -1, -1
}

// Shutdown closes the window and terminates glfw, which also unloads the
// Vulkan loader. It must run after the renderer destroyed its instance.
func (s *Simulator) Shutdown() {
	if s.platform != nil {
		_ = s.platform.Shutdown()
		s.platform = nil
	}
}

var _ xr.Runtime = (*Simulator)(nil)
