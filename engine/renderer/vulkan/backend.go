package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// VulkanShader is the backend data of a metadata.Shader.
type VulkanShader struct {
	Stages    []*VulkanShaderStage
	SetLayout vk.DescriptorSetLayout
	Pipeline  *VulkanPipeline
	Layout    metadata.DescriptorSetLayoutInfo
}

// VulkanMaterial is the backend data of a metadata.Material.
type VulkanMaterial struct {
	Set  vk.DescriptorSet
	Slot uint32
}

// VulkanRenderer implements renderer.RendererBackend. Its instance and
// device are created against the extensions and physical device the XR
// runtime asks for.
type VulkanRenderer struct {
	context *VulkanContext
	debug   bool

	layout       renderer.DataLayout
	uniformHost  *VulkanBuffer
	uniform      *VulkanBuffer
	instanceHost *VulkanBuffer
	instance     *VulkanBuffer

	descriptorPool vk.DescriptorPool
	defaultTexture *VulkanTexture
	defaultCubemap *VulkanTexture

	frames [metadata.MaxFramesInFlight]*VulkanFrame
}

func New(debug bool) *VulkanRenderer {
	return &VulkanRenderer{
		context: &VulkanContext{
			Allocator: nil,
			Device:    &VulkanDevice{},
		},
		debug: debug,
	}
}

func (vr *VulkanRenderer) Initialize(appName string, requirements GraphicsRequirements, maxSamples uint32) error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrVulkanCall)
		core.LogError(err.Error())
		return err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return err
	}

	if err := vr.createInstance(appName, requirements); err != nil {
		return err
	}

	if vr.debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := VulkanCheck("vkCreateDebugReportCallback", vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError(err.Error())
			return err
		}
		vr.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	if err := DeviceCreate(vr.context, requirements, maxSamples); err != nil {
		core.LogError("Failed to create device: %s", err)
		return err
	}

	pool, err := DescriptorPoolCreate(vr.context, metadata.MaxMaterialCount)
	if err != nil {
		return err
	}
	vr.descriptorPool = pool

	vr.defaultTexture, vr.defaultCubemap, err = createDefaultTextures(vr.context)
	if err != nil {
		return err
	}

	for i := range vr.frames {
		frame, err := newVulkanFrame(vr, uint32(i))
		if err != nil {
			return err
		}
		vr.frames[i] = frame
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createInstance(appName string, requirements GraphicsRequirements) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Anima XR"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	var requiredExtensions []string
	if requirements != nil {
		requiredExtensions = append(requiredExtensions, requirements.VulkanInstanceExtensions()...)
	}
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogInfo("Required extensions:")
	for _, ext := range requiredExtensions {
		core.LogInfo(ext)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var validationLayers []string
	if vr.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if err := VulkanCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil)); err != nil {
			return err
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if err := VulkanCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers)); err != nil {
			return err
		}

		for _, required := range validationLayers {
			core.LogInfo("Searching for layer: %s...", required)
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if required == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					core.LogInfo("Found.")
					break
				}
			}
			if !found {
				err := fmt.Errorf("%w: validation layer %s", core.ErrMissingExtension, required)
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(validationLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(validationLayers)

	if err := VulkanCheck("vkCreateInstance", vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance)); err != nil {
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

// Context exposes the device objects to the XR runtime, which shares the
// graphics queue for its own transfers.
func (vr *VulkanRenderer) Context() *VulkanContext {
	return vr.context
}

// CreateRenderTargets (re)creates the forward pass over the runtime's
// swapchain images. Must be called before any shader is created.
func (vr *VulkanRenderer) CreateRenderTargets(images []vk.Image, width, height uint32, format vk.Format) error {
	if err := vr.WaitIdle(); err != nil {
		return err
	}
	return CreateRenderTargets(vr.context, images, width, height, format)
}

// DestroyRenderTargets releases the framebuffers over the runtime's images,
// which must happen before the runtime destroys them.
func (vr *VulkanRenderer) DestroyRenderTargets() error {
	if err := vr.WaitIdle(); err != nil {
		return err
	}
	if vr.context.Device.LogicalDevice != nil {
		DestroyRenderTargets(vr.context)
	}
	return nil
}

func (vr *VulkanRenderer) MinUniformBufferOffsetAlignment() uint64 {
	return uint64(vr.context.Device.Limits.MinUniformBufferOffsetAlignment)
}

func (vr *VulkanRenderer) CreateDataBuffers(layout renderer.DataLayout) error {
	vr.layout = layout
	hostFlags := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit

	var err error
	if vr.uniformHost, err = BufferCreate(vr.context, layout.UniformSize, vk.BufferUsageTransferSrcBit, hostFlags, true); err != nil {
		return err
	}
	if vr.uniform, err = BufferCreate(vr.context, layout.UniformSize,
		vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit, false); err != nil {
		return err
	}
	if vr.instanceHost, err = BufferCreate(vr.context, layout.InstanceBufferSize, vk.BufferUsageTransferSrcBit, hostFlags, true); err != nil {
		return err
	}
	if vr.instance, err = BufferCreate(vr.context, layout.InstanceBufferSize,
		vk.BufferUsageUniformBufferBit|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit, false); err != nil {
		return err
	}
	core.LogInfo("Data buffers created: uniform %d bytes, instance %d bytes.", layout.UniformSize, layout.InstanceBufferSize)
	return nil
}

func (vr *VulkanRenderer) UniformData() []byte {
	if vr.uniformHost == nil {
		return nil
	}
	return vr.uniformHost.Mapped
}

func (vr *VulkanRenderer) InstanceData() []byte {
	if vr.instanceHost == nil {
		return nil
	}
	return vr.instanceHost.Mapped
}

func (vr *VulkanRenderer) CreateMesh(info *metadata.MeshCreateInfo, mesh *metadata.Mesh) error {
	m, err := createMesh(vr.context, info)
	if err != nil {
		return fmt.Errorf("mesh %q: %w", mesh.Name, err)
	}
	mesh.InternalData = m
	return nil
}

func (vr *VulkanRenderer) DestroyMesh(mesh *metadata.Mesh) {
	if m, ok := mesh.InternalData.(*VulkanMesh); ok {
		vr.waitIdleBeforeDestroy("DestroyMesh")
		m.Destroy(vr.context)
	}
	mesh.InternalData = nil
}

func (vr *VulkanRenderer) CreateTexture(info *metadata.TextureCreateInfo, texture *metadata.Texture) error {
	t, err := createTexture(vr.context, info)
	if err != nil {
		return fmt.Errorf("texture %q: %w", texture.Name, err)
	}
	texture.InternalData = t
	return nil
}

func (vr *VulkanRenderer) DestroyTexture(texture *metadata.Texture) {
	if t, ok := texture.InternalData.(*VulkanTexture); ok {
		vr.waitIdleBeforeDestroy("DestroyTexture")
		t.Destroy(vr.context)
	}
	texture.InternalData = nil
}

func (vr *VulkanRenderer) CreateShader(info *metadata.ShaderCreateInfo, shader *metadata.Shader) error {
	if vr.context.MainRenderpass == nil {
		return fmt.Errorf("shader %q: %w: render targets not created", shader.Name, core.ErrInvalidFrameState)
	}
	s := &VulkanShader{Layout: shader.LayoutInfo}

	vertex, err := NewShaderStage(vr.context, info.VertexCode, vk.ShaderStageVertexBit)
	if err != nil {
		return fmt.Errorf("shader %q vertex stage: %w", shader.Name, err)
	}
	s.Stages = append(s.Stages, vertex)

	fragment, err := NewShaderStage(vr.context, info.FragmentCode, vk.ShaderStageFragmentBit)
	if err != nil {
		vr.destroyShader(s)
		return fmt.Errorf("shader %q fragment stage: %w", shader.Name, err)
	}
	s.Stages = append(s.Stages, fragment)

	if s.SetLayout, err = DescriptorSetLayoutCreate(vr.context, shader.LayoutInfo); err != nil {
		vr.destroyShader(s)
		return fmt.Errorf("shader %q: %w", shader.Name, err)
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(s.Stages))
	for i, stage := range s.Stages {
		stages[i] = stage.ShaderStageCreateInfo
	}
	s.Pipeline, err = NewGraphicsPipeline(vr.context, &VulkanPipelineConfig{
		Renderpass:           vr.context.MainRenderpass,
		VertexInputs:         shader.VertexInputs,
		Layer:                shader.Metadata.Layer,
		Samples:              vr.context.Device.SampleCount,
		DescriptorSetLayouts: []vk.DescriptorSetLayout{s.SetLayout},
		Stages:               stages,
	})
	if err != nil {
		vr.destroyShader(s)
		return fmt.Errorf("shader %q: %w", shader.Name, err)
	}

	shader.InternalData = s
	return nil
}

func (vr *VulkanRenderer) destroyShader(s *VulkanShader) {
	if s.Pipeline != nil {
		s.Pipeline.Destroy(vr.context)
		s.Pipeline = nil
	}
	if s.SetLayout != nil {
		vk.DestroyDescriptorSetLayout(vr.context.Device.LogicalDevice, s.SetLayout, vr.context.Allocator)
		s.SetLayout = nil
	}
	for _, stage := range s.Stages {
		stage.Destroy(vr.context)
	}
	s.Stages = nil
}

func (vr *VulkanRenderer) DestroyShader(shader *metadata.Shader) {
	if s, ok := shader.InternalData.(*VulkanShader); ok {
		vr.waitIdleBeforeDestroy("DestroyShader")
		vr.destroyShader(s)
	}
	shader.InternalData = nil
}

func (vr *VulkanRenderer) textureOrDefault(texture *metadata.Texture, fallback *VulkanTexture) *VulkanTexture {
	if texture == nil {
		return fallback
	}
	if t, ok := texture.InternalData.(*VulkanTexture); ok {
		return t
	}
	return fallback
}

func (vr *VulkanRenderer) CreateMaterial(material *metadata.Material, shader *metadata.Shader, slot uint32, textures []*metadata.Texture) error {
	s, ok := shader.InternalData.(*VulkanShader)
	if !ok {
		return fmt.Errorf("material %q: %w: shader has no pipeline", material.Name, core.ErrInvalidHandle)
	}
	set, err := DescriptorSetAllocate(vr.context, vr.descriptorPool, s.SetLayout)
	if err != nil {
		return fmt.Errorf("material %q: %w", material.Name, err)
	}

	bound := make([]*VulkanTexture, len(textures))
	for i, t := range textures {
		bound[i] = vr.textureOrDefault(t, vr.defaultTexture)
	}
	updateDescriptorSets(vr.context, materialSetWrites(set, s.Layout, vr.layout,
		vr.uniform.Handle, vr.instance.Handle, slot, bound, vr.defaultCubemap))

	material.InternalData = &VulkanMaterial{Set: set, Slot: slot}
	return nil
}

func (vr *VulkanRenderer) UpdateMaterialTexture(material *metadata.Material, index uint32, texture *metadata.Texture) error {
	m, ok := material.InternalData.(*VulkanMaterial)
	if !ok {
		return fmt.Errorf("material %q: %w", material.Name, core.ErrInvalidHandle)
	}
	if err := vr.WaitIdle(); err != nil {
		return fmt.Errorf("material %q texture %d: %w", material.Name, index, err)
	}
	t := vr.textureOrDefault(texture, vr.defaultTexture)
	updateDescriptorSets(vr.context, []vk.WriteDescriptorSet{imageWrite(m.Set, metadata.SamplerBindingBase+index, t)})
	return nil
}

func (vr *VulkanRenderer) UpdateMaterialEnvironment(material *metadata.Material, shader *metadata.Shader, cubemap *metadata.Texture) error {
	m, ok := material.InternalData.(*VulkanMaterial)
	if !ok {
		return fmt.Errorf("material %q: %w", material.Name, core.ErrInvalidHandle)
	}
	if shader.LayoutInfo.Flags&metadata.DESCRIPTOR_SET_LAYOUT_CUBEMAP == 0 {
		return nil
	}
	if err := vr.WaitIdle(); err != nil {
		return fmt.Errorf("material %q environment: %w", material.Name, err)
	}
	t := vr.textureOrDefault(cubemap, vr.defaultCubemap)
	updateDescriptorSets(vr.context, []vk.WriteDescriptorSet{imageWrite(m.Set, metadata.CubemapBinding, t)})
	return nil
}

func (vr *VulkanRenderer) DestroyMaterial(material *metadata.Material) {
	if m, ok := material.InternalData.(*VulkanMaterial); ok {
		vr.waitIdleBeforeDestroy("DestroyMaterial")
		DescriptorSetFree(vr.context, vr.descriptorPool, m.Set)
	}
	material.InternalData = nil
}

func (vr *VulkanRenderer) Frame(index uint32) renderer.FrameContext {
	return vr.frames[index]
}

func (vr *VulkanRenderer) WaitIdle() error {
	if vr.context.Device == nil || vr.context.Device.LogicalDevice == nil {
		return nil
	}
	return lockPool.SafeQueueCall(vr.context.Device.GraphicsQueueIndex, func() error {
		return VulkanCheck("vkDeviceWaitIdle", vk.DeviceWaitIdle(vr.context.Device.LogicalDevice))
	})
}

// waitIdleBeforeDestroy waits for the device before op frees GPU objects.
// A lost device still gets its objects destroyed.
func (vr *VulkanRenderer) waitIdleBeforeDestroy(op string) {
	logWaitIdle(op, vr.WaitIdle())
}

func logWaitIdle(op string, err error) {
	if err != nil {
		core.LogError("%s: waiting for device idle failed: %s", op, err)
	}
}

// Shutdown destroys everything in the opposite order of creation.
func (vr *VulkanRenderer) Shutdown() error {
	if err := vr.WaitIdle(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	context := vr.context

	if context.Device.LogicalDevice != nil {
		for i, frame := range vr.frames {
			if frame != nil {
				frame.destroy()
				vr.frames[i] = nil
			}
		}
		for _, t := range []*VulkanTexture{vr.defaultTexture, vr.defaultCubemap} {
			if t != nil {
				t.Destroy(context)
			}
		}
		vr.defaultTexture, vr.defaultCubemap = nil, nil

		if vr.descriptorPool != nil {
			vk.DestroyDescriptorPool(context.Device.LogicalDevice, vr.descriptorPool, context.Allocator)
			vr.descriptorPool = nil
		}
		for _, b := range []*VulkanBuffer{vr.uniformHost, vr.uniform, vr.instanceHost, vr.instance} {
			if b != nil {
				b.Destroy(context)
			}
		}
		vr.uniformHost, vr.uniform, vr.instanceHost, vr.instance = nil, nil, nil, nil

		DestroyRenderTargets(context)
		DeviceDestroy(context)
	}

	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

var _ renderer.RendererBackend = (*VulkanRenderer)(nil)
