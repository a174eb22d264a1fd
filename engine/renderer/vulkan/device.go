package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

// GraphicsRequirements is implemented by whoever consumes the rendered images
// (the XR runtime). It dictates the extensions and the physical device the
// renderer must use.
type GraphicsRequirements interface {
	VulkanInstanceExtensions() []string
	VulkanDeviceExtensions() []string
	VulkanPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, error)
}

type VulkanDevice struct {
	PhysicalDevice     vk.PhysicalDevice
	LogicalDevice      vk.Device
	GraphicsQueueIndex uint32
	GraphicsQueue      vk.Queue

	Properties vk.PhysicalDeviceProperties
	Limits     vk.PhysicalDeviceLimits
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat vk.Format
	// Sample count of the forward pass attachments.
	SampleCount vk.SampleCountFlagBits
}

type VulkanPhysicalDeviceRequirements struct {
	Graphics             bool
	Transfer             bool
	Multiview            bool
	DeviceExtensionNames []string
	SamplerAnisotropy    bool
}

func DeviceCreate(context *VulkanContext, requirements GraphicsRequirements, maxSamples uint32) error {
	deviceRequirements := &VulkanPhysicalDeviceRequirements{
		Graphics:          true,
		Transfer:          true,
		Multiview:         true,
		SamplerAnisotropy: true,
	}
	if requirements != nil {
		deviceRequirements.DeviceExtensionNames = requirements.VulkanDeviceExtensions()
	}

	if err := SelectPhysicalDevice(context, requirements, deviceRequirements); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	var queuePriority float32 = 1.0
	queueCreateInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}}

	deviceFeatures := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy: vk.True,
	}

	multiviewFeatures := vk.PhysicalDeviceMultiviewFeatures{
		SType:     vk.StructureTypePhysicalDeviceMultiviewFeatures,
		Multiview: vk.True,
	}

	extensionNames := append([]string{}, deviceRequirements.DeviceExtensionNames...)
	if hasDeviceExtension(context.Device.PhysicalDevice, "VK_KHR_portability_subset") {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafe.Pointer(multiviewFeatures.Ref()),
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var device vk.Device
	if err := VulkanCheck("vkCreateDevice", vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device)); err != nil {
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device, context.Device.GraphicsQueueIndex, 0, &queue)
	context.Device.GraphicsQueue = queue
	core.LogInfo("Queues obtained.")

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if err := VulkanCheck("vkCreateCommandPool", vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		core.LogError(err.Error())
		return err
	}
	context.UploadCommandPool = pool
	core.LogInfo("Upload command pool created.")

	if !DeviceDetectDepthFormat(context.Device) {
		return fmt.Errorf("%w: no supported depth format", core.ErrDeviceUnsuitable)
	}
	context.Device.SampleCount = maxUsableSampleCount(context.Device.Limits, maxSamples)
	core.LogInfo("Forward pass uses %d samples per pixel.", uint32(context.Device.SampleCount))
	return nil
}

func DeviceDestroy(context *VulkanContext) {
	context.Device.GraphicsQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.UploadCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.UploadCommandPool, context.Allocator)
		context.UploadCommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	core.LogInfo("Releasing physical device resources...")
	context.Device.PhysicalDevice = nil
}

func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if (vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures) & flags) == flags {
			device.DepthFormat = candidate
			return true
		}
	}
	return false
}

// maxUsableSampleCount returns the highest sample count, capped at max, that
// both color and depth framebuffer attachments support.
func maxUsableSampleCount(limits vk.PhysicalDeviceLimits, max uint32) vk.SampleCountFlagBits {
	counts := uint32(limits.FramebufferColorSampleCounts) & uint32(limits.FramebufferDepthSampleCounts)
	for _, c := range []vk.SampleCountFlagBits{
		vk.SampleCount8Bit, vk.SampleCount4Bit, vk.SampleCount2Bit,
	} {
		if uint32(c) <= max && counts&uint32(c) != 0 {
			return c
		}
	}
	return vk.SampleCount1Bit
}

func SelectPhysicalDevice(context *VulkanContext, graphics GraphicsRequirements, requirements *VulkanPhysicalDeviceRequirements) error {
	var candidates []vk.PhysicalDevice

	if graphics != nil {
		// The runtime decides which GPU drives the display.
		pd, err := graphics.VulkanPhysicalDevice(context.Instance)
		if err != nil {
			return fmt.Errorf("runtime physical device: %w", err)
		}
		candidates = []vk.PhysicalDevice{pd}
	} else {
		var physicalDeviceCount uint32
		if err := VulkanCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil)); err != nil {
			return err
		}
		if physicalDeviceCount == 0 {
			return fmt.Errorf("%w: no devices which support Vulkan were found", core.ErrDeviceUnsuitable)
		}
		candidates = make([]vk.PhysicalDevice, physicalDeviceCount)
		if err := VulkanCheck("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, candidates)); err != nil {
			return err
		}
	}

	for _, pd := range candidates {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()
		properties.Limits.Deref()

		var features vk.PhysicalDeviceFeatures
		vk.GetPhysicalDeviceFeatures(pd, &features)
		features.Deref()

		var memory vk.PhysicalDeviceMemoryProperties
		vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
		memory.Deref()

		queueIndex, ok := PhysicalDeviceMeetsRequirements(pd, &properties, &features, requirements)
		if !ok {
			continue
		}

		name := vk.ToString(properties.DeviceName[:])
		core.LogInfo("Selected device: '%s'.", name)
		switch properties.DeviceType {
		case vk.PhysicalDeviceTypeIntegratedGpu:
			core.LogInfo("GPU type is Integrated.")
		case vk.PhysicalDeviceTypeDiscreteGpu:
			core.LogInfo("GPU type is Discrete.")
		case vk.PhysicalDeviceTypeVirtualGpu:
			core.LogInfo("GPU type is Virtual.")
		case vk.PhysicalDeviceTypeCpu:
			core.LogInfo("GPU type is CPU.")
		default:
			core.LogInfo("GPU type is Unknown.")
		}
		core.LogInfo("Vulkan API version: %d.%d.%d",
			vk.Version(properties.ApiVersion).Major(),
			vk.Version(properties.ApiVersion).Minor(),
			vk.Version(properties.ApiVersion).Patch())

		for j := 0; j < int(memory.MemoryHeapCount); j++ {
			memory.MemoryHeaps[j].Deref()
			memorySizeGib := float64(memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
			if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
				core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
			} else {
				core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
			}
		}

		context.Device.PhysicalDevice = pd
		context.Device.GraphicsQueueIndex = queueIndex
		context.Device.Properties = properties
		context.Device.Limits = properties.Limits
		context.Device.Features = features
		context.Device.Memory = memory
		core.LogInfo("Physical device selected.")
		return nil
	}

	core.LogError("No physical devices were found which meet the requirements.")
	return core.ErrDeviceUnsuitable
}

// PhysicalDeviceMeetsRequirements returns the graphics queue family of
// device when it satisfies every requirement.
func PhysicalDeviceMeetsRequirements(device vk.PhysicalDevice, properties *vk.PhysicalDeviceProperties, features *vk.PhysicalDeviceFeatures, requirements *VulkanPhysicalDeviceRequirements) (uint32, bool) {
	name := vk.ToString(properties.DeviceName[:])

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	// The forward pass and the uploads share a single graphics queue, which
	// implicitly supports transfers.
	graphicsIndex := -1
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		if vk.QueueFlagBits(queueFamilies[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			graphicsIndex = i
			break
		}
	}
	if requirements.Graphics && graphicsIndex < 0 {
		core.LogInfo("Device '%s' has no graphics queue, skipping.", name)
		return 0, false
	}

	if requirements.Multiview {
		multiview := vk.PhysicalDeviceMultiviewFeatures{
			SType: vk.StructureTypePhysicalDeviceMultiviewFeatures,
		}
		features2 := vk.PhysicalDeviceFeatures2{
			SType: vk.StructureTypePhysicalDeviceFeatures2,
			PNext: unsafe.Pointer(multiview.Ref()),
		}
		vk.GetPhysicalDeviceFeatures2(device, &features2)
		multiview.Deref()
		if multiview.Multiview == vk.False {
			core.LogInfo("Device '%s' does not support multiview, skipping.", name)
			return 0, false
		}
	}

	for _, ext := range requirements.DeviceExtensionNames {
		if !hasDeviceExtension(device, ext) {
			core.LogInfo("Required extension not found: '%s', skipping device.", ext)
			return 0, false
		}
	}

	if requirements.SamplerAnisotropy && features.SamplerAnisotropy == vk.False {
		core.LogInfo("Device does not support samplerAnisotropy, skipping.")
		return 0, false
	}

	if runtime.GOOS == "darwin" && properties.DeviceType == vk.PhysicalDeviceTypeCpu {
		core.LogInfo("Software rasterizers are not supported on darwin, skipping.")
		return 0, false
	}
	return uint32(graphicsIndex), true
}

func hasDeviceExtension(device vk.PhysicalDevice, name string) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		if vk.ToString(available[i].ExtensionName[:]) == name {
			return true
		}
	}
	return false
}
