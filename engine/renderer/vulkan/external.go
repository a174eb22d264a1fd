package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
)

// NewExternalContext wraps a device created elsewhere so that a consumer
// (the XR compositor) can allocate images and record commands on it. The
// returned context owns only its upload command pool.
func NewExternalContext(instance vk.Instance, physicalDevice vk.PhysicalDevice, device vk.Device, queueFamilyIndex, queueIndex uint32) (*VulkanContext, error) {
	context := &VulkanContext{
		Instance: instance,
		Device: &VulkanDevice{
			PhysicalDevice:     physicalDevice,
			LogicalDevice:      device,
			GraphicsQueueIndex: queueFamilyIndex,
		},
	}

	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()
	properties.Limits.Deref()
	context.Device.Properties = properties
	context.Device.Limits = properties.Limits

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(physicalDevice, &features)
	features.Deref()
	context.Device.Features = features

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memory)
	memory.Deref()
	context.Device.Memory = memory

	var queue vk.Queue
	vk.GetDeviceQueue(device, queueFamilyIndex, queueIndex, &queue)
	context.Device.GraphicsQueue = queue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit),
	}
	var pool vk.CommandPool
	if err := VulkanCheck("vkCreateCommandPool", vk.CreateCommandPool(device, &poolCreateInfo, context.Allocator, &pool)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	context.UploadCommandPool = pool
	return context, nil
}

func DestroyExternalContext(context *VulkanContext) {
	if context == nil || context.Device == nil {
		return
	}
	if context.UploadCommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.UploadCommandPool, context.Allocator)
		context.UploadCommandPool = nil
	}
}
