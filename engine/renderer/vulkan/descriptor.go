package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

const uniformStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

// descriptorSetLayoutBindings lists the bindings of a material set:
// the fixed uniform slots, one sampler per shader texture and the cubemap.
func descriptorSetLayoutBindings(info metadata.DescriptorSetLayoutInfo) []vk.DescriptorSetLayoutBinding {
	var bindings []vk.DescriptorSetLayoutBinding
	uniform := func(flag metadata.DescriptorSetLayoutFlags, binding uint32, descriptorType vk.DescriptorType) {
		if info.Flags&flag == 0 {
			return
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         binding,
			DescriptorType:  descriptorType,
			DescriptorCount: 1,
			StageFlags:      uniformStages,
		})
	}
	uniform(metadata.DESCRIPTOR_SET_LAYOUT_CAMERADATA, metadata.DESCRIPTOR_BINDING_CAMERA, vk.DescriptorTypeUniformBuffer)
	uniform(metadata.DESCRIPTOR_SET_LAYOUT_LIGHTINGDATA, metadata.DESCRIPTOR_BINDING_LIGHTING, vk.DescriptorTypeUniformBuffer)
	uniform(metadata.DESCRIPTOR_SET_LAYOUT_INSTANCEDATA, metadata.DESCRIPTOR_BINDING_INSTANCE, vk.DescriptorTypeUniformBufferDynamic)
	uniform(metadata.DESCRIPTOR_SET_LAYOUT_SHADERDATA, metadata.DESCRIPTOR_BINDING_SHADER, vk.DescriptorTypeUniformBuffer)

	for i := uint32(0); i < info.SamplerCount; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         metadata.SamplerBindingBase + i,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	if info.Flags&metadata.DESCRIPTOR_SET_LAYOUT_CUBEMAP != 0 {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         metadata.CubemapBinding,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		})
	}
	return bindings
}

func DescriptorSetLayoutCreate(context *VulkanContext, info metadata.DescriptorSetLayoutInfo) (vk.DescriptorSetLayout, error) {
	bindings := descriptorSetLayoutBindings(info)
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		return VulkanCheck("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &createInfo, context.Allocator, &layout))
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

// DescriptorPoolCreate sizes a pool for maxSets material sets using every
// binding of the set layout. Sets are freed individually.
func DescriptorPoolCreate(context *VulkanContext, maxSets uint32) (vk.DescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 3 * maxSets},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: maxSets},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: (metadata.MaxSamplerCount + 1) * maxSets},
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		return VulkanCheck("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool))
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return pool, nil
}

func DescriptorSetAllocate(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	err := lockPool.SafeCall(DescriptorManagement, func() error {
		return VulkanCheck("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocateInfo, &sets[0]))
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return sets[0], nil
}

func DescriptorSetFree(context *VulkanContext, pool vk.DescriptorPool, set vk.DescriptorSet) {
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		return VulkanCheck("vkFreeDescriptorSets", vk.FreeDescriptorSets(context.Device.LogicalDevice, pool, 1, &set))
	})
}

// materialSetWrites builds the writes binding a material set to the device
// uniform and instance buffers. Textures must hold one entry per sampler.
func materialSetWrites(set vk.DescriptorSet, info metadata.DescriptorSetLayoutInfo, layout renderer.DataLayout,
	uniform, instance vk.Buffer, slot uint32, textures []*VulkanTexture, cubemap *VulkanTexture) []vk.WriteDescriptorSet {
	var writes []vk.WriteDescriptorSet
	buffer := func(flag metadata.DescriptorSetLayoutFlags, binding uint32, descriptorType vk.DescriptorType, handle vk.Buffer, offset, size uint64) {
		if info.Flags&flag == 0 {
			return
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      binding,
			DescriptorCount: 1,
			DescriptorType:  descriptorType,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: handle,
				Offset: vk.DeviceSize(offset),
				Range:  vk.DeviceSize(size),
			}},
		})
	}
	buffer(metadata.DESCRIPTOR_SET_LAYOUT_CAMERADATA, metadata.DESCRIPTOR_BINDING_CAMERA, vk.DescriptorTypeUniformBuffer,
		uniform, layout.CameraOffset, metadata.CameraDataSize)
	buffer(metadata.DESCRIPTOR_SET_LAYOUT_LIGHTINGDATA, metadata.DESCRIPTOR_BINDING_LIGHTING, vk.DescriptorTypeUniformBuffer,
		uniform, layout.LightingOffset, metadata.LightingDataSize)
	buffer(metadata.DESCRIPTOR_SET_LAYOUT_INSTANCEDATA, metadata.DESCRIPTOR_BINDING_INSTANCE, vk.DescriptorTypeUniformBufferDynamic,
		instance, 0, layout.InstanceRange)
	buffer(metadata.DESCRIPTOR_SET_LAYOUT_SHADERDATA, metadata.DESCRIPTOR_BINDING_SHADER, vk.DescriptorTypeUniformBuffer,
		uniform, layout.MaterialDataOffset(slot), uint64(metadata.MaxShaderDataBlockSize))

	for i, texture := range textures {
		writes = append(writes, imageWrite(set, metadata.SamplerBindingBase+uint32(i), texture))
	}
	if info.Flags&metadata.DESCRIPTOR_SET_LAYOUT_CUBEMAP != 0 && cubemap != nil {
		writes = append(writes, imageWrite(set, metadata.CubemapBinding, cubemap))
	}
	return writes
}

func imageWrite(set vk.DescriptorSet, binding uint32, texture *VulkanTexture) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{texture.descriptor()},
	}
}

func updateDescriptorSets(context *VulkanContext, writes []vk.WriteDescriptorSet) {
	if len(writes) == 0 {
		return
	}
	_ = lockPool.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		return nil
	})
}
