package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/renderer"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestDescriptorSetLayoutBindings(t *testing.T) {
	bindings := descriptorSetLayoutBindings(metadata.DescriptorSetLayoutInfo{
		Flags:        metadata.DESCRIPTOR_SET_LAYOUT_ALL,
		SamplerCount: 2,
	})
	require.Len(t, bindings, 7)

	byBinding := map[uint32]vk.DescriptorType{}
	for _, b := range bindings {
		byBinding[b.Binding] = b.DescriptorType
	}
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, byBinding[metadata.DESCRIPTOR_BINDING_CAMERA])
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, byBinding[metadata.DESCRIPTOR_BINDING_LIGHTING])
	assert.Equal(t, vk.DescriptorTypeUniformBufferDynamic, byBinding[metadata.DESCRIPTOR_BINDING_INSTANCE])
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, byBinding[metadata.DESCRIPTOR_BINDING_SHADER])
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, byBinding[4])
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, byBinding[5])
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, byBinding[metadata.CubemapBinding])

	bindings = descriptorSetLayoutBindings(metadata.DescriptorSetLayoutInfo{
		Flags: metadata.DESCRIPTOR_SET_LAYOUT_CAMERADATA | metadata.DESCRIPTOR_SET_LAYOUT_INSTANCEDATA,
	})
	assert.Len(t, bindings, 2)
}

func TestMaterialSetWrites(t *testing.T) {
	layout := renderer.NewDataLayout(256)
	info := metadata.DescriptorSetLayoutInfo{Flags: metadata.DESCRIPTOR_SET_LAYOUT_ALL &^ metadata.DESCRIPTOR_SET_LAYOUT_CUBEMAP}

	writes := materialSetWrites(nil, info, layout, nil, nil, 3, nil, nil)
	require.Len(t, writes, 4)

	for _, w := range writes {
		require.Len(t, w.PBufferInfo, 1)
		switch w.DstBinding {
		case metadata.DESCRIPTOR_BINDING_INSTANCE:
			assert.Equal(t, vk.DeviceSize(layout.InstanceRange), w.PBufferInfo[0].Range)
			assert.Equal(t, vk.DeviceSize(0), w.PBufferInfo[0].Offset)
		case metadata.DESCRIPTOR_BINDING_SHADER:
			assert.Equal(t, vk.DeviceSize(layout.MaterialDataOffset(3)), w.PBufferInfo[0].Offset)
		case metadata.DESCRIPTOR_BINDING_LIGHTING:
			assert.Equal(t, vk.DeviceSize(layout.LightingOffset), w.PBufferInfo[0].Offset)
		}
	}
}
