package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestVertexInputDescriptions(t *testing.T) {
	bindings, attributes := vertexInputDescriptions(metadata.VERTEX_POSITION_BIT | metadata.VERTEX_NORMAL_BIT)
	require.Len(t, bindings, 2)
	require.Len(t, attributes, 2)

	assert.Equal(t, metadata.VERTEX_BINDING_POSITION, bindings[0].Binding)
	assert.Equal(t, uint32(12), bindings[0].Stride)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attributes[0].Format)

	assert.Equal(t, metadata.VERTEX_BINDING_NORMAL, bindings[1].Binding)
	assert.Equal(t, metadata.VERTEX_BINDING_NORMAL, attributes[1].Location)

	bindings, _ = vertexInputDescriptions(metadata.VERTEX_POSITION_BIT | metadata.VERTEX_TEXCOORD_0_BIT |
		metadata.VERTEX_NORMAL_BIT | metadata.VERTEX_TANGENT_BIT | metadata.VERTEX_COLOR_BIT)
	assert.Len(t, bindings, int(metadata.VERTEX_BINDING_COUNT))

	// attributes without a forward binding are ignored
	bindings, _ = vertexInputDescriptions(metadata.VERTEX_POSITION_BIT | metadata.VERTEX_JOINTS_BIT)
	assert.Len(t, bindings, 1)
}

func TestLayerPipelineState(t *testing.T) {
	tests := []struct {
		layer      metadata.RenderLayer
		blend      vk.Bool32
		depthTest  vk.Bool32
		depthWrite vk.Bool32
	}{
		{metadata.RENDER_LAYER_OPAQUE, vk.False, vk.True, vk.True},
		{metadata.RENDER_LAYER_TRANSPARENT, vk.True, vk.True, vk.False},
		{metadata.RENDER_LAYER_OVERLAY, vk.True, vk.False, vk.False},
		{metadata.RENDER_LAYER_SKYBOX, vk.False, vk.True, vk.False},
	}
	for _, tt := range tests {
		t.Run(tt.layer.String(), func(t *testing.T) {
			assert.Equal(t, tt.blend, colorBlendAttachmentFor(tt.layer).BlendEnable)
			depth := depthStencilFor(tt.layer)
			assert.Equal(t, tt.depthTest, depth.DepthTestEnable)
			assert.Equal(t, tt.depthWrite, depth.DepthWriteEnable)
		})
	}
}
