package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestDrawcallFields(t *testing.T) {
	layers := []metadata.RenderLayer{
		metadata.RENDER_LAYER_OPAQUE, metadata.RENDER_LAYER_TRANSPARENT, metadata.RENDER_LAYER_SKYBOX,
	}
	for _, layer := range layers {
		for _, data := range []uint32{0, 1, 1023, 4095} {
			for _, mesh := range []uint32{0, 17, 255} {
				for _, material := range []uint32{0, 200, 4095} {
					d := NewDrawcall(data, mesh, material, layer)
					assert.Equal(t, data, d.DataIndex())
					assert.Equal(t, mesh, d.Mesh())
					assert.Equal(t, material, d.Material())
					assert.Equal(t, layer, d.Layer())
				}
			}
		}
	}
}

func TestDrawcallOrdering(t *testing.T) {
	// layer dominates material, material dominates mesh, mesh dominates data index
	assert.True(t, NewDrawcall(4095, 255, 4095, metadata.RENDER_LAYER_OPAQUE).Less(NewDrawcall(0, 0, 0, metadata.RENDER_LAYER_SKYBOX)))
	assert.True(t, NewDrawcall(0, 255, 1, metadata.RENDER_LAYER_OPAQUE).Less(NewDrawcall(0, 0, 2, metadata.RENDER_LAYER_OPAQUE)))
	assert.True(t, NewDrawcall(9, 1, 3, metadata.RENDER_LAYER_OPAQUE).Less(NewDrawcall(0, 2, 3, metadata.RENDER_LAYER_OPAQUE)))
	assert.False(t, NewDrawcall(5, 1, 1, metadata.RENDER_LAYER_OPAQUE).Less(NewDrawcall(5, 1, 1, metadata.RENDER_LAYER_OPAQUE)))
}
