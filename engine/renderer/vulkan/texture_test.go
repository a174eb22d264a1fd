package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestTextureFormat(t *testing.T) {
	tests := []struct {
		compression metadata.TextureCompression
		space       metadata.ColorSpace
		want        vk.Format
	}{
		{metadata.TEXTURE_COMPRESSION_NONE, metadata.COLORSPACE_SRGB, vk.FormatR8g8b8a8Srgb},
		{metadata.TEXTURE_COMPRESSION_NONE, metadata.COLORSPACE_LINEAR, vk.FormatR8g8b8a8Unorm},
		{metadata.TEXTURE_COMPRESSION_ASTC_4x4, metadata.COLORSPACE_SRGB, vk.FormatAstc4x4SrgbBlock},
		{metadata.TEXTURE_COMPRESSION_ASTC_4x4, metadata.COLORSPACE_LINEAR, vk.FormatAstc4x4UnormBlock},
		{metadata.TEXTURE_COMPRESSION_ASTC_8x6, metadata.COLORSPACE_LINEAR, vk.FormatAstc8x6UnormBlock},
		{metadata.TEXTURE_COMPRESSION_ASTC_12x12, metadata.COLORSPACE_SRGB, vk.FormatAstc12x12SrgbBlock},
	}
	for _, tt := range tests {
		got, ok := TextureFormat(tt.compression, tt.space)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got)
	}

	_, ok := TextureFormat(metadata.TextureCompression(3<<4|3<<8), metadata.COLORSPACE_SRGB)
	assert.False(t, ok)
}

func TestSpirvWords(t *testing.T) {
	words, err := SpirvWords([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	assert.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, words)

	_, err = SpirvWords([]byte{0x03, 0x02, 0x23})
	assert.Error(t, err)
	_, err = SpirvWords([]byte{0, 0, 0, 0})
	assert.Error(t, err)
}
