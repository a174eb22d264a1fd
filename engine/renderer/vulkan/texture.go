package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// VulkanTexture is the backend data of a metadata.Texture.
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler
}

type textureFormats struct {
	srgb, unorm vk.Format
}

var textureFormatTable = map[metadata.TextureCompression]textureFormats{
	metadata.TEXTURE_COMPRESSION_NONE:       {vk.FormatR8g8b8a8Srgb, vk.FormatR8g8b8a8Unorm},
	metadata.TEXTURE_COMPRESSION_ASTC_4x4:   {vk.FormatAstc4x4SrgbBlock, vk.FormatAstc4x4UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_5x4:   {vk.FormatAstc5x4SrgbBlock, vk.FormatAstc5x4UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_5x5:   {vk.FormatAstc5x5SrgbBlock, vk.FormatAstc5x5UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_6x5:   {vk.FormatAstc6x5SrgbBlock, vk.FormatAstc6x5UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_6x6:   {vk.FormatAstc6x6SrgbBlock, vk.FormatAstc6x6UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_8x5:   {vk.FormatAstc8x5SrgbBlock, vk.FormatAstc8x5UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_8x6:   {vk.FormatAstc8x6SrgbBlock, vk.FormatAstc8x6UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_8x8:   {vk.FormatAstc8x8SrgbBlock, vk.FormatAstc8x8UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_10x5:  {vk.FormatAstc10x5SrgbBlock, vk.FormatAstc10x5UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_10x6:  {vk.FormatAstc10x6SrgbBlock, vk.FormatAstc10x6UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_10x8:  {vk.FormatAstc10x8SrgbBlock, vk.FormatAstc10x8UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_10x10: {vk.FormatAstc10x10SrgbBlock, vk.FormatAstc10x10UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_12x10: {vk.FormatAstc12x10SrgbBlock, vk.FormatAstc12x10UnormBlock},
	metadata.TEXTURE_COMPRESSION_ASTC_12x12: {vk.FormatAstc12x12SrgbBlock, vk.FormatAstc12x12UnormBlock},
}

// TextureFormat maps a compression and color space to the Vulkan format.
func TextureFormat(compression metadata.TextureCompression, space metadata.ColorSpace) (vk.Format, bool) {
	formats, ok := textureFormatTable[compression]
	if !ok {
		return vk.FormatUndefined, false
	}
	if space == metadata.COLORSPACE_LINEAR {
		return formats.unorm, true
	}
	return formats.srgb, true
}

func createTexture(context *VulkanContext, info *metadata.TextureCreateInfo) (*VulkanTexture, error) {
	format, ok := TextureFormat(info.Compression, info.Space)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported compression %d", core.ErrInvalidTextureData, info.Compression)
	}

	mips := info.MipCount()
	usage := vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit
	if mips > 1 {
		usage |= vk.ImageUsageTransferSrcBit
	}
	config := VulkanImageConfig{
		Width:     info.Width,
		Height:    info.Height,
		MipLevels: mips,
		Layers:    info.LayerCount(),
		Format:    format,
		Usage:     usage,
		Aspect:    vk.ImageAspectColorBit,
		ViewType:  vk.ImageViewType2d,
	}
	if info.Type == metadata.TEXTURE_TYPE_CUBE {
		config.ViewType = vk.ImageViewTypeCube
		config.Cube = true
	}

	image, err := ImageCreate(context, config)
	if err != nil {
		return nil, err
	}

	dataSize := info.Compression.DataSize(info.Width, info.Height) * uint64(info.LayerCount())
	staging, err := BufferCreate(context, dataSize,
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, true)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	defer staging.Destroy(context)
	copy(staging.Mapped, info.Pixels[:dataSize])

	err = SingleUse(context, func(cmd vk.CommandBuffer) {
		image.TransitionLayout(cmd, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, 0, mips,
			0, vk.AccessTransferWriteBit,
			vk.PipelineStageTopOfPipeBit, vk.PipelineStageTransferBit)
		image.CopyFromBuffer(cmd, staging)

		if mips > 1 {
			image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, 0, 1,
				vk.AccessTransferWriteBit, vk.AccessTransferReadBit,
				vk.PipelineStageTransferBit, vk.PipelineStageTransferBit)
			image.GenerateMipmaps(cmd)
			return
		}
		image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, 0, 1,
			vk.AccessTransferWriteBit, vk.AccessShaderReadBit,
			vk.PipelineStageTransferBit, vk.PipelineStageFragmentShaderBit)
	})
	if err != nil {
		image.Destroy(context)
		return nil, err
	}

	sampler, err := createSampler(context, info, mips)
	if err != nil {
		image.Destroy(context)
		return nil, err
	}
	return &VulkanTexture{Image: image, Sampler: sampler}, nil
}

func createSampler(context *VulkanContext, info *metadata.TextureCreateInfo, mips uint32) (vk.Sampler, error) {
	filter := vk.FilterLinear
	mipmapMode := vk.SamplerMipmapModeLinear
	if info.Filter == metadata.TEXTURE_FILTER_NEAREST {
		filter = vk.FilterNearest
		mipmapMode = vk.SamplerMipmapModeNearest
	}
	addressMode := vk.SamplerAddressModeRepeat
	if info.Type == metadata.TEXTURE_TYPE_CUBE {
		addressMode = vk.SamplerAddressModeClampToEdge
	}

	anisotropy := context.Device.Limits.MaxSamplerAnisotropy
	if anisotropy > 16 {
		anisotropy = 16
	}

	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              mipmapMode,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           anisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  float32(mips),
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}

	var sampler vk.Sampler
	if err := VulkanCheck("vkCreateSampler", vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler)); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return sampler, nil
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Sampler != nil {
		vk.DestroySampler(context.Device.LogicalDevice, t.Sampler, context.Allocator)
		t.Sampler = nil
	}
	if t.Image != nil {
		t.Image.Destroy(context)
		t.Image = nil
	}
}

func (t *VulkanTexture) descriptor() vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     t.Sampler,
		ImageView:   t.Image.View,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
}

// createDefaultTextures builds the textures bound to unused sampler slots and
// to the environment binding when no cubemap is set.
func createDefaultTextures(context *VulkanContext) (*VulkanTexture, *VulkanTexture, error) {
	white, err := createTexture(context, &metadata.TextureCreateInfo{
		Width: 1, Height: 1,
		Type:   metadata.TEXTURE_TYPE_2D,
		Space:  metadata.COLORSPACE_LINEAR,
		Filter: metadata.TEXTURE_FILTER_NEAREST,
		Pixels: []byte{0xff, 0xff, 0xff, 0xff},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("default texture: %w", err)
	}

	pixels := make([]byte, 6*4)
	for i := 3; i < len(pixels); i += 4 {
		pixels[i] = 0xff
	}
	cube, err := createTexture(context, &metadata.TextureCreateInfo{
		Width: 1, Height: 1,
		Type:   metadata.TEXTURE_TYPE_CUBE,
		Space:  metadata.COLORSPACE_LINEAR,
		Filter: metadata.TEXTURE_FILTER_LINEAR,
		Pixels: pixels,
	})
	if err != nil {
		white.Destroy(context)
		return nil, nil, fmt.Errorf("default cubemap: %w", err)
	}
	return white, cube, nil
}
