package metadata

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TEXTURE_TYPE_2D TextureType = iota
	/** @brief A cube texture, used for cubemaps. Pixels hold six consecutive faces. */
	TEXTURE_TYPE_CUBE
)

type ColorSpace int

const (
	COLORSPACE_SRGB ColorSpace = iota
	COLORSPACE_LINEAR
)

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TEXTURE_FILTER_NEAREST TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TEXTURE_FILTER_LINEAR TextureFilter = 0x1
)

/**
 * @brief Pixel payload encoding. NONE is tightly packed RGBA8. The ASTC values
 * encode the block footprint as bx<<4 | by<<8.
 */
type TextureCompression uint32

const (
	TEXTURE_COMPRESSION_NONE       TextureCompression = 0
	TEXTURE_COMPRESSION_ASTC_4x4   TextureCompression = 4<<4 | 4<<8
	TEXTURE_COMPRESSION_ASTC_5x4   TextureCompression = 5<<4 | 4<<8
	TEXTURE_COMPRESSION_ASTC_5x5   TextureCompression = 5<<4 | 5<<8
	TEXTURE_COMPRESSION_ASTC_6x5   TextureCompression = 6<<4 | 5<<8
	TEXTURE_COMPRESSION_ASTC_6x6   TextureCompression = 6<<4 | 6<<8
	TEXTURE_COMPRESSION_ASTC_8x5   TextureCompression = 8<<4 | 5<<8
	TEXTURE_COMPRESSION_ASTC_8x6   TextureCompression = 8<<4 | 6<<8
	TEXTURE_COMPRESSION_ASTC_8x8   TextureCompression = 8<<4 | 8<<8
	TEXTURE_COMPRESSION_ASTC_10x5  TextureCompression = 10<<4 | 5<<8
	TEXTURE_COMPRESSION_ASTC_10x6  TextureCompression = 10<<4 | 6<<8
	TEXTURE_COMPRESSION_ASTC_10x8  TextureCompression = 10<<4 | 8<<8
	TEXTURE_COMPRESSION_ASTC_10x10 TextureCompression = 10<<4 | 10<<8
	TEXTURE_COMPRESSION_ASTC_12x10 TextureCompression = 12<<4 | 10<<8
	TEXTURE_COMPRESSION_ASTC_12x12 TextureCompression = 12<<4 | 12<<8
)

// AstcCompression returns the compression value for a block footprint.
func AstcCompression(bx, by uint8) (TextureCompression, bool) {
	c := TextureCompression(uint32(bx)<<4 | uint32(by)<<8)
	switch c {
	case TEXTURE_COMPRESSION_ASTC_4x4, TEXTURE_COMPRESSION_ASTC_5x4, TEXTURE_COMPRESSION_ASTC_5x5,
		TEXTURE_COMPRESSION_ASTC_6x5, TEXTURE_COMPRESSION_ASTC_6x6, TEXTURE_COMPRESSION_ASTC_8x5,
		TEXTURE_COMPRESSION_ASTC_8x6, TEXTURE_COMPRESSION_ASTC_8x8, TEXTURE_COMPRESSION_ASTC_10x5,
		TEXTURE_COMPRESSION_ASTC_10x6, TEXTURE_COMPRESSION_ASTC_10x8, TEXTURE_COMPRESSION_ASTC_10x10,
		TEXTURE_COMPRESSION_ASTC_12x10, TEXTURE_COMPRESSION_ASTC_12x12:
		return c, true
	}
	return TEXTURE_COMPRESSION_NONE, false
}

// BlockSize returns the block footprint, 1x1 for uncompressed data.
func (c TextureCompression) BlockSize() (uint32, uint32) {
	if c == TEXTURE_COMPRESSION_NONE {
		return 1, 1
	}
	return (uint32(c) >> 4) & 0xF, (uint32(c) >> 8) & 0xF
}

// DataSize is the byte size of one layer of the top mip level.
func (c TextureCompression) DataSize(width, height uint32) uint64 {
	if c == TEXTURE_COMPRESSION_NONE {
		return uint64(width) * uint64(height) * 4
	}
	bx, by := c.BlockSize()
	blocksX := (width + bx - 1) / bx
	blocksY := (height + by - 1) / by
	return uint64(blocksX) * uint64(blocksY) * 16
}

/** @brief Describes a texture to create. Pixels is borrowed. */
type TextureCreateInfo struct {
	Width        uint32
	Height       uint32
	Type         TextureType
	Space        ColorSpace
	Filter       TextureFilter
	GenerateMips bool
	Compression  TextureCompression
	Pixels       []byte
}

// LayerCount is 6 for cubemaps and 1 otherwise.
func (t *TextureCreateInfo) LayerCount() uint32 {
	if t.Type == TEXTURE_TYPE_CUBE {
		return 6
	}
	return 1
}

// MipCount returns 1 + floor(log2(max(w, h))) when mips are generated, else 1.
func (t *TextureCreateInfo) MipCount() uint32 {
	if !t.GenerateMips {
		return 1
	}
	size := t.Width
	if t.Height > size {
		size = t.Height
	}
	mips := uint32(1)
	for size > 1 {
		size >>= 1
		mips++
	}
	return mips
}

/**
 * @brief Represents a texture.
 */
type Texture struct {
	Name        string
	TextureType TextureType
	Width       uint32
	Height      uint32
	MipCount    uint32
	Space       ColorSpace
	Compression TextureCompression
	/** @brief Backend specific image, view and sampler. */
	InternalData interface{}
}
