package metadata

/**
 * @brief Decoded texture payload produced by the image and ASTC loaders.
 */
type ImageResourceData struct {
	/** @brief The number of channels. Always 4 for uncompressed data. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief Encoding of Pixels. */
	Compression TextureCompression
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

// TextureCreateInfo describes a texture built from the decoded image.
func (d *ImageResourceData) TextureCreateInfo(space ColorSpace, filter TextureFilter, generateMips bool) *TextureCreateInfo {
	return &TextureCreateInfo{
		Width:        d.Width,
		Height:       d.Height,
		Type:         TEXTURE_TYPE_2D,
		Space:        space,
		Filter:       filter,
		GenerateMips: generateMips && d.Compression == TEXTURE_COMPRESSION_NONE,
		Compression:  d.Compression,
		Pixels:       d.Pixels,
	}
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}
