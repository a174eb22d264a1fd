package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

var astcMagic = []byte{0x13, 0xAB, 0xA1, 0x5C}

const astcHeaderSize = 16

// AstcLoader reads .astc containers holding a single 2D image.
type AstcLoader struct{}

func (al *AstcLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	image, err := ParseAstc(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeAstc,
		DataSize: uint64(len(image.Pixels)),
		Data:     image,
	}, nil
}

/**
 * @brief Parses an ASTC container: the 4 byte magic, block dimensions x, y, z
 * and the 24 bit little endian image extents, followed by the blocks.
 * The payload is not copied.
 */
func ParseAstc(data []byte) (*metadata.ImageResourceData, error) {
	if len(data) < astcHeaderSize {
		return nil, fmt.Errorf("%w: astc header truncated", core.ErrInvalidAsset)
	}
	if !bytes.Equal(data[:4], astcMagic) {
		return nil, fmt.Errorf("%w: not an astc container", core.ErrInvalidAsset)
	}
	bx, by, bz := data[4], data[5], data[6]
	width, height, depth := uint24(data[7:10]), uint24(data[10:13]), uint24(data[13:16])
	if bz != 1 || depth != 1 {
		return nil, fmt.Errorf("%w: 3D astc blocks are not supported", core.ErrInvalidAsset)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: astc image is %dx%d", core.ErrInvalidAsset, width, height)
	}
	compression, ok := metadata.AstcCompression(bx, by)
	if !ok {
		return nil, fmt.Errorf("%w: astc block size %dx%d", core.ErrInvalidAsset, bx, by)
	}

	payload := data[astcHeaderSize:]
	if size := compression.DataSize(width, height); uint64(len(payload)) != size {
		return nil, fmt.Errorf("%w: astc payload is %d bytes, %dx%d needs %d", core.ErrInvalidAsset, len(payload), width, height, size)
	}
	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        width,
		Height:       height,
		Compression:  compression,
		Pixels:       payload,
	}, nil
}

func uint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func (al *AstcLoader) Unload(resource *metadata.Resource) error {
	return release(resource)
}
