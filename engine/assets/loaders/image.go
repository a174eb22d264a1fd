package loaders

import (
	"fmt"
	"image"
	"os"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// ImageLoader decodes png, jpeg, gif, bmp, tiff and webp files into tightly
// packed RGBA8. Params may be a *metadata.ImageResourceParams.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	var flipY bool
	switch p := params.(type) {
	case nil:
	case *metadata.ImageResourceParams:
		flipY = p.FlipY
	default:
		return nil, fmt.Errorf("image loader: unexpected params %T", params)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidAsset, path, err)
	}
	core.LogDebug("decoded %s image %s", format, path)

	data := ToRGBA(img, flipY)
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

// ToRGBA converts any image to tightly packed RGBA8, optionally flipping rows.
func ToRGBA(img image.Image, flipY bool) *metadata.ImageResourceData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	pixels := rgba.Pix[:bounds.Dx()*bounds.Dy()*4]
	if flipY {
		pixels = make([]uint8, len(pixels))
		stride := rgba.Stride
		rows := bounds.Dy()
		for y := 0; y < rows; y++ {
			copy(pixels[y*stride:(y+1)*stride], rgba.Pix[(rows-1-y)*stride:(rows-y)*stride])
		}
	}
	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Compression:  metadata.TEXTURE_COMPRESSION_NONE,
		Pixels:       pixels,
	}
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	return release(resource)
}
