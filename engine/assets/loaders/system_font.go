package loaders

import (
	"fmt"
	"image"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

const (
	defaultSystemFontSize = 32
	systemFontAtlasWidth  = 512
	systemFontPadding     = 1
	firstPrintable        = ' '
	lastPrintable         = '~'
)

// SystemFontLoader rasterizes the printable ASCII range of a TrueType or
// OpenType font into a single page atlas. Params may be a
// *metadata.FontResourceParams.
type SystemFontLoader struct{}

func (fl *SystemFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	size := uint32(defaultSystemFontSize)
	switch p := params.(type) {
	case nil:
	case *metadata.FontResourceParams:
		if p.Size > 0 {
			size = p.Size
		}
	default:
		return nil, fmt.Errorf("system font loader: unexpected params %T", params)
	}

	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidAsset, path, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", core.ErrInvalidAsset, path, err)
	}
	defer face.Close()

	data := rasterizeAtlas(face, size)
	if name, err := f.Name(nil, sfnt.NameIDFamily); err == nil {
		data.Face = name
	} else {
		data.Face = resourceName(path)
	}
	data.Pages = []metadata.BitmapFontPage{{ID: 0, File: path}}

	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeSystemFont,
		DataSize: uint64(len(data.PageImages[0].Pixels)),
		Data:     data,
	}, nil
}

type placedGlyph struct {
	r       rune
	bounds  fixed.Rectangle26_6
	advance fixed.Int26_6
	x, y    int
	w, h    int
}

func rasterizeAtlas(face font.Face, size uint32) *metadata.FontResourceData {
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()

	// Shelf packing, one row after the other.
	var glyphs []placedGlyph
	penX, penY, rowHeight := systemFontPadding, systemFontPadding, 0
	for r := rune(firstPrintable); r <= lastPrintable; r++ {
		bounds, advance, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}
		w := bounds.Max.X.Ceil() - bounds.Min.X.Floor()
		h := bounds.Max.Y.Ceil() - bounds.Min.Y.Floor()
		if w <= 0 || h <= 0 {
			w, h = 0, 0
		}
		if penX+w+systemFontPadding > systemFontAtlasWidth {
			penX = systemFontPadding
			penY += rowHeight + systemFontPadding
			rowHeight = 0
		}
		glyphs = append(glyphs, placedGlyph{r: r, bounds: bounds, advance: advance, x: penX, y: penY, w: w, h: h})
		penX += w + systemFontPadding
		if h > rowHeight {
			rowHeight = h
		}
	}

	height := 1
	for height < penY+rowHeight+systemFontPadding {
		height <<= 1
	}
	atlas := image.NewRGBA(image.Rect(0, 0, systemFontAtlasWidth, height))

	out := &metadata.FontResourceData{
		Type:       metadata.FONT_TYPE_SYSTEM,
		Size:       size,
		LineHeight: int32(metrics.Height.Ceil()),
		Baseline:   int32(ascent),
		AtlasSizeX: systemFontAtlasWidth,
		AtlasSizeY: uint32(height),
		Glyphs:     make(map[rune]metadata.FontGlyph, len(glyphs)),
		Kernings:   make(map[[2]rune]int16),
	}

	for _, g := range glyphs {
		if g.w > 0 {
			d := font.Drawer{
				Dst:  atlas,
				Src:  image.White,
				Face: face,
				Dot:  fixed.P(g.x-g.bounds.Min.X.Floor(), g.y-g.bounds.Min.Y.Floor()),
			}
			d.DrawString(string(g.r))
		}
		out.Glyphs[g.r] = metadata.FontGlyph{
			Codepoint: g.r,
			X:         uint16(g.x),
			Y:         uint16(g.y),
			Width:     uint16(g.w),
			Height:    uint16(g.h),
			XOffset:   int16(g.bounds.Min.X.Floor()),
			YOffset:   int16(ascent + g.bounds.Min.Y.Floor()),
			XAdvance:  int16(g.advance.Round()),
		}
	}

	for _, a := range glyphs {
		for _, b := range glyphs {
			if k := face.Kern(a.r, b.r).Round(); k != 0 {
				out.Kernings[[2]rune{a.r, b.r}] = int16(k)
			}
		}
	}

	out.PageImages = []*metadata.ImageResourceData{ToRGBA(atlas, false)}
	return out
}

func (fl *SystemFontLoader) Unload(resource *metadata.Resource) error {
	return release(resource)
}
