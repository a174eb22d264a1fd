package loaders

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// BitmapFontLoader reads AngelCode .fnt descriptors and their page images.
type BitmapFontLoader struct{}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	data, err := fl.importFNTFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	size := uint64(0)
	for _, page := range data.PageImages {
		size += uint64(len(page.Pixels))
	}
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeBitmapFont,
		DataSize: size,
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource == nil {
		return nil
	}
	if data, ok := resource.Data.(*metadata.FontResourceData); ok {
		data.Glyphs = nil
		data.Kernings = nil
		data.Pages = nil
		data.PageImages = nil
	}
	return release(resource)
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*metadata.FontResourceData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidAsset, err)
	}
	desc := font.Descriptor

	outData := &metadata.FontResourceData{
		Type:       metadata.FONT_TYPE_BITMAP,
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		AtlasSizeX: uint32(desc.Common.ScaleW),
		AtlasSizeY: uint32(desc.Common.ScaleH),
		Glyphs:     make(map[rune]metadata.FontGlyph, len(desc.Chars)),
		Kernings:   make(map[[2]rune]int16, len(desc.Kerning)),
		Pages:      make([]metadata.BitmapFontPage, len(desc.Pages)),
		PageImages: make([]*metadata.ImageResourceData, len(desc.Pages)),
	}

	// Pages are stored by id so glyph page ids index them directly.
	dir := filepath.Dir(fntFileName)
	for _, p := range desc.Pages {
		id := int(p.ID)
		if id < 0 || id >= len(outData.Pages) {
			return nil, fmt.Errorf("%w: page id %d out of %d pages", core.ErrInvalidAsset, id, len(outData.Pages))
		}
		outData.Pages[id] = metadata.BitmapFontPage{ID: int8(id), File: p.File}

		sheet, err := decodePage(filepath.Join(dir, p.File))
		if err != nil {
			return nil, err
		}
		outData.PageImages[id] = sheet
	}

	for _, g := range desc.Chars {
		outData.Glyphs[rune(g.ID)] = metadata.FontGlyph{
			Codepoint: rune(g.ID),
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		}
	}

	for p, k := range desc.Kerning {
		outData.Kernings[[2]rune{rune(p.First), rune(p.Second)}] = int16(k.Amount)
	}

	return outData, nil
}

func decodePage(path string) (*metadata.ImageResourceData, error) {
	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	if err != nil {
		return nil, err
	}
	return res.Data.(*metadata.ImageResourceData), nil
}
