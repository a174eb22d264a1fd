package metadata

import "github.com/go-gl/mathgl/mgl32"

type FontType int

const (
	FONT_TYPE_BITMAP FontType = iota
	FONT_TYPE_SYSTEM
)

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

type BitmapFontPage struct {
	ID   int8
	File string
}

/**
 * @brief Glyph metrics and atlas pages of a font. Offsets are in pixels,
 * y grows downwards from the top of the line as in the bmfont format.
 */
type FontResourceData struct {
	Type       FontType
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX uint32
	AtlasSizeY uint32
	Glyphs     map[rune]FontGlyph
	Kernings   map[[2]rune]int16
	Pages      []BitmapFontPage
	/** @brief Decoded RGBA atlas of each page, indexed like Pages. */
	PageImages []*ImageResourceData
}

// Kerning returns the advance adjustment between two codepoints.
func (f *FontResourceData) Kerning(first, second rune) int16 {
	return f.Kernings[[2]rune{first, second}]
}

/**
 * @brief Builds a textured quad mesh for a line layout of text. The pen
 * starts at the origin on the top of the first line, one pixel maps to scale
 * units and y points up. Codepoints without a glyph are skipped. Returns nil
 * when no glyph is visible.
 */
func (f *FontResourceData) TextMesh(text string, scale float32) *MeshCreateInfo {
	info := &MeshCreateInfo{}
	if f.AtlasSizeX == 0 || f.AtlasSizeY == 0 {
		return nil
	}
	atlasW, atlasH := float32(f.AtlasSizeX), float32(f.AtlasSizeY)

	var penX, penY int32
	var prev rune = -1
	for _, r := range text {
		if r == '\n' {
			penX = 0
			penY += f.LineHeight
			prev = -1
			continue
		}
		g, ok := f.Glyphs[r]
		if !ok {
			continue
		}
		if prev >= 0 {
			penX += int32(f.Kerning(prev, r))
		}
		prev = r

		if g.Width > 0 && g.Height > 0 {
			x0 := float32(penX+int32(g.XOffset)) * scale
			x1 := x0 + float32(g.Width)*scale
			y0 := -float32(penY+int32(g.YOffset)) * scale
			y1 := y0 - float32(g.Height)*scale

			u0, v0 := float32(g.X)/atlasW, float32(g.Y)/atlasH
			u1, v1 := float32(g.X+g.Width)/atlasW, float32(g.Y+g.Height)/atlasH

			base := uint32(len(info.Position))
			info.Position = append(info.Position,
				mgl32.Vec3{x0, y0, 0}, mgl32.Vec3{x0, y1, 0},
				mgl32.Vec3{x1, y1, 0}, mgl32.Vec3{x1, y0, 0})
			info.Texcoord0 = append(info.Texcoord0,
				mgl32.Vec2{u0, v0}, mgl32.Vec2{u0, v1},
				mgl32.Vec2{u1, v1}, mgl32.Vec2{u1, v0})
			info.Triangles = append(info.Triangles,
				[3]uint32{base, base + 1, base + 2},
				[3]uint32{base, base + 2, base + 3})
		}
		penX += int32(g.XAdvance)
	}
	if len(info.Position) == 0 {
		return nil
	}
	info.VertexCount = uint32(len(info.Position))
	return info
}

/** @brief Parameters used when rasterizing a system font. */
type FontResourceParams struct {
	/** @brief Pixel height of the rasterized glyphs. */
	Size uint32
}
