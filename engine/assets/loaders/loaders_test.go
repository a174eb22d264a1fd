package loaders

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func spirvModule(words int) []byte {
	code := make([]byte, words*4)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	binary.LittleEndian.PutUint32(code[4:], 0x00010300)
	return code
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "unlit.vert.spv", spirvModule(8))

	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, "unlit.vert", res.Name)
	assert.Equal(t, uint64(32), res.DataSize)
	assert.Len(t, res.Data.([]byte), 32)

	require.NoError(t, (&ShaderLoader{}).Unload(res))
	assert.Nil(t, res.Data)
}

func TestValidateSPIRV(t *testing.T) {
	assert.NoError(t, ValidateSPIRV(spirvModule(5)))

	bad := spirvModule(5)
	bad[0] = 0
	assert.ErrorIs(t, ValidateSPIRV(bad), core.ErrInvalidAsset)
	assert.ErrorIs(t, ValidateSPIRV(spirvModule(5)[:19]), core.ErrInvalidAsset)
	assert.ErrorIs(t, ValidateSPIRV(spirvModule(4)), core.ErrInvalidAsset)
}

func astcFile(bx, by, bz uint8, w, h, d uint32, payload int) []byte {
	data := []byte{0x13, 0xAB, 0xA1, 0x5C, bx, by, bz}
	for _, v := range []uint32{w, h, d} {
		data = append(data, byte(v), byte(v>>8), byte(v>>16))
	}
	return append(data, make([]byte, payload)...)
}

func TestParseAstc(t *testing.T) {
	// 20x8 with 8x8 blocks is 3x1 blocks.
	img, err := ParseAstc(astcFile(8, 8, 1, 20, 8, 1, 3*16))
	require.NoError(t, err)
	assert.Equal(t, uint32(20), img.Width)
	assert.Equal(t, uint32(8), img.Height)
	assert.Equal(t, metadata.TEXTURE_COMPRESSION_ASTC_8x8, img.Compression)
	assert.Len(t, img.Pixels, 48)

	big, err := ParseAstc(astcFile(12, 12, 1, 0x10000, 1, 1, 5462*16))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10000), big.Width)

	tests := []struct {
		name string
		data []byte
	}{
		{"truncated header", astcFile(4, 4, 1, 4, 4, 1, 16)[:10]},
		{"bad magic", append([]byte{0, 0, 0, 0}, astcFile(4, 4, 1, 4, 4, 1, 16)[4:]...)},
		{"3d blocks", astcFile(4, 4, 4, 4, 4, 4, 16)},
		{"unknown block size", astcFile(7, 7, 1, 7, 7, 1, 16)},
		{"short payload", astcFile(4, 4, 1, 8, 8, 1, 48)},
		{"empty image", astcFile(4, 4, 1, 0, 4, 1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAstc(tt.data)
			assert.ErrorIs(t, err, core.ErrInvalidAsset)
		})
	}
}

func TestAstcLoader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rock.astc", astcFile(6, 6, 1, 12, 12, 1, 4*16))
	res, err := (&AstcLoader{}).Load(path, metadata.ResourceTypeAstc, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceTypeAstc, res.Type)

	info := res.Data.(*metadata.ImageResourceData).TextureCreateInfo(metadata.COLORSPACE_SRGB, metadata.TEXTURE_FILTER_LINEAR, true)
	assert.False(t, info.GenerateMips)
	assert.Equal(t, metadata.TEXTURE_COMPRESSION_ASTC_6x6, info.Compression)
}

func TestImageLoader(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})
	src.Set(1, 0, color.NRGBA{G: 255, A: 255})
	src.Set(0, 1, color.NRGBA{B: 255, A: 255})
	src.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	path := writePNG(t, t.TempDir(), "quad.png", src)

	res, err := (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint8(4), data.ChannelCount)
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 255, 0, 255}, data.Pixels[:8])

	res, err = (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: true})
	require.NoError(t, err)
	data = res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, []uint8{0, 0, 255, 255, 255, 255, 255, 255}, data.Pixels[:8])
	assert.Len(t, data.Pixels, 16)

	_, err = (&ImageLoader{}).Load(path, metadata.ResourceTypeImage, "flip")
	assert.Error(t, err)

	garbage := writeFile(t, t.TempDir(), "broken.png", []byte("not an image"))
	_, err = (&ImageLoader{}).Load(garbage, metadata.ResourceTypeImage, nil)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

func TestToRGBASubImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src.Set(2, 2, color.RGBA{R: 9, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	data := ToRGBA(sub, false)
	assert.Equal(t, uint32(2), data.Width)
	assert.Len(t, data.Pixels, 16)
	assert.Equal(t, uint8(9), data.Pixels[0])
}

const crateMaterial = `
name = "crate"
shader = "lit"
cast_shadows = true
textures = ["crate_albedo.png", "crate_normal.png"]

[properties]
tint = [1.0, 0.5, 0.25, 1.0]
roughness = 0.75
layers = 3
`

func TestMaterialLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "crate.amt", []byte(crateMaterial))

	res, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	cfg := res.Data.(*metadata.MaterialConfig)
	assert.Equal(t, "crate", cfg.Name)
	assert.Equal(t, "lit", cfg.Shader)
	assert.True(t, cfg.CastShadows)
	assert.Equal(t, []string{"crate_albedo.png", "crate_normal.png"}, cfg.Textures)
	assert.Equal(t, 0.75, cfg.Properties["roughness"])
	assert.Equal(t, int64(3), cfg.Properties["layers"])

	// The file name stands in for a missing name.
	path = writeFile(t, dir, "plain.amt", []byte(`shader = "unlit"`))
	res, err = (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", res.Name)
}

func TestMaterialLoaderRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{"missing shader", `name = "x"`, core.ErrInvalidAsset},
		{"unknown key", "shader = \"lit\"\ndiffuse_colour = 1", core.ErrInvalidAsset},
		{"bad syntax", "shader = ", core.ErrInvalidAsset},
		{"empty texture", "shader = \"lit\"\ntextures = [\"\"]", core.ErrInvalidAsset},
		{"too many textures", "shader = \"lit\"\ntextures = [\"a\",\"b\",\"c\",\"d\",\"e\",\"f\",\"g\",\"h\",\"i\"]", core.ErrTooManySamplers},
		{"text property", "shader = \"lit\"\n[properties]\ntint = \"red\"", core.ErrInvalidAsset},
	}
	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.amt", []byte(tt.body))
			_, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFlattenNumbers(t *testing.T) {
	values, err := FlattenNumbers([]interface{}{
		[]interface{}{1.0, int64(2)},
		[]interface{}{3.5, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3.5, 4}, values)

	_, err = FlattenNumbers([]interface{}{1.0, true})
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

const testFnt = `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=16 base=13 scaleW=32 scaleH=16 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test_0.png"
chars count=3
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=4     page=0  chnl=15
char id=65   x=0     y=0     width=8     height=10    xoffset=0     yoffset=3     xadvance=9     page=0  chnl=15
char id=66   x=8     y=0     width=8     height=10    xoffset=1     yoffset=3     xadvance=9     page=0  chnl=15
kernings count=1
kerning first=65  second=66  amount=-1
`

func TestBitmapFontLoader(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "test_0.png", image.NewRGBA(image.Rect(0, 0, 32, 16)))
	path := writeFile(t, dir, "test.fnt", []byte(testFnt))

	loader := &BitmapFontLoader{}
	res, err := loader.Load(path, metadata.ResourceTypeBitmapFont, nil)
	require.NoError(t, err)
	font := res.Data.(*metadata.FontResourceData)

	assert.Equal(t, "Test", font.Face)
	assert.Equal(t, int32(16), font.LineHeight)
	assert.Equal(t, int32(13), font.Baseline)
	assert.Equal(t, uint32(32), font.AtlasSizeX)
	assert.Equal(t, uint32(16), font.AtlasSizeY)
	assert.Len(t, font.Glyphs, 3)
	assert.Equal(t, int16(1), font.Glyphs['B'].XOffset)
	assert.Equal(t, int16(-1), font.Kerning('A', 'B'))
	require.Len(t, font.PageImages, 1)
	assert.Equal(t, uint32(32), font.PageImages[0].Width)
	assert.Equal(t, uint64(32*16*4), res.DataSize)

	mesh := font.TextMesh("AB", 0.01)
	require.NotNil(t, mesh)
	assert.Equal(t, uint32(8), mesh.VertexCount)

	require.NoError(t, loader.Unload(res))
	assert.Nil(t, font.Glyphs)
	assert.Nil(t, res.Data)
}

func TestBitmapFontLoaderMissingPage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "test.fnt", []byte(testFnt))
	_, err := (&BitmapFontLoader{}).Load(path, metadata.ResourceTypeBitmapFont, nil)
	assert.Error(t, err)
}

func TestSystemFontLoader(t *testing.T) {
	path := writeFile(t, t.TempDir(), "goregular.ttf", goregular.TTF)

	res, err := (&SystemFontLoader{}).Load(path, metadata.ResourceTypeSystemFont, &metadata.FontResourceParams{Size: 24})
	require.NoError(t, err)
	font := res.Data.(*metadata.FontResourceData)

	assert.Equal(t, metadata.FONT_TYPE_SYSTEM, font.Type)
	assert.Equal(t, "Go", font.Face)
	assert.Equal(t, uint32(systemFontAtlasWidth), font.AtlasSizeX)
	assert.Len(t, font.Glyphs, int(lastPrintable-firstPrintable+1))
	assert.Positive(t, font.LineHeight)

	space := font.Glyphs[' ']
	assert.Zero(t, space.Width)
	assert.Positive(t, space.XAdvance)

	a := font.Glyphs['A']
	assert.Positive(t, a.Width)
	assert.LessOrEqual(t, uint32(a.X)+uint32(a.Width), font.AtlasSizeX)
	assert.LessOrEqual(t, uint32(a.Y)+uint32(a.Height), font.AtlasSizeY)

	// The atlas holds rasterized coverage inside the glyph rectangle.
	page := font.PageImages[0]
	covered := false
	for y := uint32(a.Y); y < uint32(a.Y)+uint32(a.Height); y++ {
		for x := uint32(a.X); x < uint32(a.X)+uint32(a.Width); x++ {
			if page.Pixels[(y*page.Width+x)*4+3] > 0 {
				covered = true
			}
		}
	}
	assert.True(t, covered)

	_, err = (&SystemFontLoader{}).Load(writeFile(t, t.TempDir(), "bad.ttf", []byte("nope")), metadata.ResourceTypeSystemFont, nil)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}
