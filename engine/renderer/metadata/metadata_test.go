package metadata

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestMipCount(t *testing.T) {
	info := TextureCreateInfo{Width: 256, Height: 64, GenerateMips: true}
	assert.Equal(t, uint32(9), info.MipCount())

	info = TextureCreateInfo{Width: 300, Height: 1, GenerateMips: true}
	assert.Equal(t, uint32(9), info.MipCount())

	info.GenerateMips = false
	assert.Equal(t, uint32(1), info.MipCount())
}

func TestAstcCompression(t *testing.T) {
	c, ok := AstcCompression(6, 5)
	assert.True(t, ok)
	assert.Equal(t, TEXTURE_COMPRESSION_ASTC_6x5, c)
	bx, by := c.BlockSize()
	assert.Equal(t, uint32(6), bx)
	assert.Equal(t, uint32(5), by)

	_, ok = AstcCompression(7, 7)
	assert.False(t, ok)

	assert.Equal(t, uint64(16*4), TEXTURE_COMPRESSION_ASTC_4x4.DataSize(8, 8))
	assert.Equal(t, uint64(4*3*16), TEXTURE_COMPRESSION_ASTC_6x5.DataSize(20, 11))
	assert.Equal(t, uint64(8*8*4), TEXTURE_COMPRESSION_NONE.DataSize(8, 8))
}

func TestCameraDataEncode(t *testing.T) {
	cam := CameraData{}
	cam.View[1] = mgl32.Translate3D(1, 2, 3)
	cam.Position[0] = mgl32.Vec4{4, 5, 6, 1}

	buf := make([]byte, CameraDataSize)
	cam.Encode(buf)

	assert.Equal(t, cam.View[1], ReadMat4(buf, 64))
	assert.Equal(t, mgl32.Mat4{}, ReadMat4(buf, 128))
	pos := ReadMat4(append(buf[256:], make([]byte, 32)...), 0)
	assert.Equal(t, float32(5), pos[1])
}

func TestLightingDataEncode(t *testing.T) {
	l := LightingData{MainLightProjection: mgl32.Ident4(), AmbientColor: mgl32.Vec4{0.1, 0.2, 0.3, 1}}
	buf := make([]byte, LightingDataSize)
	l.Encode(buf)
	assert.Equal(t, mgl32.Ident4(), ReadMat4(buf, 64))
	tail := ReadMat4(append(buf[160:], make([]byte, 48)...), 0)
	assert.Equal(t, float32(0.2), tail[1])
}

func TestShaderPropertySize(t *testing.T) {
	assert.Equal(t, uint32(16), ShaderPropertyInfo{Type: SHADER_PROPERTY_VEC4, Count: 1}.ByteSize())
	assert.Equal(t, uint32(64), ShaderPropertyInfo{Type: SHADER_PROPERTY_FLOAT, Count: 4}.ByteSize())
	assert.Equal(t, uint32(128), ShaderPropertyInfo{Type: SHADER_PROPERTY_MAT4, Count: 2}.ByteSize())

	typ, ok := ParseShaderPropertyType("uvec2")
	assert.True(t, ok)
	assert.Equal(t, SHADER_PROPERTY_UVEC2, typ)
}

func TestMeshAttributes(t *testing.T) {
	info := MeshCreateInfo{Position: []mgl32.Vec3{{}}, Color: []mgl32.Vec4{{}}}
	flags := info.Attributes()
	assert.True(t, flags.Has(VERTEX_POSITION_BIT))
	assert.True(t, flags.Has(VERTEX_COLOR_BIT))
	assert.False(t, flags.Has(VERTEX_NORMAL_BIT))
}

func TestTextMesh(t *testing.T) {
	font := &FontResourceData{
		LineHeight: 16,
		AtlasSizeX: 64,
		AtlasSizeY: 32,
		Glyphs: map[rune]FontGlyph{
			'A': {Codepoint: 'A', X: 0, Y: 0, Width: 8, Height: 10, YOffset: 3, XAdvance: 9},
			'B': {Codepoint: 'B', X: 8, Y: 0, Width: 8, Height: 10, XOffset: 1, YOffset: 3, XAdvance: 9},
			' ': {Codepoint: ' ', XAdvance: 4},
		},
		Kernings: map[[2]rune]int16{{'A', 'B'}: -1},
	}

	mesh := font.TextMesh("AB A\nB?", 1)
	if assert.NotNil(t, mesh) {
		assert.Equal(t, uint32(16), mesh.VertexCount)
		assert.Len(t, mesh.Triangles, 8)
		assert.Equal(t, VERTEX_POSITION_BIT|VERTEX_TEXCOORD_0_BIT, mesh.Attributes())

		// B follows A with advance 9, kerning -1 and x offset 1.
		assert.Equal(t, mgl32.Vec3{9, -3, 0}, mesh.Position[4])
		assert.Equal(t, mgl32.Vec2{0.125, 0}, mesh.Texcoord0[4])
		// The space only advances: the second A starts at 9-1+9+4.
		assert.Equal(t, float32(21), mesh.Position[8].X())
		// The B on the second line sits one line height lower.
		assert.Equal(t, mgl32.Vec3{1, -19, 0}, mesh.Position[12])
	}

	assert.Nil(t, font.TextMesh(" ?", 1))
}
