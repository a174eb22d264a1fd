package assets

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

type fakeTarget struct {
	shaders   []*metadata.Shader
	textures  map[string]*metadata.TextureCreateInfo
	materials []*metadata.Material
	props     map[string]interface{}
	rebinds   int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		shaders: []*metadata.Shader{{
			Name:       "lit",
			LayoutInfo: metadata.DescriptorSetLayoutInfo{SamplerCount: 2},
			Metadata: metadata.ShaderMetadata{DataLayout: metadata.ShaderDataLayout{
				DataSize: 32,
				Properties: []metadata.ShaderPropertyInfo{
					{Name: "tint", Type: metadata.SHADER_PROPERTY_VEC4, Count: 1, Offset: 0},
					{Name: "roughness", Type: metadata.SHADER_PROPERTY_FLOAT, Count: 1, Offset: 16},
				},
			}},
		}, {Name: "unlit"}},
		textures: map[string]*metadata.TextureCreateInfo{},
		props:    map[string]interface{}{},
	}
}

func (f *fakeTarget) ShaderByName(name string) (containers.Handle, bool) {
	for i, s := range f.shaders {
		if s.Name == name {
			return containers.Handle(i), true
		}
	}
	return containers.InvalidHandle, false
}

func (f *fakeTarget) Shader(h containers.Handle) *metadata.Shader { return f.shaders[h] }

func (f *fakeTarget) TextureByName(name string) (containers.Handle, bool) {
	_, ok := f.textures[name]
	return containers.Handle(len(name)), ok
}

func (f *fakeTarget) CreateTexture(name string, info *metadata.TextureCreateInfo) (containers.Handle, error) {
	f.textures[name] = info
	return containers.Handle(len(name)), nil
}

func (f *fakeTarget) MaterialByName(name string) (containers.Handle, bool) {
	for i, m := range f.materials {
		if m.Name == name {
			return containers.Handle(i), true
		}
	}
	return containers.InvalidHandle, false
}

func (f *fakeTarget) Material(h containers.Handle) *metadata.Material { return f.materials[h] }

func (f *fakeTarget) CreateMaterial(name string, info *metadata.MaterialCreateInfo) (containers.Handle, error) {
	f.materials = append(f.materials, &metadata.Material{Name: name, Metadata: info.Metadata, Textures: info.Data.Textures})
	return containers.Handle(len(f.materials) - 1), nil
}

func (f *fakeTarget) UpdateMaterialTexture(h containers.Handle, index uint32, texture containers.Handle) error {
	f.materials[h].Textures[index] = texture
	f.rebinds++
	return nil
}

func (f *fakeTarget) SetMaterialProperty(h containers.Handle, name string, value interface{}) error {
	f.props[name] = value
	return nil
}

func writeMaterialAssets(t *testing.T, root, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, "crate.amt"), []byte(body), 0o644))
}

func TestLoadMaterial(t *testing.T) {
	root := t.TempDir()
	src := writeTestPNG(t, root, "albedo.png")
	require.FileExists(t, src)
	writeMaterialAssets(t, root, `
shader = "lit"
textures = ["albedo.png"]
[properties]
tint = [1, 0.5, 0.25, 1]
roughness = 0.5
`)
	am, err := NewAssetManager(root, false, nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())

	target := newFakeTarget()
	h, err := am.LoadMaterial(target, "crate.amt")
	require.NoError(t, err)
	material := target.Material(h)
	assert.Equal(t, "crate", material.Name)
	assert.Equal(t, containers.Handle(len("albedo.png")), material.Textures[0])
	assert.True(t, material.Textures[1].IsNull())
	assert.Equal(t, []float32{1, 0.5, 0.25, 1}, target.props["tint"])
	assert.Equal(t, []float32{0.5}, target.props["roughness"])
	require.Contains(t, target.textures, "albedo.png")
	assert.Equal(t, metadata.COLORSPACE_SRGB, target.textures["albedo.png"].Space)

	// Reloading keeps the handle and only touches what changed.
	writeMaterialAssets(t, root, `
shader = "lit"
textures = ["albedo.png"]
[properties]
roughness = 0.9
`)
	again, err := am.LoadMaterial(target, "crate.amt")
	require.NoError(t, err)
	assert.Equal(t, h, again)
	assert.Len(t, target.materials, 1)
	assert.Zero(t, target.rebinds)
	assert.Equal(t, []float32{0.9}, target.props["roughness"])

	writeMaterialAssets(t, root, `shader = "unlit"`)
	_, err = am.LoadMaterial(target, "crate.amt")
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
}

func TestCreateMaterialErrors(t *testing.T) {
	am, err := NewAssetManager(t.TempDir(), false, nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	target := newFakeTarget()

	_, err = am.CreateMaterial(target, &metadata.MaterialConfig{Name: "a", Shader: "pbr"})
	assert.ErrorIs(t, err, core.ErrInvalidAsset)

	_, err = am.CreateMaterial(target, &metadata.MaterialConfig{Name: "b", Shader: "lit", Textures: []string{"x.png", "y.png", "z.png"}})
	assert.ErrorIs(t, err, core.ErrTooManySamplers)

	_, err = am.CreateMaterial(target, &metadata.MaterialConfig{Name: "c", Shader: "lit", Textures: []string{"missing.png"}})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = am.CreateMaterial(target, &metadata.MaterialConfig{Name: "d", Shader: "lit", Properties: map[string]interface{}{"shine": 1.0}})
	assert.ErrorIs(t, err, core.ErrUnknownProperty)

	_, err = am.CreateMaterial(target, &metadata.MaterialConfig{Name: "e", Shader: "lit", Properties: map[string]interface{}{"tint": []interface{}{1.0}}})
	assert.ErrorIs(t, err, core.ErrMaterialDataRange)
}

func TestEncodeProperty(t *testing.T) {
	tests := []struct {
		name  string
		prop  metadata.ShaderPropertyInfo
		value interface{}
		want  interface{}
	}{
		{"float", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_FLOAT}, 2.5, []float32{2.5}},
		{"vec2", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_VEC2}, []interface{}{1.0, int64(2)}, []float32{1, 2}},
		{"ivec4", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_IVEC4}, []interface{}{int64(-1), int64(0), int64(1), int64(2)}, []int32{-1, 0, 1, 2}},
		{"uint", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_UINT}, int64(7), []uint32{7}},
		{"mat2 columns are padded", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_MAT2},
			[]interface{}{[]interface{}{1.0, 2.0}, []interface{}{3.0, 4.0}}, []float32{1, 2, 0, 0, 3, 4, 0, 0}},
		{"float array has a 16 byte stride", metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_FLOAT, Count: 2},
			[]interface{}{1.0, 2.0}, []float32{1, 0, 0, 0, 2, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeProperty(tt.prop, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	mat4 := make([]interface{}, 16)
	for i := range mat4 {
		mat4[i] = float64(i)
	}
	got, err := EncodeProperty(metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_MAT4}, mat4)
	require.NoError(t, err)
	assert.Len(t, got, 16)

	_, err = EncodeProperty(metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_INT}, 1.5)
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
	_, err = EncodeProperty(metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_UINT}, int64(-1))
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
	_, err = EncodeProperty(metadata.ShaderPropertyInfo{Type: metadata.SHADER_PROPERTY_VEC4}, 1.0)
	assert.ErrorIs(t, err, core.ErrMaterialDataRange)
}

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}
