package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func newFontRoot(t *testing.T) *AssetManager {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ui.ttf"), goregular.TTF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "blob.bin"), []byte{1, 2, 3}, 0o644))

	am, err := NewAssetManager(root, false, nil)
	require.NoError(t, err)
	require.NoError(t, am.Initialize())
	t.Cleanup(func() { _ = am.Shutdown() })
	return am
}

func TestFontCacheReferences(t *testing.T) {
	fc := NewFontCache(newFontRoot(t), true)

	a, err := fc.Acquire("ui.ttf", 24)
	require.NoError(t, err)
	b, err := fc.Acquire("ui.ttf", 24)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, uint32(24), a.Size)

	small, err := fc.Acquire("ui.ttf", 12)
	require.NoError(t, err)
	assert.NotSame(t, a, small)
	assert.Equal(t, 2, fc.Loaded())

	fc.Release("ui.ttf", 24)
	assert.Equal(t, 2, fc.Loaded(), "one reference left")
	fc.Release("ui.ttf", 24)
	assert.Equal(t, 1, fc.Loaded())

	// Releasing an unknown font only warns.
	fc.Release("ui.ttf", 24)

	fc.Shutdown()
	assert.Zero(t, fc.Loaded())
}

func TestFontCacheKeepsWithoutAutoRelease(t *testing.T) {
	fc := NewFontCache(newFontRoot(t), false)
	_, err := fc.Acquire("ui.ttf", 16)
	require.NoError(t, err)
	fc.Release("ui.ttf", 16)
	assert.Equal(t, 1, fc.Loaded())
}

func TestFontCacheRejectsOtherAssets(t *testing.T) {
	fc := NewFontCache(newFontRoot(t), true)
	_, err := fc.Acquire("blob.bin", 0)
	assert.ErrorIs(t, err, core.ErrUnsupportedAsset)
	_, err = fc.Acquire("missing.ttf", 16)
	assert.Error(t, err)
	assert.Zero(t, fc.Loaded())
}

func TestCreateTextMaterial(t *testing.T) {
	am := newFontRoot(t)
	fc := NewFontCache(am, true)
	font, err := fc.Acquire("ui.ttf", 20)
	require.NoError(t, err)

	target := newFakeTarget()
	h, err := am.CreateTextMaterial(target, "lit", font, map[string]interface{}{
		"tint": []interface{}{1.0, 1.0, 1.0, 1.0},
	})
	require.NoError(t, err)

	atlas, ok := target.textures["font:Go@20"]
	require.True(t, ok)
	assert.Equal(t, metadata.COLORSPACE_LINEAR, atlas.Space)
	assert.False(t, atlas.GenerateMips)
	assert.Equal(t, font.AtlasSizeX, atlas.Width)

	mat := target.Material(h)
	assert.Equal(t, "text:Go@20", mat.Name)
	tex, _ := target.TextureByName("font:Go@20")
	assert.Equal(t, tex, mat.Textures[0])

	// Same font again reuses the material and the atlas.
	again, err := am.CreateTextMaterial(target, "lit", font, nil)
	require.NoError(t, err)
	assert.Equal(t, h, again)
	assert.Len(t, target.textures, 1)
}
