package assets

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

type fontLookup struct {
	resource       *metadata.Resource
	font           *metadata.FontResourceData
	referenceCount uint16
}

// FontCache hands out fonts by asset name. Bitmap fonts are loaded once;
// system fonts are rasterized once per requested size. It is not safe for
// concurrent use.
type FontCache struct {
	assets *AssetManager
	// Unload a font when its last reference is released.
	AutoRelease bool
	lookup      map[string]*fontLookup
}

func NewFontCache(am *AssetManager, autoRelease bool) *FontCache {
	return &FontCache{
		assets:      am,
		AutoRelease: autoRelease,
		lookup:      make(map[string]*fontLookup),
	}
}

func fontKey(name string, size uint32) string {
	return fmt.Sprintf("%s@%d", name, size)
}

// Acquire returns the font at name. size only applies to system fonts;
// bitmap fonts come in the size they were generated at and size is ignored.
func (fc *FontCache) Acquire(name string, size uint32) (*metadata.FontResourceData, error) {
	if determineAssetType(name) == metadata.ResourceTypeBitmapFont {
		size = 0
	}
	key := fontKey(name, size)
	if l, ok := fc.lookup[key]; ok {
		l.referenceCount++
		return l.font, nil
	}

	var params interface{}
	if size > 0 {
		params = &metadata.FontResourceParams{Size: size}
	}
	res, err := fc.assets.Load(name, params)
	if err != nil {
		return nil, err
	}
	font, ok := res.Data.(*metadata.FontResourceData)
	if !ok {
		_ = fc.assets.Unload(res)
		return nil, fmt.Errorf("%w: %q is not a font", core.ErrUnsupportedAsset, name)
	}
	if len(font.PageImages) == 0 {
		_ = fc.assets.Unload(res)
		return nil, fmt.Errorf("%w: font %q has no atlas", core.ErrInvalidAsset, name)
	}
	fc.lookup[key] = &fontLookup{resource: res, font: font, referenceCount: 1}
	core.LogDebug("Font %q (%s, %dpx) loaded.", name, font.Face, font.Size)
	return font, nil
}

// Release drops a reference taken by Acquire.
func (fc *FontCache) Release(name string, size uint32) {
	if determineAssetType(name) == metadata.ResourceTypeBitmapFont {
		size = 0
	}
	key := fontKey(name, size)
	l, ok := fc.lookup[key]
	if !ok {
		core.LogWarn("release of font %q which is not loaded", key)
		return
	}
	if l.referenceCount > 0 {
		l.referenceCount--
	}
	if l.referenceCount == 0 && fc.AutoRelease {
		fc.unload(key, l)
	}
}

// Loaded reports how many distinct font/size pairs are cached.
func (fc *FontCache) Loaded() int {
	return len(fc.lookup)
}

func (fc *FontCache) unload(key string, l *fontLookup) {
	if err := fc.assets.Unload(l.resource); err != nil {
		core.LogError("failed to unload font %q: %s", key, err)
	}
	delete(fc.lookup, key)
}

// Shutdown unloads every font regardless of references.
func (fc *FontCache) Shutdown() {
	for key, l := range fc.lookup {
		fc.unload(key, l)
	}
}

func atlasName(font *metadata.FontResourceData) string {
	return fmt.Sprintf("font:%s@%d", font.Face, font.Size)
}

// AtlasTexture creates, or returns, the texture of the first atlas page of a
// font. Glyph coverage is stored in alpha, so the texture is linear.
func AtlasTexture(r MaterialTarget, font *metadata.FontResourceData) (containers.Handle, error) {
	if len(font.PageImages) == 0 || font.PageImages[0] == nil {
		return containers.InvalidHandle, fmt.Errorf("%w: font %q has no atlas", core.ErrInvalidAsset, font.Face)
	}
	name := atlasName(font)
	if h, ok := r.TextureByName(name); ok {
		return h, nil
	}
	info := font.PageImages[0].TextureCreateInfo(metadata.COLORSPACE_LINEAR, metadata.TEXTURE_FILTER_LINEAR, false)
	return r.CreateTexture(name, info)
}

// CreateTextMaterial builds a material drawing a font's atlas with shader.
// The material is named after the font, so calling it again for the same
// font updates the properties of the existing material.
func (am *AssetManager) CreateTextMaterial(r MaterialTarget, shader string, font *metadata.FontResourceData, properties map[string]interface{}) (containers.Handle, error) {
	// Registered under atlasName, so CreateMaterial never looks it up on disk.
	if _, err := AtlasTexture(r, font); err != nil {
		return containers.InvalidHandle, err
	}
	return am.CreateMaterial(r, &metadata.MaterialConfig{
		Name:       fmt.Sprintf("text:%s@%d", font.Face, font.Size),
		Shader:     shader,
		Textures:   []string{atlasName(font)},
		Properties: properties,
	})
}
