package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func validateTexture(info *metadata.TextureCreateInfo) error {
	if info == nil || info.Width == 0 || info.Height == 0 {
		return fmt.Errorf("%w: texture dimensions must be non-zero", core.ErrInvalidTextureData)
	}
	if info.Compression != metadata.TEXTURE_COMPRESSION_NONE && info.GenerateMips {
		return fmt.Errorf("%w: mips cannot be generated for compressed textures", core.ErrInvalidTextureData)
	}
	want := info.Compression.DataSize(info.Width, info.Height) * uint64(info.LayerCount())
	if uint64(len(info.Pixels)) < want {
		return fmt.Errorf("%w: %d bytes of pixel data, expected %d", core.ErrInvalidTextureData, len(info.Pixels), want)
	}
	return nil
}

// CreateTexture uploads the pixels and, when requested, generates the full
// mip chain. Blocks until the upload completes.
func (r *Renderer) CreateTexture(name string, info *metadata.TextureCreateInfo) (containers.Handle, error) {
	if err := r.idle("CreateTexture"); err != nil {
		return containers.InvalidHandle, err
	}
	if err := validateTexture(info); err != nil {
		core.LogError("CreateTexture %q: %s", name, err)
		return containers.InvalidHandle, err
	}

	texture, h := r.textures.Add()
	if texture == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateTexture %q: %w (%d textures)", name, core.ErrPoolFull, r.textures.Capacity())
	}
	texture.Name = register(r.textureNames, "texture", name, h)
	texture.TextureType = info.Type
	texture.Width = info.Width
	texture.Height = info.Height
	texture.MipCount = info.MipCount()
	texture.Space = info.Space
	texture.Compression = info.Compression

	if err := r.backend.CreateTexture(info, texture); err != nil {
		unregister(r.textureNames, texture.Name, h)
		r.textures.Remove(h)
		core.LogError("CreateTexture %q: %s", name, err)
		return containers.InvalidHandle, err
	}
	return h, nil
}

func (r *Renderer) FreeTexture(h containers.Handle) bool {
	if r.idle("FreeTexture") != nil {
		return false
	}
	texture := r.textures.Get(h)
	if texture == nil {
		return false
	}
	if h == r.environment {
		r.environment = containers.InvalidHandle
	}
	r.backend.DestroyTexture(texture)
	unregister(r.textureNames, texture.Name, h)
	return r.textures.Remove(h)
}

func (r *Renderer) Texture(h containers.Handle) *metadata.Texture {
	return r.textures.Get(h)
}

func (r *Renderer) TextureByName(name string) (containers.Handle, bool) {
	return lookup(r.textureNames, name)
}

// SetEnvironmentMap binds a cubemap to every material whose shader samples
// the environment. InvalidHandle restores the default cubemap.
func (r *Renderer) SetEnvironmentMap(h containers.Handle) error {
	var cubemap *metadata.Texture
	if !h.IsNull() {
		cubemap = r.textures.Get(h)
		if cubemap == nil {
			return fmt.Errorf("SetEnvironmentMap %s: %w", h, core.ErrInvalidHandle)
		}
		if cubemap.TextureType != metadata.TEXTURE_TYPE_CUBE {
			return fmt.Errorf("%w: environment map %q is not a cubemap", core.ErrInvalidTextureData, cubemap.Name)
		}
	}
	r.environment = h

	var err error
	r.materials.Each(func(_ containers.Handle, m *metadata.Material) bool {
		shader := r.shaders.Get(m.Metadata.Shader)
		if shader == nil || shader.LayoutInfo.Flags&metadata.DESCRIPTOR_SET_LAYOUT_CUBEMAP == 0 {
			return true
		}
		err = r.backend.UpdateMaterialEnvironment(m, shader, cubemap)
		return err == nil
	})
	return err
}
