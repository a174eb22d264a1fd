package loaders

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// MaterialLoader reads .amt material definitions, which are TOML:
//
//	name = "crate"
//	shader = "lit"
//	cast_shadows = true
//	textures = ["crate_albedo.png"]
//
//	[properties]
//	tint = [1.0, 0.9, 0.8, 1.0]
type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mCfg, err := ParseMaterial(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mCfg.Name == "" {
		mCfg.Name = resourceName(path)
	}
	if err := validateMaterial(mCfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     mCfg.Name,
		FullPath: path,
		Type:     metadata.ResourceTypeMaterial,
		DataSize: uint64(len(data)),
		Data:     mCfg,
	}, nil
}

// ParseMaterial decodes a material definition. Unknown keys are rejected.
func ParseMaterial(data []byte) (*metadata.MaterialConfig, error) {
	mCfg := &metadata.MaterialConfig{}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(mCfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", core.ErrInvalidAsset, strict.String())
		}
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidAsset, err)
	}
	return mCfg, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	if material.Shader == "" {
		return fmt.Errorf("%w: shader name is required", core.ErrInvalidAsset)
	}
	if uint32(len(material.Textures)) > metadata.MaxSamplerCount {
		return fmt.Errorf("%w: %d textures, at most %d", core.ErrTooManySamplers, len(material.Textures), metadata.MaxSamplerCount)
	}
	for i, name := range material.Textures {
		if name == "" {
			return fmt.Errorf("%w: texture %d has no name", core.ErrInvalidAsset, i)
		}
	}
	for name, value := range material.Properties {
		if _, err := FlattenNumbers(value); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	return nil
}

// FlattenNumbers turns a number or a nested array of numbers, as decoded
// from TOML, into a flat list.
func FlattenNumbers(value interface{}) ([]float64, error) {
	switch v := value.(type) {
	case float64:
		return []float64{v}, nil
	case float32:
		return []float64{float64(v)}, nil
	case int64:
		return []float64{float64(v)}, nil
	case int:
		return []float64{float64(v)}, nil
	case []interface{}:
		var out []float64
		for _, e := range v {
			f, err := FlattenNumbers(e)
			if err != nil {
				return nil, err
			}
			out = append(out, f...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T is not a number", core.ErrInvalidAsset, value)
}

func (ml *MaterialLoader) Unload(resource *metadata.Resource) error {
	return release(resource)
}
