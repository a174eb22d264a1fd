package loaders

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

const (
	spirvMagic = 0x07230203
	// magic, version, generator, bound, schema
	spirvHeaderSize = 5 * 4
)

// ShaderLoader reads a compiled SPIR-V module.
type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateSPIRV(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &metadata.Resource{
		Name:     resourceName(path),
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     data,
	}, nil
}

// ValidateSPIRV checks the size and the little endian magic number of a
// SPIR-V module.
func ValidateSPIRV(code []byte) error {
	if len(code) < spirvHeaderSize || len(code)%4 != 0 {
		return fmt.Errorf("%w: SPIR-V size %d is not a whole number of words", core.ErrInvalidAsset, len(code))
	}
	if magic := binary.LittleEndian.Uint32(code); magic != spirvMagic {
		return fmt.Errorf("%w: SPIR-V magic 0x%08x", core.ErrInvalidAsset, magic)
	}
	return nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	return release(resource)
}
