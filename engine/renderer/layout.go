package renderer

import (
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// DataLayout is the placement of the per-frame data inside the uniform and
// instance buffers. Every region starts on a multiple of the device's minimum
// uniform buffer offset alignment.
//
// Uniform buffer: camera | lighting | MaxMaterialCount shader data slots.
// Instance buffer: MaxInstanceCount slots of InstanceStride bytes, followed by
// InstanceRange bytes so a binding of InstanceRange at any slot stays in bounds.
type DataLayout struct {
	MinAlignment uint64

	CameraOffset          uint64
	CameraSize            uint64
	LightingOffset        uint64
	LightingSize          uint64
	ShaderDataOffset      uint64
	ShaderDataElementSize uint64
	UniformSize           uint64

	InstanceStride     uint64
	InstanceRange      uint64
	InstanceBufferSize uint64
}

func NewDataLayout(minAlignment uint64) DataLayout {
	l := DataLayout{MinAlignment: minAlignment}

	l.CameraSize = math.PadUniformBufferSize(metadata.CameraDataSize, minAlignment)
	l.LightingSize = math.PadUniformBufferSize(metadata.LightingDataSize, minAlignment)
	l.ShaderDataElementSize = math.PadUniformBufferSize(uint64(metadata.MaxShaderDataBlockSize), minAlignment)

	l.CameraOffset = 0
	l.LightingOffset = l.CameraOffset + l.CameraSize
	l.ShaderDataOffset = l.LightingOffset + l.LightingSize
	l.UniformSize = l.ShaderDataOffset + l.ShaderDataElementSize*uint64(metadata.MaxMaterialCount)

	l.InstanceStride = math.PadUniformBufferSize(uint64(metadata.InstanceDataSize), minAlignment)
	l.InstanceRange = uint64(metadata.InstanceDataSize) * uint64(metadata.MaxInstanceCountPerDraw)
	l.InstanceBufferSize = l.InstanceStride*uint64(metadata.MaxInstanceCount) + l.InstanceRange
	return l
}

// MaterialDataOffset is the byte offset of the shader data slot of a material.
func (l DataLayout) MaterialDataOffset(slot uint32) uint64 {
	return l.ShaderDataOffset + l.ShaderDataElementSize*uint64(slot)
}

// InstanceOffset is the byte offset of the first transform of a draw whose
// instance range starts at instance.
func (l DataLayout) InstanceOffset(instance uint32) uint64 {
	return l.InstanceStride * uint64(instance)
}
