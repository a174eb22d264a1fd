package metadata

import (
	"encoding/binary"
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
)

/** @brief Coarse ordering bucket for draw submission. Lower layers draw first. */
type RenderLayer uint8

const (
	RENDER_LAYER_OPAQUE RenderLayer = iota
	RENDER_LAYER_TRANSPARENT
	RENDER_LAYER_OVERLAY
	RENDER_LAYER_SKYBOX
)

func (l RenderLayer) String() string {
	switch l {
	case RENDER_LAYER_OPAQUE:
		return "opaque"
	case RENDER_LAYER_TRANSPARENT:
		return "transparent"
	case RENDER_LAYER_OVERLAY:
		return "overlay"
	case RENDER_LAYER_SKYBOX:
		return "skybox"
	}
	return "unknown"
}

// ParseRenderLayer maps a layer name back to its value.
func ParseRenderLayer(name string) (RenderLayer, bool) {
	for l := RENDER_LAYER_OPAQUE; l <= RENDER_LAYER_SKYBOX; l++ {
		if l.String() == name {
			return l, true
		}
	}
	return RENDER_LAYER_OPAQUE, false
}

/**
 * @brief Per-eye camera matrices, uploaded once per frame. Index 0 is the
 * left eye, index 1 the right eye.
 */
type CameraData struct {
	View       [2]mgl32.Mat4
	Projection [2]mgl32.Mat4
	Position   [2]mgl32.Vec4
}

/** @brief std140 size of CameraData. */
const CameraDataSize uint64 = 2*64 + 2*64 + 2*16

/** @brief Scene lighting, uploaded once per frame. */
type LightingData struct {
	/** @brief Light space transform of the main directional light. */
	MainLightMatrix mgl32.Mat4
	/** @brief Orthographic projection of the main directional light. */
	MainLightProjection mgl32.Mat4
	MainLightColor      mgl32.Vec4
	/** @brief Direction the main light travels in, w is always 0. */
	MainLightDirection mgl32.Vec4
	AmbientColor       mgl32.Vec4
}

/** @brief std140 size of LightingData. */
const LightingDataSize uint64 = 2*64 + 3*16

// Encode writes the std140 representation of the camera block into dst.
func (c *CameraData) Encode(dst []byte) {
	off := 0
	for i := 0; i < 2; i++ {
		off = putMat4(dst, off, c.View[i])
	}
	for i := 0; i < 2; i++ {
		off = putMat4(dst, off, c.Projection[i])
	}
	for i := 0; i < 2; i++ {
		off = putVec4(dst, off, c.Position[i])
	}
}

// Encode writes the std140 representation of the lighting block into dst.
func (l *LightingData) Encode(dst []byte) {
	off := putMat4(dst, 0, l.MainLightMatrix)
	off = putMat4(dst, off, l.MainLightProjection)
	off = putVec4(dst, off, l.MainLightColor)
	off = putVec4(dst, off, l.MainLightDirection)
	putVec4(dst, off, l.AmbientColor)
}

// PutMat4 writes a column-major matrix at off and returns the next offset.
func PutMat4(dst []byte, off int, m mgl32.Mat4) int {
	return putMat4(dst, off, m)
}

func putMat4(dst []byte, off int, m mgl32.Mat4) int {
	for _, f := range m {
		binary.LittleEndian.PutUint32(dst[off:], stdmath.Float32bits(f))
		off += 4
	}
	return off
}

func putVec4(dst []byte, off int, v mgl32.Vec4) int {
	for _, f := range v {
		binary.LittleEndian.PutUint32(dst[off:], stdmath.Float32bits(f))
		off += 4
	}
	return off
}

// ReadMat4 decodes a matrix written by PutMat4.
func ReadMat4(src []byte, off int) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = stdmath.Float32frombits(binary.LittleEndian.Uint32(src[off+i*4:]))
	}
	return m
}
