package core

import (
	"errors"
)

// Fatal class errors. Callers wrap them with context and the engine loop
// aborts on them; none of them is ever recovered mid-frame.
var (
	ErrPoolFull               = errors.New("resource pool is full")
	ErrInvalidHandle          = errors.New("invalid or stale handle")
	ErrDrawcallBudgetExceeded = errors.New("drawcall budget exceeded")
	ErrInstanceBudgetExceeded = errors.New("instance budget exceeded")
	ErrShaderDataTooLarge     = errors.New("shader data block exceeds the maximum size")
	ErrTooManySamplers        = errors.New("sampler count exceeds the maximum")
	ErrInvalidMeshData        = errors.New("invalid mesh data")
	ErrInvalidTextureData     = errors.New("invalid texture data")
	ErrMaterialDataRange      = errors.New("material data write out of range")
	ErrUnknownProperty        = errors.New("unknown shader property")
	ErrInvalidFrameState      = errors.New("invalid frame state")
	ErrFrameRecording         = errors.New("resources cannot change while a frame is recording")
	ErrDeviceUnsuitable       = errors.New("no suitable physical device")
	ErrMissingExtension       = errors.New("required extension not supported")
	ErrVulkanCall             = errors.New("vulkan call failed")
	ErrUnsupportedAsset       = errors.New("unsupported asset type")
	ErrInvalidAsset           = errors.New("malformed asset")
	ErrUnknown                = errors.New("unknown")
)
