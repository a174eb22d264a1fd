package metadata

const (
	MaxMaterialCount        uint32 = 256
	MaxShaderCount          uint32 = 64
	MaxTextureCount         uint32 = 256
	MaxMeshCount            uint32 = 256
	MaxDrawcallCount        uint32 = 1024
	MaxInstanceCount        uint32 = 32768
	MaxInstanceCountPerDraw uint32 = 1024
	MaxSamplerCount         uint32 = 8
	MaxShaderDataBlockSize  uint32 = 256
	MaxFramesInFlight       uint32 = 2

	/** @brief Size in bytes of one per-instance transform. */
	InstanceDataSize uint32 = 64
	/** @brief Descriptor binding of the first sampler. Samplers follow consecutively. */
	SamplerBindingBase uint32 = 4
	/** @brief Descriptor binding of the environment cubemap. */
	CubemapBinding uint32 = 12
)
