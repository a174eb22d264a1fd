package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDataLayout(t *testing.T) {
	tests := []struct {
		align          uint64
		cameraSize     uint64
		lightingSize   uint64
		elementSize    uint64
		instanceStride uint64
	}{
		{align: 0, cameraSize: 288, lightingSize: 176, elementSize: 256, instanceStride: 64},
		{align: 16, cameraSize: 288, lightingSize: 176, elementSize: 256, instanceStride: 64},
		{align: 64, cameraSize: 320, lightingSize: 192, elementSize: 256, instanceStride: 64},
		{align: 256, cameraSize: 512, lightingSize: 256, elementSize: 256, instanceStride: 256},
	}
	for _, tt := range tests {
		l := NewDataLayout(tt.align)
		assert.Equal(t, uint64(0), l.CameraOffset)
		assert.Equal(t, tt.cameraSize, l.CameraSize)
		assert.Equal(t, tt.cameraSize, l.LightingOffset)
		assert.Equal(t, tt.lightingSize, l.LightingSize)
		assert.Equal(t, tt.cameraSize+tt.lightingSize, l.ShaderDataOffset)
		assert.Equal(t, tt.elementSize, l.ShaderDataElementSize)
		assert.Equal(t, l.ShaderDataOffset+256*tt.elementSize, l.UniformSize)

		assert.Equal(t, tt.instanceStride, l.InstanceStride)
		assert.Equal(t, uint64(64*1024), l.InstanceRange)
		assert.Equal(t, 32768*tt.instanceStride+64*1024, l.InstanceBufferSize)

		assert.Equal(t, l.ShaderDataOffset+3*tt.elementSize, l.MaterialDataOffset(3))
		assert.Equal(t, 10*tt.instanceStride, l.InstanceOffset(10))
		if tt.align > 0 {
			assert.Zero(t, l.LightingOffset%tt.align)
			assert.Zero(t, l.ShaderDataOffset%tt.align)
			assert.Zero(t, l.MaterialDataOffset(255)%tt.align)
		}
	}
}

func TestInstanceRangeStaysInBounds(t *testing.T) {
	l := NewDataLayout(256)
	last := l.InstanceOffset(32768 - 1)
	assert.LessOrEqual(t, last+l.InstanceRange, l.InstanceBufferSize)
}
