package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// VulkanMesh keeps one device-local buffer per attribute and a 32-bit index buffer.
type VulkanMesh struct {
	Vertex [metadata.VERTEX_BINDING_COUNT]*VulkanBuffer
	Index  *VulkanBuffer
}

// sliceBytes views the backing array of s as bytes.
func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

func meshAttributeData(info *metadata.MeshCreateInfo) [metadata.VERTEX_BINDING_COUNT][]byte {
	var data [metadata.VERTEX_BINDING_COUNT][]byte
	data[metadata.VERTEX_BINDING_POSITION] = sliceBytes(info.Position)
	data[metadata.VERTEX_BINDING_TEXCOORD_0] = sliceBytes(info.Texcoord0)
	data[metadata.VERTEX_BINDING_NORMAL] = sliceBytes(info.Normal)
	data[metadata.VERTEX_BINDING_TANGENT] = sliceBytes(info.Tangent)
	data[metadata.VERTEX_BINDING_COLOR] = sliceBytes(info.Color)
	return data
}

func createMesh(context *VulkanContext, info *metadata.MeshCreateInfo) (*VulkanMesh, error) {
	mesh := &VulkanMesh{}
	for binding, data := range meshAttributeData(info) {
		if data == nil {
			continue
		}
		buffer, err := UploadDeviceLocalBuffer(context, data, vk.BufferUsageVertexBufferBit)
		if err != nil {
			mesh.Destroy(context)
			return nil, err
		}
		mesh.Vertex[binding] = buffer
	}

	index, err := UploadDeviceLocalBuffer(context, sliceBytes(info.Triangles), vk.BufferUsageIndexBufferBit)
	if err != nil {
		mesh.Destroy(context)
		return nil, err
	}
	mesh.Index = index
	return mesh, nil
}

func (m *VulkanMesh) Destroy(context *VulkanContext) {
	for i, buffer := range m.Vertex {
		if buffer != nil {
			buffer.Destroy(context)
			m.Vertex[i] = nil
		}
	}
	if m.Index != nil {
		m.Index.Destroy(context)
		m.Index = nil
	}
}

// Bind binds the attribute buffers the shader consumes and the index buffer.
func (m *VulkanMesh) Bind(cmd vk.CommandBuffer, inputs metadata.VertexAttributeFlags) {
	offsets := []vk.DeviceSize{0}
	for binding, attribute := range metadata.VertexBindingAttributes {
		if !inputs.Has(attribute) || m.Vertex[binding] == nil {
			continue
		}
		vk.CmdBindVertexBuffers(cmd, uint32(binding), 1, []vk.Buffer{m.Vertex[binding].Handle}, offsets)
	}
	vk.CmdBindIndexBuffer(cmd, m.Index.Handle, 0, vk.IndexTypeUint32)
}
