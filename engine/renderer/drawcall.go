package renderer

import "github.com/spaghettifunk/anima-xr/engine/renderer/metadata"

// Drawcall is a sortable 64 bit key. Ascending order groups draws by layer,
// then material, then mesh.
//
//	bits  0-11  per-call data index
//	bits 12-19  mesh slot
//	bits 20-31  material slot
//	bits 56-57  render layer
type Drawcall uint64

const (
	drawcallDataIndexMask = 0x1000
	drawcallMeshMask      = 0x100
	drawcallMaterialMask  = 0x1000
	drawcallLayerMask     = 0x4

	drawcallMeshShift     = 12
	drawcallMaterialShift = 20
	drawcallLayerShift    = 56
)

func NewDrawcall(dataIndex, mesh, material uint32, layer metadata.RenderLayer) Drawcall {
	return Drawcall(uint64(dataIndex%drawcallDataIndexMask) |
		uint64(mesh%drawcallMeshMask)<<drawcallMeshShift |
		uint64(material%drawcallMaterialMask)<<drawcallMaterialShift |
		uint64(uint32(layer)%drawcallLayerMask)<<drawcallLayerShift)
}

func (d Drawcall) DataIndex() uint32 {
	return uint32(uint64(d) % drawcallDataIndexMask)
}

func (d Drawcall) Mesh() uint32 {
	return uint32((uint64(d) >> drawcallMeshShift) % drawcallMeshMask)
}

func (d Drawcall) Material() uint32 {
	return uint32((uint64(d) >> drawcallMaterialShift) % drawcallMaterialMask)
}

func (d Drawcall) Layer() metadata.RenderLayer {
	return metadata.RenderLayer(uint64(d) >> drawcallLayerShift)
}

func (d Drawcall) Less(other Drawcall) bool {
	return d < other
}

// DrawcallData is the instance range of a drawcall.
type DrawcallData struct {
	InstanceOffset uint32
	InstanceCount  uint32
}
