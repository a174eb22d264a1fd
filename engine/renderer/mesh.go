package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func validateMesh(info *metadata.MeshCreateInfo) error {
	if info == nil || info.Triangles == nil {
		return fmt.Errorf("%w: triangles cannot be nil", core.ErrInvalidMeshData)
	}
	if info.VertexCount == 0 {
		return fmt.Errorf("%w: vertex count is zero", core.ErrInvalidMeshData)
	}
	attributes := []struct {
		name string
		n    int
		set  bool
	}{
		{"position", len(info.Position), info.Position != nil},
		{"texcoord0", len(info.Texcoord0), info.Texcoord0 != nil},
		{"normal", len(info.Normal), info.Normal != nil},
		{"tangent", len(info.Tangent), info.Tangent != nil},
		{"color", len(info.Color), info.Color != nil},
	}
	for _, a := range attributes {
		if a.set && uint32(a.n) != info.VertexCount {
			return fmt.Errorf("%w: %s has %d entries, expected %d", core.ErrInvalidMeshData, a.name, a.n, info.VertexCount)
		}
	}
	for i, tri := range info.Triangles {
		for _, idx := range tri {
			if idx >= info.VertexCount {
				return fmt.Errorf("%w: triangle %d references vertex %d of %d", core.ErrInvalidMeshData, i, idx, info.VertexCount)
			}
		}
	}
	return nil
}

// CreateMesh uploads the vertex attributes and triangles to device memory.
// Blocks until the upload completes.
func (r *Renderer) CreateMesh(name string, info *metadata.MeshCreateInfo) (containers.Handle, error) {
	if err := r.idle("CreateMesh"); err != nil {
		return containers.InvalidHandle, err
	}
	if err := validateMesh(info); err != nil {
		core.LogError("CreateMesh %q: %s", name, err)
		return containers.InvalidHandle, err
	}

	mesh, h := r.meshes.Add()
	if mesh == nil {
		return containers.InvalidHandle, fmt.Errorf("CreateMesh %q: %w (%d meshes)", name, core.ErrPoolFull, r.meshes.Capacity())
	}
	mesh.Name = register(r.meshNames, "mesh", name, h)
	mesh.VertexCount = info.VertexCount
	mesh.IndexCount = uint32(len(info.Triangles)) * 3
	mesh.Attributes = info.Attributes()

	if err := r.backend.CreateMesh(info, mesh); err != nil {
		unregister(r.meshNames, mesh.Name, h)
		r.meshes.Remove(h)
		core.LogError("CreateMesh %q: %s", name, err)
		return containers.InvalidHandle, err
	}
	return h, nil
}

// FreeMesh releases the mesh buffers. Stale handles are ignored.
func (r *Renderer) FreeMesh(h containers.Handle) bool {
	if r.idle("FreeMesh") != nil {
		return false
	}
	mesh := r.meshes.Get(h)
	if mesh == nil {
		return false
	}
	r.backend.DestroyMesh(mesh)
	unregister(r.meshNames, mesh.Name, h)
	return r.meshes.Remove(h)
}

func (r *Renderer) Mesh(h containers.Handle) *metadata.Mesh {
	return r.meshes.Get(h)
}

func (r *Renderer) MeshByName(name string) (containers.Handle, bool) {
	return lookup(r.meshNames, name)
}

func (r *Renderer) MeshCount() uint32 {
	return r.meshes.Count()
}
