package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// fakeBackend records the commands issued by the renderer in memory.
type fakeBackend struct {
	layout   DataLayout
	uniform  []byte
	instance []byte

	frames [metadata.MaxFramesInFlight]*fakeFrame

	created   map[string]int
	destroyed map[string]int
	envBinds  int

	failCreate bool
	shutdown   bool
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{
		created:   make(map[string]int),
		destroyed: make(map[string]int),
	}
	for i := range b.frames {
		b.frames[i] = &fakeFrame{}
	}
	return b
}

func (b *fakeBackend) MinUniformBufferOffsetAlignment() uint64 { return 256 }

func (b *fakeBackend) CreateDataBuffers(layout DataLayout) error {
	b.layout = layout
	b.uniform = make([]byte, layout.UniformSize)
	b.instance = make([]byte, layout.InstanceBufferSize)
	return nil
}

func (b *fakeBackend) UniformData() []byte  { return b.uniform }
func (b *fakeBackend) InstanceData() []byte { return b.instance }

func (b *fakeBackend) create(kind string) error {
	if b.failCreate {
		return fmt.Errorf("create %s failed", kind)
	}
	b.created[kind]++
	return nil
}

func (b *fakeBackend) CreateMesh(_ *metadata.MeshCreateInfo, _ *metadata.Mesh) error {
	return b.create("mesh")
}
func (b *fakeBackend) DestroyMesh(*metadata.Mesh) { b.destroyed["mesh"]++ }
func (b *fakeBackend) CreateTexture(_ *metadata.TextureCreateInfo, _ *metadata.Texture) error {
	return b.create("texture")
}
func (b *fakeBackend) DestroyTexture(*metadata.Texture) { b.destroyed["texture"]++ }
func (b *fakeBackend) CreateShader(_ *metadata.ShaderCreateInfo, _ *metadata.Shader) error {
	return b.create("shader")
}
func (b *fakeBackend) DestroyShader(*metadata.Shader) { b.destroyed["shader"]++ }
func (b *fakeBackend) CreateMaterial(_ *metadata.Material, _ *metadata.Shader, _ uint32, _ []*metadata.Texture) error {
	return b.create("material")
}
func (b *fakeBackend) UpdateMaterialTexture(*metadata.Material, uint32, *metadata.Texture) error {
	return nil
}
func (b *fakeBackend) UpdateMaterialEnvironment(*metadata.Material, *metadata.Shader, *metadata.Texture) error {
	b.envBinds++
	return nil
}
func (b *fakeBackend) DestroyMaterial(*metadata.Material) { b.destroyed["material"]++ }

func (b *fakeBackend) Frame(index uint32) FrameContext { return b.frames[index] }
func (b *fakeBackend) WaitIdle() error                 { return nil }
func (b *fakeBackend) Shutdown() error {
	b.shutdown = true
	return nil
}

type fakeCommand struct {
	op   string
	a, b uint64
	name string
}

type fakeFrame struct {
	commands  []fakeCommand
	submits   int
	aborts    int
	failBegin bool
}

func (f *fakeFrame) record(op string, a, b uint64, name string) {
	f.commands = append(f.commands, fakeCommand{op: op, a: a, b: b, name: name})
}

func (f *fakeFrame) count(op string) int {
	n := 0
	for _, c := range f.commands {
		if c.op == op {
			n++
		}
	}
	return n
}

func (f *fakeFrame) Wait() error { return nil }

func (f *fakeFrame) Begin() error {
	if f.failBegin {
		return fmt.Errorf("begin failed")
	}
	f.commands = f.commands[:0]
	return nil
}

func (f *fakeFrame) TransferUniformData(offset, size uint64) {
	f.record("uniform", offset, size, "")
}

func (f *fakeFrame) TransferInstanceData(offset, size uint64) {
	f.record("instance", offset, size, "")
}

func (f *fakeFrame) BeginForwardRenderPass(imageIndex uint32) error {
	f.record("begin_pass", uint64(imageIndex), 0, "")
	return nil
}

func (f *fakeFrame) BindPipeline(shader *metadata.Shader) {
	f.record("pipeline", 0, 0, shader.Name)
}

func (f *fakeFrame) BindMaterial(_ *metadata.Shader, material *metadata.Material, offset uint32) {
	f.record("material", uint64(offset), 0, material.Name)
}

func (f *fakeFrame) BindMesh(mesh *metadata.Mesh, _ metadata.VertexAttributeFlags) {
	f.record("mesh", 0, 0, mesh.Name)
}

func (f *fakeFrame) DrawIndexed(indexCount, instanceCount uint32) {
	f.record("draw", uint64(indexCount), uint64(instanceCount), "")
}

func (f *fakeFrame) EndRenderPass() { f.record("end_pass", 0, 0, "") }

func (f *fakeFrame) EndAndSubmit() error {
	f.submits++
	return nil
}

func (f *fakeFrame) Abort() { f.aborts++ }
