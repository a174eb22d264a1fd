package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/anima-xr/engine"
	"github.com/spaghettifunk/anima-xr/engine/assets"
	"github.com/spaghettifunk/anima-xr/engine/containers"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/math"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-xr/engine/xr"
)

const (
	gridSize    = 6
	gridSpacing = 0.25
	gridScale   = 0.05
	// Radians per second.
	gridSpin = 0.3

	panelFontSize  = 32
	panelText      = "Anima XR\nWASD to walk, right mouse to look"
	panelPixelSize = 0.002
)

// Bitmap font first, a TrueType font as fallback.
var panelFonts = []string{"fonts/ui.fnt", "fonts/ui.ttf"}

type TestGame struct {
	*engine.Game
}

type gameState struct {
	cube      containers.Handle
	grid      containers.Handle
	hands     containers.Handle
	text      containers.Handle
	textPanel containers.Handle

	fonts     *assets.FontCache
	panelFont string

	angle      float32
	gridRoot   *math.Transform
	transforms []mgl32.Mat4
	panel      mgl32.Mat4
}

func NewTestGame() *engine.Game {
	tg := &TestGame{
		Game: &engine.Game{
			State: &gameState{
				cube:      containers.InvalidHandle,
				grid:      containers.InvalidHandle,
				hands:     containers.InvalidHandle,
				text:      containers.InvalidHandle,
				textPanel: containers.InvalidHandle,
			},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown

	return tg.Game
}

func (g *TestGame) Initialize(ctx *engine.Context) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)

	if _, err := loadShader(ctx, "vertex_color", &metadata.ShaderCreateInfo{
		Metadata: metadata.ShaderMetadata{
			Layer: metadata.RENDER_LAYER_OPAQUE,
			DataLayout: metadata.ShaderDataLayout{
				DataSize: 16,
				Properties: []metadata.ShaderPropertyInfo{
					{Name: "tint", Type: metadata.SHADER_PROPERTY_VEC4, Count: 1, Offset: 0},
				},
			},
		},
		VertexInputs: metadata.VERTEX_POSITION_BIT | metadata.VERTEX_NORMAL_BIT | metadata.VERTEX_COLOR_BIT,
	}); err != nil {
		return err
	}

	cube, err := ctx.Renderer.CreateMesh("cube", CubeMesh())
	if err != nil {
		return err
	}
	state.cube = cube

	if state.grid, err = ctx.Assets.LoadMaterial(ctx.Renderer, "materials/grid.amt"); err != nil {
		return err
	}
	if state.hands, err = ctx.Assets.LoadMaterial(ctx.Renderer, "materials/hands.amt"); err != nil {
		return err
	}

	state.gridRoot = math.TransformFromPosition(mgl32.Vec3{0, 1.5, -1.5})
	state.panel = PanelTransform(mgl32.Vec3{-0.6, 2.3, -2}, panelPixelSize).GetLocal()

	state.fonts = assets.NewFontCache(ctx.Assets, true)
	for _, name := range panelFonts {
		if _, ok := ctx.Assets.Asset(name); !ok {
			continue
		}
		if err := g.createTextPanel(ctx, state, name); err != nil {
			// The panel is decoration, the scene runs without it.
			core.LogWarn("failed to create text panel from %s: %s", name, err)
			continue
		}
		break
	}

	ctx.Renderer.UpdateMainLight(mgl32.QuatRotate(mgl32.DegToRad(-45), mgl32.Vec3{1, 0, 0}), mgl32.Vec4{1, 0.95, 0.9, 1})
	ctx.Renderer.UpdateAmbientLight(mgl32.Vec4{0.1, 0.1, 0.12, 1})

	if w, d, ok := ctx.Session.GetSpaceDimensions(); ok {
		core.LogInfo("Play area is %.1fm x %.1fm.", w, d)
	}
	return nil
}

func (g *TestGame) createTextPanel(ctx *engine.Context, state *gameState, fontName string) error {
	if _, ok := ctx.Renderer.ShaderByName("text"); !ok {
		if _, err := loadShader(ctx, "text", &metadata.ShaderCreateInfo{
			Metadata: metadata.ShaderMetadata{
				Layer: metadata.RENDER_LAYER_OVERLAY,
				DataLayout: metadata.ShaderDataLayout{
					DataSize: 16,
					Properties: []metadata.ShaderPropertyInfo{
						{Name: "color", Type: metadata.SHADER_PROPERTY_VEC4, Count: 1, Offset: 0},
					},
				},
			},
			VertexInputs: metadata.VERTEX_POSITION_BIT | metadata.VERTEX_TEXCOORD_0_BIT,
			SamplerCount: 1,
		}); err != nil {
			return err
		}
	}

	font, err := state.fonts.Acquire(fontName, panelFontSize)
	if err != nil {
		return err
	}
	info := font.TextMesh(panelText, 1)
	if info == nil {
		state.fonts.Release(fontName, panelFontSize)
		return fmt.Errorf("%w: no glyph of the panel text is in %s", core.ErrInvalidAsset, fontName)
	}
	if state.text, err = ctx.Renderer.CreateMesh("panel_text", info); err != nil {
		state.fonts.Release(fontName, panelFontSize)
		return err
	}
	state.textPanel, err = ctx.Assets.CreateTextMaterial(ctx.Renderer, "text", font, map[string]interface{}{
		"color": []interface{}{1.0, 1.0, 1.0, 1.0},
	})
	if err != nil {
		return err
	}
	state.panelFont = fontName
	return nil
}

// loadShader reads shaders/<name>.vert.spv and shaders/<name>.frag.spv and
// creates the shader under name.
func loadShader(ctx *engine.Context, name string, info *metadata.ShaderCreateInfo) (containers.Handle, error) {
	vert, err := ctx.Assets.Load(fmt.Sprintf("shaders/%s.vert.spv", name), nil)
	if err != nil {
		return containers.InvalidHandle, err
	}
	defer func() { _ = ctx.Assets.Unload(vert) }()
	frag, err := ctx.Assets.Load(fmt.Sprintf("shaders/%s.frag.spv", name), nil)
	if err != nil {
		return containers.InvalidHandle, err
	}
	defer func() { _ = ctx.Assets.Unload(frag) }()

	info.VertexCode = vert.Data.([]byte)
	info.FragmentCode = frag.Data.([]byte)
	return ctx.Renderer.CreateShader(name, info)
}

func (g *TestGame) Update(ctx *engine.Context, deltaTime float64) error {
	state := g.State.(*gameState)
	state.angle += float32(deltaTime) * gridSpin
	state.gridRoot.SetRotation(mgl32.QuatRotate(state.angle, mgl32.Vec3{0, 1, 0}))
	state.transforms = GridTransforms(state.gridRoot, gridSize, gridSpacing, gridScale)
	return nil
}

func (g *TestGame) Render(ctx *engine.Context, deltaTime float64) error {
	state := g.State.(*gameState)

	if err := ctx.Renderer.DrawMeshInstanced(state.cube, state.grid, state.transforms); err != nil {
		return err
	}

	for _, hand := range []xr.Hand{xr.HAND_LEFT, xr.HAND_RIGHT} {
		pose, ok := ctx.Session.GetHandTransform(hand)
		if !ok {
			continue
		}
		if err := ctx.Renderer.DrawMesh(state.cube, state.hands, HandTransform(pose)); err != nil {
			return err
		}
	}

	if !state.text.IsNull() && !state.textPanel.IsNull() {
		if err := ctx.Renderer.DrawMesh(state.text, state.textPanel, state.panel); err != nil {
			return err
		}
	}
	return nil
}

func (g *TestGame) Shutdown(ctx *engine.Context) error {
	core.LogDebug("TestGame Shutdown fn....")
	state := g.State.(*gameState)
	if state.panelFont != "" {
		state.fonts.Release(state.panelFont, panelFontSize)
	}
	if state.fonts != nil {
		state.fonts.Shutdown()
	}
	// The renderer frees every remaining resource on shutdown.
	return nil
}
