package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-xr/engine/assets"
	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-xr/engine/renderer/vulkan"
	"github.com/spaghettifunk/anima-xr/engine/systems"
	"github.com/spaghettifunk/anima-xr/engine/xr"
	"github.com/spaghettifunk/anima-xr/engine/xr/simulator"
)

var _ assets.MaterialTarget = (*renderer.Renderer)(nil)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// Idle wait while the runtime does not want frames.
const idleSleep = 10 * time.Millisecond

// Seconds between two frame time reports.
const metricsReportInterval = 5.0

type Engine struct {
	currentStage Stage
	config       *Config
	gameInstance *Game
	// Cleared from event listeners, which may fire on other goroutines.
	isRunning atomic.Bool

	runtime  *simulator.Simulator
	session  *xr.Session
	backend  *vulkan.VulkanRenderer
	renderer *renderer.Renderer
	assets   *assets.AssetManager
	jobs     *systems.JobSystem

	// Materials reloaded on asset changes. Set once the renderer exists.
	materials assets.MaterialTarget

	clock    *core.Clock
	lastTime float64
}

func New(config *Config, g *Game) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(config.Application.LogLevel); err != nil {
		return nil, err
	}

	jobs, err := systems.NewJobSystem(config.Jobs.Workers, config.Jobs.QueueSize)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewAssetManager(config.Assets.Root, config.Assets.HotReload, jobs)
	if err != nil {
		core.LogError(err.Error())
		_ = jobs.Shutdown()
		return nil, err
	}

	runtime := simulator.New(config.SimulatorConfig())

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       config,
		gameInstance: g,
		runtime:      runtime,
		session:      xr.NewSession(runtime),
		backend:      vulkan.New(config.Renderer.Debug),
		assets:       am,
		jobs:         jobs,
		clock:        core.NewClock(),
	}, nil
}

// Context is what the game hooks receive.
func (e *Engine) Context() *Context {
	return &Context{
		Config:   e.config,
		Renderer: e.renderer,
		Session:  e.session,
		Assets:   e.assets,
		Jobs:     e.jobs,
	}
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized")
	}
	e.currentStage = EngineStageInitializing

	if err := core.InputInitialize(); err != nil {
		return err
	}
	core.EventInitialize()
	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e, e.onAssetChanged)

	// The runtime loads glfw and with it the Vulkan loader.
	if err := e.session.Initialize(); err != nil {
		return err
	}

	if err := e.backend.Initialize(e.config.Application.Name, e.runtime, e.config.Renderer.MaxSamples); err != nil {
		return err
	}

	ctx := e.backend.Context()
	binding := xr.GraphicsBinding{
		Instance:         ctx.Instance,
		PhysicalDevice:   ctx.Device.PhysicalDevice,
		Device:           ctx.Device.LogicalDevice,
		QueueFamilyIndex: ctx.Device.GraphicsQueueIndex,
		QueueIndex:       0,
	}
	if err := e.session.CreateSession(binding); err != nil {
		return err
	}

	w, h, ok := e.session.GetSwapchainDimensions()
	if !ok {
		return fmt.Errorf("%w: session has no swapchain", core.ErrInvalidFrameState)
	}
	if err := e.backend.CreateRenderTargets(e.session.SwapchainImages(), w, h, e.runtime.SwapchainFormat()); err != nil {
		return err
	}

	r, err := renderer.New(e.backend)
	if err != nil {
		return err
	}
	e.renderer = r
	e.materials = r

	if err := e.assets.Initialize(); err != nil {
		return err
	}

	e.session.RequestStartSession()

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.Context()); err != nil {
			return err
		}
	}

	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	ctx := e.Context()
	var sinceReport float64

	for e.isRunning.Load() {
		e.session.Update()
		if e.session.ShouldExit() || !e.isRunning.Load() {
			break
		}

		e.jobs.Update()
		e.assets.Update()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		e.lastTime = currentTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(ctx, delta); err != nil {
				core.LogError("Game update failed, shutting down.")
				return err
			}
		}

		if e.session.SessionRunning() {
			if err := e.frame(ctx, delta); err != nil {
				return err
			}
		} else {
			e.renderer.DiscardFrame()
			time.Sleep(idleSleep)
		}

		// Input state is copied last so this frame's presses are seen once.
		if err := core.InputUpdate(); err != nil {
			return err
		}

		core.MetricsUpdate(delta)
		sinceReport += delta
		if sinceReport >= metricsReportInterval {
			fps, ms := core.MetricsFrame()
			stats := e.renderer.LastFrameStats()
			core.LogDebug("%.1f fps (%.2f ms), %d draw calls, %d instances", fps, ms, stats.Drawcalls, stats.Instances)
			sinceReport = 0
		}
	}

	e.isRunning.Store(false)
	return nil
}

// frameSession is the part of the xr session one frame goes through.
type frameSession interface {
	BeginFrame() (shouldRender bool, ok bool)
	GetCameraData(near, far float32) (metadata.CameraData, bool)
	GetNextSwapchainImage() (uint32, bool)
	ReleaseSwapchainImage() bool
	EndFrame() bool
}

// frameRenderer is the part of the renderer one frame goes through.
type frameRenderer interface {
	UpdateCameraRaw(data metadata.CameraData)
	Render(imageIndex uint32) error
	DiscardFrame()
}

var (
	_ frameSession  = (*xr.Session)(nil)
	_ frameRenderer = (*renderer.Renderer)(nil)
)

func (e *Engine) frame(ctx *Context, delta float64) error {
	draw := func() error {
		if e.gameInstance.FnRender == nil {
			return nil
		}
		return e.gameInstance.FnRender(ctx, delta)
	}
	return runFrame(e.session, e.renderer, e.config.XR.Near, e.config.XR.Far, draw)
}

// runFrame runs one runtime frame. A frame that was begun is always ended,
// also when rendering fails, and draws queued by a frame that does not reach
// Render are discarded.
func runFrame(session frameSession, r frameRenderer, near, far float32, draw func() error) error {
	shouldRender, ok := session.BeginFrame()
	if !ok {
		r.DiscardFrame()
		return nil
	}

	var renderErr error
	if shouldRender {
		renderErr = renderFrame(session, r, near, far, draw)
	} else {
		r.DiscardFrame()
	}

	if !session.EndFrame() {
		core.LogWarn("failed to end the xr frame")
	}
	return renderErr
}

func renderFrame(session frameSession, r frameRenderer, near, far float32, draw func() error) error {
	camera, ok := session.GetCameraData(near, far)
	if !ok {
		r.DiscardFrame()
		return nil
	}
	r.UpdateCameraRaw(camera)

	if err := draw(); err != nil {
		r.DiscardFrame()
		core.LogError("Game render failed, shutting down.")
		return err
	}

	index, ok := session.GetNextSwapchainImage()
	if !ok {
		core.LogWarn("no swapchain image acquired, skipping frame")
		r.DiscardFrame()
		return nil
	}
	err := r.Render(index)
	if !session.ReleaseSwapchainImage() {
		core.LogWarn("failed to release swapchain image %d", index)
	}
	if err != nil {
		core.LogError("failed to render frame: %s", err)
	}
	return err
}

// Shutdown releases everything Initialize created, also after a partial
// initialization. The order matters: the runtime's images and surface go
// before the renderer's device and instance, and glfw goes last.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	if e.gameInstance.FnShutdown != nil && e.renderer != nil {
		if err := e.gameInstance.FnShutdown(e.Context()); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}

	if err := e.assets.Shutdown(); err != nil && err != assets.ErrAssetManagerClosed {
		core.LogError(err.Error())
	}
	if err := e.jobs.Shutdown(); err != nil {
		core.LogError(err.Error())
	}

	if err := e.backend.DestroyRenderTargets(); err != nil {
		core.LogError(err.Error())
	}
	if !e.session.DestroySession() {
		e.runtime.DestroySession()
	}

	if e.renderer != nil {
		if err := e.renderer.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
		e.renderer = nil
		e.materials = nil
	} else if err := e.backend.Shutdown(); err != nil {
		core.LogError(err.Error())
	}

	e.session.Shutdown()

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, e)
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, e)
	core.EventUnregister(core.EVENT_CODE_ASSET_CHANGED, e)
	if err := core.InputShutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

func (e *Engine) onQuit(context core.EventContext, listener interface{}) bool {
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.isRunning.Store(false)
	return true
}

func (e *Engine) onKey(context core.EventContext, listener interface{}) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

// onAssetChanged reloads materials whose file changed. Other assets are left
// to the game.
func (e *Engine) onAssetChanged(context core.EventContext, listener interface{}) bool {
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if e.materials == nil || !strings.EqualFold(filepath.Ext(ae.Path), ".amt") {
		return false
	}
	if _, err := e.assets.LoadMaterial(e.materials, ae.Path); err != nil {
		core.LogError("failed to reload material %s: %s", ae.Path, err)
		return false
	}
	core.LogInfo("Reloaded material %s.", ae.Path)
	return false
}
