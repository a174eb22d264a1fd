package engine

import (
	"github.com/spaghettifunk/anima-xr/engine/assets"
	"github.com/spaghettifunk/anima-xr/engine/renderer"
	"github.com/spaghettifunk/anima-xr/engine/systems"
	"github.com/spaghettifunk/anima-xr/engine/xr"
)

// Context is what the engine hands to the game hooks.
type Context struct {
	Config   *Config
	Renderer *renderer.Renderer
	Session  *xr.Session
	Assets   *assets.AssetManager
	Jobs     *systems.JobSystem
}

type Game struct {
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     Render
	FnShutdown   Shutdown
}

// Initialize runs once the renderer and the XR session exist.
type Initialize func(ctx *Context) error

// Update runs every iteration of the loop, also while nothing is rendered.
type Update func(ctx *Context, deltaTime float64) error

// Render queues the frame's draws. It only runs when the runtime wants a
// frame, after the camera has been updated for the predicted display time.
type Render func(ctx *Context, deltaTime float64) error

type Shutdown func(ctx *Context) error
