package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Assets.Root = t.TempDir()
	cfg.Assets.HotReload = false
	cfg.Jobs.Workers = 1

	e, err := New(cfg, &Game{})
	require.NoError(t, err)
	return e
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jobs.Workers = 0
	_, err := New(cfg, &Game{})
	assert.Error(t, err)
}

func TestRunRequiresInitialize(t *testing.T) {
	e := newTestEngine(t)
	assert.Error(t, e.Run())
	require.NoError(t, e.Shutdown())
}

// Shutdown must be safe after a failed or skipped Initialize.
func TestShutdownWithoutInitialize(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageUninitialized, e.currentStage)
	assert.Nil(t, e.renderer)
}

func TestEscapeQuits(t *testing.T) {
	core.EventInitialize()
	e := newTestEngine(t)
	defer e.Shutdown()
	e.isRunning.Store(true)

	require.True(t, core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, e.onQuit))
	require.True(t, core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, e.onKey))

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_A}})
	assert.True(t, e.isRunning.Load())

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	assert.False(t, e.isRunning.Load())
}

func TestAssetChangedIgnoredWithoutRenderer(t *testing.T) {
	e := newTestEngine(t)
	defer e.Shutdown()

	ctx := core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &core.AssetEvent{Path: "materials/grid.amt"}}
	assert.False(t, e.onAssetChanged(ctx, e))
	assert.False(t, e.onAssetChanged(core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED}, e))
}

type fakeFrameSession struct {
	begin        bool
	shouldRender bool
	camera       bool
	acquire      bool

	ends     int
	releases int
}

func (s *fakeFrameSession) BeginFrame() (bool, bool) { return s.shouldRender, s.begin }

func (s *fakeFrameSession) GetCameraData(near, far float32) (metadata.CameraData, bool) {
	return metadata.CameraData{}, s.camera
}

func (s *fakeFrameSession) GetNextSwapchainImage() (uint32, bool) { return 1, s.acquire }

func (s *fakeFrameSession) ReleaseSwapchainImage() bool {
	s.releases++
	return true
}

func (s *fakeFrameSession) EndFrame() bool {
	s.ends++
	return true
}

// fakeFrameRenderer queues draws like renderer.Renderer and rejects them
// once the drawcall budget is used up.
type fakeFrameRenderer struct {
	queued   int
	rendered []int
	discards int
}

func (r *fakeFrameRenderer) draw() error {
	if r.queued >= int(metadata.MaxDrawcallCount) {
		return core.ErrDrawcallBudgetExceeded
	}
	r.queued++
	return nil
}

func (r *fakeFrameRenderer) UpdateCameraRaw(metadata.CameraData) {}

func (r *fakeFrameRenderer) Render(imageIndex uint32) error {
	r.rendered = append(r.rendered, r.queued)
	r.queued = 0
	return nil
}

func (r *fakeFrameRenderer) DiscardFrame() {
	r.discards++
	r.queued = 0
}

func TestFrameWithoutImageDiscardsDraws(t *testing.T) {
	session := &fakeFrameSession{begin: true, shouldRender: true, camera: true}
	r := &fakeFrameRenderer{}

	for i := 0; i < 2*int(metadata.MaxDrawcallCount); i++ {
		require.NoError(t, runFrame(session, r, 0.1, 100, r.draw))
		assert.Zero(t, r.queued)
	}
	assert.Empty(t, r.rendered)
	assert.Zero(t, session.releases)
	assert.Equal(t, 2*int(metadata.MaxDrawcallCount), session.ends)

	session.acquire = true
	require.NoError(t, runFrame(session, r, 0.1, 100, r.draw))
	assert.Equal(t, []int{1}, r.rendered)
	assert.Equal(t, 1, session.releases)
}

func TestFrameSkipPathsDiscard(t *testing.T) {
	tests := []struct {
		name    string
		session fakeFrameSession
		ends    int
	}{
		{name: "not begun", session: fakeFrameSession{}, ends: 0},
		{name: "should not render", session: fakeFrameSession{begin: true}, ends: 1},
		{name: "no camera", session: fakeFrameSession{begin: true, shouldRender: true}, ends: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeFrameRenderer{queued: 3}
			require.NoError(t, runFrame(&tt.session, r, 0.1, 100, r.draw))
			assert.Zero(t, r.queued)
			assert.Equal(t, 1, r.discards)
			assert.Empty(t, r.rendered)
			assert.Equal(t, tt.ends, tt.session.ends)
		})
	}
}

func TestFrameRenderErrorEndsFrame(t *testing.T) {
	session := &fakeFrameSession{begin: true, shouldRender: true, camera: true, acquire: true}
	r := &fakeFrameRenderer{}
	boom := errors.New("boom")

	err := runFrame(session, r, 0.1, 100, func() error {
		_ = r.draw()
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, r.queued)
	assert.Empty(t, r.rendered)
	assert.Equal(t, 1, session.ends)
	assert.Zero(t, session.releases)
}
