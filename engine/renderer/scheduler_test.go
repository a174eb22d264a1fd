package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/core"
)

func TestFrameSchedulerCycle(t *testing.T) {
	b := newFakeBackend()
	s := NewFrameScheduler(b, 2)

	for frame := 0; frame < 4; frame++ {
		slot := s.Current()
		assert.Equal(t, uint32(frame%2), slot)

		require.NoError(t, s.BeginRenderCommands())
		assert.Equal(t, FRAME_STATE_RECORDING, s.State())
		require.NoError(t, s.TransferUniformBufferData(128))
		require.NoError(t, s.TransferInstanceBufferData(0, 0))
		require.NoError(t, s.BeginForwardRenderPass(0))
		assert.Equal(t, FRAME_STATE_IN_RENDER_PASS, s.State())
		require.NoError(t, s.EndRenderPass())
		require.NoError(t, s.EndRenderCommands())
		assert.Equal(t, FRAME_STATE_IDLE, s.State())

		// empty instance transfers are skipped
		assert.Equal(t, 0, b.frames[slot].count("instance"))
		assert.Equal(t, 1, b.frames[slot].count("uniform"))
	}
	assert.Equal(t, uint64(4), s.FrameNumber())
	assert.Equal(t, 2, b.frames[0].submits)
	assert.Equal(t, 2, b.frames[1].submits)
}

func TestFrameSchedulerMisordering(t *testing.T) {
	s := NewFrameScheduler(newFakeBackend(), 2)

	assert.ErrorIs(t, s.TransferUniformBufferData(1), core.ErrInvalidFrameState)
	assert.ErrorIs(t, s.BeginForwardRenderPass(0), core.ErrInvalidFrameState)
	assert.ErrorIs(t, s.EndRenderPass(), core.ErrInvalidFrameState)
	assert.ErrorIs(t, s.EndRenderCommands(), core.ErrInvalidFrameState)
	_, err := s.Recorder()
	assert.ErrorIs(t, err, core.ErrInvalidFrameState)

	require.NoError(t, s.BeginRenderCommands())
	assert.ErrorIs(t, s.BeginRenderCommands(), core.ErrInvalidFrameState)
	require.NoError(t, s.BeginForwardRenderPass(0))
	assert.ErrorIs(t, s.TransferUniformBufferData(1), core.ErrInvalidFrameState)
	assert.ErrorIs(t, s.EndRenderCommands(), core.ErrInvalidFrameState)
}

func TestFrameSchedulerAbort(t *testing.T) {
	b := newFakeBackend()
	s := NewFrameScheduler(b, 2)

	require.NoError(t, s.BeginRenderCommands())
	require.NoError(t, s.BeginForwardRenderPass(0))
	s.Abort()

	assert.Equal(t, FRAME_STATE_IDLE, s.State())
	assert.Equal(t, uint32(0), s.Current(), "aborted frame keeps its slot")
	assert.Equal(t, 1, b.frames[0].aborts)
	assert.Equal(t, 1, b.frames[0].count("end_pass"))
	assert.Equal(t, 0, b.frames[0].submits)

	// the slot is usable again
	require.NoError(t, s.BeginRenderCommands())
	require.NoError(t, s.EndRenderCommands())
	assert.Equal(t, 1, b.frames[0].submits)

	s.Abort()
	assert.Equal(t, 1, b.frames[0].aborts, "abort while idle is a no-op")
}

func TestFrameSchedulerBeginFailure(t *testing.T) {
	b := newFakeBackend()
	b.frames[0].failBegin = true
	s := NewFrameScheduler(b, 2)

	assert.Error(t, s.BeginRenderCommands())
	assert.Equal(t, FRAME_STATE_IDLE, s.State())
}
