package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

func TestRenderQueuePush(t *testing.T) {
	q := NewRenderQueue(4, 100)

	idx, off, err := q.Push(1, 2, metadata.RENDER_LAYER_OPAQUE, 10)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), idx)
	assert.Equal(t, uint32(0), off)

	idx, off, err = q.Push(3, 4, metadata.RENDER_LAYER_OPAQUE, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)
	assert.Equal(t, uint32(10), off)

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint32(15), q.InstanceCount())
	assert.Equal(t, DrawcallData{InstanceOffset: 10, InstanceCount: 5}, q.Data(1))
}

func TestRenderQueueBudgets(t *testing.T) {
	q := NewRenderQueue(2, 10)

	_, _, err := q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 11)
	assert.ErrorIs(t, err, core.ErrInstanceBudgetExceeded)
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, uint32(0), q.InstanceCount())

	_, _, err = q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 10)
	require.NoError(t, err)
	_, _, err = q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 1)
	assert.ErrorIs(t, err, core.ErrInstanceBudgetExceeded)

	_, _, err = q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 0)
	require.NoError(t, err)
	_, _, err = q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 0)
	assert.ErrorIs(t, err, core.ErrDrawcallBudgetExceeded)
	assert.Equal(t, 2, q.Len())
}

func TestRenderQueueSortIsStable(t *testing.T) {
	q := NewRenderQueue(8, 100)
	_, _, _ = q.Push(1, 5, metadata.RENDER_LAYER_SKYBOX, 1)
	_, _, _ = q.Push(1, 2, metadata.RENDER_LAYER_OPAQUE, 1)
	_, _, _ = q.Push(0, 2, metadata.RENDER_LAYER_OPAQUE, 1)
	_, _, _ = q.Push(1, 1, metadata.RENDER_LAYER_OPAQUE, 1)

	q.Sort()
	for i := 1; i < q.Len(); i++ {
		assert.False(t, q.At(i).Less(q.At(i-1)), "queue must be ascending at %d", i)
	}
	assert.Equal(t, uint32(3), q.At(0).DataIndex())
	assert.Equal(t, uint32(2), q.At(1).DataIndex())
	assert.Equal(t, uint32(1), q.At(2).DataIndex())
	assert.Equal(t, metadata.RENDER_LAYER_SKYBOX, q.At(3).Layer())
}

func TestRenderQueueReset(t *testing.T) {
	q := NewRenderQueue(2, 10)
	_, _, _ = q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 3)

	q.Reset()
	q.Reset()
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, uint32(0), q.InstanceCount())

	_, off, err := q.Push(0, 0, metadata.RENDER_LAYER_OPAQUE, 3)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), off)
}
