package renderer

import (
	"fmt"
	"sort"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/renderer/metadata"
)

// RenderQueue accumulates the drawcalls of one frame. It is emptied by Reset
// after every Render.
type RenderQueue struct {
	calls         []Drawcall
	data          []DrawcallData
	instanceCount uint32
	maxDrawcalls  uint32
	maxInstances  uint32
}

func NewRenderQueue(maxDrawcalls, maxInstances uint32) *RenderQueue {
	return &RenderQueue{
		calls:        make([]Drawcall, 0, maxDrawcalls),
		data:         make([]DrawcallData, maxDrawcalls),
		maxDrawcalls: maxDrawcalls,
		maxInstances: maxInstances,
	}
}

// Push reserves count instances and one drawcall. Nothing changes when either
// budget would be exceeded.
func (q *RenderQueue) Push(mesh, material uint32, layer metadata.RenderLayer, count uint32) (uint32, uint32, error) {
	if uint32(len(q.calls)) >= q.maxDrawcalls {
		return 0, 0, fmt.Errorf("%w: %d drawcalls already queued", core.ErrDrawcallBudgetExceeded, len(q.calls))
	}
	if uint64(q.instanceCount)+uint64(count) > uint64(q.maxInstances) {
		return 0, 0, fmt.Errorf("%w: %d queued + %d requested > %d", core.ErrInstanceBudgetExceeded, q.instanceCount, count, q.maxInstances)
	}

	callIndex := uint32(len(q.calls))
	instanceOffset := q.instanceCount
	q.instanceCount += count

	q.data[callIndex] = DrawcallData{InstanceOffset: instanceOffset, InstanceCount: count}
	q.calls = append(q.calls, NewDrawcall(callIndex, mesh, material, layer))
	return callIndex, instanceOffset, nil
}

// Sort orders the queue by key. Calls with equal keys keep submission order.
func (q *RenderQueue) Sort() {
	sort.SliceStable(q.calls, func(i, j int) bool {
		return q.calls[i].Less(q.calls[j])
	})
}

func (q *RenderQueue) Reset() {
	q.calls = q.calls[:0]
	q.instanceCount = 0
}

func (q *RenderQueue) Len() int {
	return len(q.calls)
}

func (q *RenderQueue) At(i int) Drawcall {
	return q.calls[i]
}

// Data returns the instance range recorded for a call index.
func (q *RenderQueue) Data(callIndex uint32) DrawcallData {
	return q.data[callIndex]
}

func (q *RenderQueue) InstanceCount() uint32 {
	return q.instanceCount
}
