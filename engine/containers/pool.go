package containers

import "fmt"

// Handle identifies a live object in a Pool. The low 32 bits are the slot
// index, the high 32 bits the generation of that slot.
type Handle uint64

const InvalidHandle Handle = ^Handle(0)

func NewHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

func (h Handle) Index() uint32 {
	return uint32(h)
}

func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) IsNull() bool {
	return h == InvalidHandle
}

func (h Handle) String() string {
	if h.IsNull() {
		return "handle(null)"
	}
	return fmt.Sprintf("handle(%d:%d)", h.Index(), h.Generation())
}

// Pool is a fixed-capacity slot allocator. Objects live in a backing array
// that never moves, so pointers returned by Add and Get stay valid until the
// handle is removed.
//
// handles[0:count] are the live handles, handles[count:] are the free ones
// (carrying the generation the next Add will hand out). erase maps a slot
// index back to its position in handles.
type Pool[T any] struct {
	objs    []T
	handles []Handle
	erase   []uint32
	count   uint32
}

func NewPool[T any](capacity uint32) *Pool[T] {
	p := &Pool[T]{
		objs:    make([]T, capacity),
		handles: make([]Handle, capacity),
		erase:   make([]uint32, capacity),
	}
	for i := uint32(0); i < capacity; i++ {
		p.handles[i] = NewHandle(i, 0)
		p.erase[i] = i
	}
	return p
}

// Add reserves a slot. Returns nil and InvalidHandle when the pool is full.
func (p *Pool[T]) Add() (*T, Handle) {
	if p.count >= uint32(len(p.objs)) {
		return nil, InvalidHandle
	}
	h := p.handles[p.count]
	p.count++
	return &p.objs[h.Index()], h
}

// Get returns the object for h, or nil if h is stale or invalid.
func (p *Pool[T]) Get(h Handle) *T {
	if !p.Valid(h) {
		return nil
	}
	return &p.objs[h.Index()]
}

func (p *Pool[T]) Valid(h Handle) bool {
	idx := h.Index()
	if h.IsNull() || idx >= uint32(len(p.objs)) {
		return false
	}
	pos := p.erase[idx]
	return pos < p.count && p.handles[pos] == h
}

// Remove invalidates h and frees its slot. Returns false for stale handles.
func (p *Pool[T]) Remove(h Handle) bool {
	if !p.Valid(h) {
		return false
	}
	slot := h.Index()
	pos := p.erase[slot]

	p.count--
	last := p.handles[p.count]
	p.handles[pos] = last
	p.erase[last.Index()] = pos

	p.handles[p.count] = NewHandle(slot, h.Generation()+1)
	p.erase[slot] = p.count

	var zero T
	p.objs[slot] = zero
	return true
}

func (p *Pool[T]) Count() uint32 {
	return p.count
}

func (p *Pool[T]) Capacity() uint32 {
	return uint32(len(p.objs))
}

// GetHandle returns the i-th live handle, dense over [0, Count()).
func (p *Pool[T]) GetHandle(i uint32) (Handle, bool) {
	if i >= p.count {
		return InvalidHandle, false
	}
	return p.handles[i], true
}

// HandleAt returns the live handle occupying backing slot.
func (p *Pool[T]) HandleAt(slot uint32) (Handle, bool) {
	if slot >= uint32(len(p.objs)) {
		return InvalidHandle, false
	}
	pos := p.erase[slot]
	if pos >= p.count {
		return InvalidHandle, false
	}
	return p.handles[pos], true
}

// Each visits every live object until fn returns false.
func (p *Pool[T]) Each(fn func(Handle, *T) bool) {
	for i := uint32(0); i < p.count; i++ {
		h := p.handles[i]
		if !fn(h, &p.objs[h.Index()]) {
			return
		}
	}
}
