package flight

import "sync/atomic"

// cell is a single-slot last-write-wins holder. Producers replace the
// value wholesale; the tick loop reads the latest snapshot. Nothing is
// buffered: an update that arrives between ticks overwrites the previous
// one, which is the intended latency characteristic.
type cell[T any] struct {
	p atomic.Pointer[T]
}

func (c *cell[T]) store(v T) {
	c.p.Store(&v)
}

func (c *cell[T]) load() (T, bool) {
	p := c.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
