package booking

import (
	"strconv"
	"sync/atomic"
	"time"
)

// IDGenerator issues millisecond timestamps as ids. Two calls in the same
// millisecond get consecutive values, so ids never repeat in a process.
type IDGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

func (g *IDGenerator) Next() string {
	for {
		last := g.last.Load()
		next := g.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if g.last.CompareAndSwap(last, next) {
			return strconv.FormatInt(next, 10)
		}
	}
}
