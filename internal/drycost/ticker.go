package drycost

import (
	"sync"
	"time"
)

// DefaultTickInterval approximates one frame at 60 fps.
const DefaultTickInterval = time.Second / 60

// FrameTicker is a wall-clock Ticker. After Stop every Tick returns at once,
// so a running Coordinator drains its remaining rounds and concludes.
type FrameTicker struct {
	t        *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewFrameTicker(interval time.Duration) *FrameTicker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &FrameTicker{t: time.NewTicker(interval), done: make(chan struct{})}
}

func (f *FrameTicker) Tick() {
	select {
	case <-f.t.C:
	case <-f.done:
	}
}

// Stop releases the ticker. Safe to call more than once.
func (f *FrameTicker) Stop() {
	f.stopOnce.Do(func() {
		f.t.Stop()
		close(f.done)
	})
}
