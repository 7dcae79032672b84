package debounce

import (
	"strings"
	"sync"
	"time"
)

// Emitter coalesces a rapid stream of local content updates into at most one
// emission per quiet period. Trailing edge: every Update reschedules the
// timer, and when it finally fires the latest content wins. Intermediate
// states are dropped on purpose.
type Emitter struct {
	mu     sync.Mutex
	quiet  time.Duration
	emit   func(content string)
	timer  *time.Timer
	latest string
	armed  bool
}

func NewEmitter(quiet time.Duration, emit func(content string)) *Emitter {
	return &Emitter{quiet: quiet, emit: emit}
}

// Update records the newest local content and restarts the quiet-period
// timer. Whitespace-only content is ignored: it neither emits nor disturbs a
// pending timer.
func (e *Emitter) Update(content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.latest = content
	if e.timer != nil {
		e.timer.Stop()
	}
	e.armed = true
	e.timer = time.AfterFunc(e.quiet, e.fire)
}

func (e *Emitter) fire() {
	e.mu.Lock()
	if !e.armed {
		e.mu.Unlock()
		return
	}
	e.armed = false
	content := e.latest
	e.mu.Unlock()
	e.emit(content)
}

// Flush emits the pending content immediately, if any.
func (e *Emitter) Flush() {
	e.mu.Lock()
	if !e.armed {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.armed = false
	content := e.latest
	e.mu.Unlock()
	e.emit(content)
}

// Stop cancels any pending emission without firing it.
func (e *Emitter) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.armed = false
}
