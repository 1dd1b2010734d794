// ABOUTME: Ordered handler registry for session update and error events
// ABOUTME: Isolates handler panics so one handler cannot starve the rest
package session

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
)

type emitter struct {
	log    zerolog.Logger
	closed func() bool

	mu       sync.RWMutex
	onUpdate []func(*nowplaying.NowPlaying)
	onError  []func(error)
}

// OnUpdate registers fn for every validated payload. Handlers run in
// registration order.
func (e *emitter) OnUpdate(fn func(*nowplaying.NowPlaying)) {
	e.mu.Lock()
	e.onUpdate = append(e.onUpdate, fn)
	e.mu.Unlock()
}

// OnError registers fn for connection and validation errors. Errors are
// *nowplaying.ConnectionError or *nowplaying.PayloadValidationError.
func (e *emitter) OnError(fn func(error)) {
	e.mu.Lock()
	e.onError = append(e.onError, fn)
	e.mu.Unlock()
}

func (e *emitter) emitUpdate(np *nowplaying.NowPlaying) {
	e.mu.RLock()
	handlers := slices.Clone(e.onUpdate)
	e.mu.RUnlock()

	for _, fn := range handlers {
		if e.closed() {
			return
		}
		e.invoke("update", func() { fn(np) })
	}
}

func (e *emitter) emitError(err error) {
	e.mu.RLock()
	handlers := slices.Clone(e.onError)
	e.mu.RUnlock()

	for _, fn := range handlers {
		if e.closed() {
			return
		}
		e.invoke("error", func() { fn(err) })
	}
}

func (e *emitter) invoke(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("event", event).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	fn()
}
