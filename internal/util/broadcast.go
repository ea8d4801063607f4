// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "sync"

// Broadcaster delivers state snapshots to subscribed listeners.
//
// Publish calls are serialized, so every listener observes snapshots in the
// order they were published. Listeners run on the publishing goroutine and
// must not publish to the same Broadcaster.
type Broadcaster[T any] struct {
	mu        sync.Mutex
	deliverMu sync.Mutex
	listeners map[uint64]func(T)
	nextID    uint64
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (b *Broadcaster[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[uint64]func(T))
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers the snapshot returned by snapshot to every listener.
// snapshot is evaluated after earlier publishes have been delivered, so a
// slow listener never sees an older state after a newer one.
func (b *Broadcaster[T]) Publish(snapshot func() T) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	if len(b.listeners) == 0 {
		b.mu.Unlock()
		return
	}
	fns := make([]func(T), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	value := snapshot()
	for _, fn := range fns {
		fn(value)
	}
}

// Len returns the number of subscribed listeners.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}
