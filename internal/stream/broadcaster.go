// Package stream serves the preview soundtrack to listeners over chunked
// HTTP (MP3 through ffmpeg) and WebRTC (Opus).
package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// Broadcaster fans out PCM frames from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C    chan []int16 // buffered channel of 20ms PCM frames
	done chan struct{}
}

// Done is closed once the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []int16, 150), // ~3 seconds at 20ms/frame
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop. Safe to call twice.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.listeners[l]
	delete(b.listeners, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Stats reports frames delivered and frames dropped for slow listeners.
func (b *Broadcaster) Stats() (sent, dropped uint64) {
	return b.sent.Load(), b.dropped.Load()
}

// Run reads frames from source and fans out to all listeners. Slow
// listeners lose frames rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- frame:
					b.sent.Add(1)
				default:
					b.dropped.Add(1)
				}
			}
			b.mu.RUnlock()
		}
	}
}
