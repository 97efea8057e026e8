package capture

import (
	"context"
	"fmt"
	"image"
	"sync"
)

// Camera acquires a live image source
type Camera interface {
	// Open acquires the device. It fails with ErrDeviceUnavailable when the
	// device is missing, disabled or already in use.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired camera. Stop must be called on every exit path.
type Stream interface {
	// Snapshot blocks until a frame is available
	Snapshot(ctx context.Context) (image.Image, error)
	// Stop releases the device; calling it more than once is harmless
	Stop()
}

// Relay is a camera whose frames come from a remote client, typically the
// browser pushing a shutter frame over HTTP. Only one stream can be live.
type Relay struct {
	mu       sync.Mutex
	disabled bool
	live     *relayStream
}

// NewRelay creates a Relay; a disabled relay refuses every Open
func NewRelay(enabled bool) *Relay {
	return &Relay{disabled: !enabled}
}

// Open acquires the relay
func (r *Relay) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return nil, fmt.Errorf("%w: camera is disabled", ErrDeviceUnavailable)
	}
	if r.live != nil {
		return nil, fmt.Errorf("%w: camera is already in use", ErrDeviceUnavailable)
	}

	r.live = &relayStream{
		relay:  r,
		frames: make(chan image.Image, 1),
		done:   make(chan struct{}),
	}
	return r.live, nil
}

// Push hands a frame to the live stream, replacing any frame not yet taken
func (r *Relay) Push(img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live == nil {
		return fmt.Errorf("no open camera stream")
	}
	select {
	case <-r.live.frames:
	default:
	}
	r.live.frames <- img
	return nil
}

// Active reports whether a stream is currently holding the device
func (r *Relay) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live != nil
}

type relayStream struct {
	relay    *Relay
	frames   chan image.Image
	done     chan struct{}
	stopOnce sync.Once
}

func (s *relayStream) Snapshot(ctx context.Context) (image.Image, error) {
	select {
	case img := <-s.frames:
		return img, nil
	case <-s.done:
		return nil, ErrStreamStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *relayStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.relay.mu.Lock()
		if s.relay.live == s {
			s.relay.live = nil
		}
		s.relay.mu.Unlock()
	})
}
