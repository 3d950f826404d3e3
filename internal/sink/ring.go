// Package sink provides host audio sinks for the sound pipeline. Each sink
// owns a byte ring that the device pulls from on its own goroutine.
package sink

import (
	"io"
	"sync"
)

// Ring is a fixed-capacity byte FIFO. Writes that overflow it discard the
// oldest bytes; reads block until data arrives or the ring is closed.
type Ring struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	r, n   int
	read   int64 // bytes handed to readers since creation
	closed bool
}

func NewRing(capacity int) *Ring {
	r := &Ring{buf: make([]byte, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, io.ErrClosedPipe
	}
	written := len(p)
	c := len(r.buf)
	if len(p) > c {
		p = p[len(p)-c:]
	}
	if over := r.n + len(p) - c; over > 0 {
		r.r = (r.r + over) % c
		r.n -= over
	}
	w := (r.r + r.n) % c
	k := copy(r.buf[w:], p)
	copy(r.buf, p[k:])
	r.n += len(p)
	r.cond.Broadcast()
	return written, nil
}

func (r *Ring) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.n == 0 && !r.closed {
		r.cond.Wait()
	}
	if r.n == 0 {
		return 0, io.EOF
	}
	want := len(p)
	if want > r.n {
		want = r.n
	}
	c := len(r.buf)
	k := copy(p[:want], r.buf[r.r:])
	if k < want {
		copy(p[k:want], r.buf)
	}
	r.r = (r.r + want) % c
	r.n -= want
	r.read += int64(want)
	return want, nil
}

// Buffered returns the number of unread bytes.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Consumed returns the total number of bytes read from the ring.
func (r *Ring) Consumed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read
}

func (r *Ring) Clear() {
	r.mu.Lock()
	r.r, r.n = 0, 0
	r.mu.Unlock()
}

// Close wakes blocked readers; remaining bytes can still be read.
func (r *Ring) Close() error {
	r.mu.Lock()
	r.closed = true
	r.cond.Broadcast()
	r.mu.Unlock()
	return nil
}
