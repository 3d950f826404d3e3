package ext

import "github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"

// KeyQueueSize is the capacity of the pending keystroke FIFO.
const KeyQueueSize = 32

// KeyQueue is a bounded FIFO of keystrokes. Pushing onto a full queue
// drops the new key.
type KeyQueue struct {
	buf        [KeyQueueSize]byte
	head, size int
}

// Push appends k and reports whether it was kept.
func (q *KeyQueue) Push(k byte) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = k
	q.size++
	return true
}

// Pop removes the oldest key.
func (q *KeyQueue) Pop() (byte, bool) {
	if q.size == 0 {
		return 0, false
	}
	k := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return k, true
}

func (q *KeyQueue) Len() int { return q.size }

func (q *KeyQueue) Reset() { q.head, q.size = 0, 0 }

// Pointer is a mouse or touch sample in screen pixels. Buttons uses bit 0
// for the primary and bit 1 for the secondary button.
type Pointer struct {
	X, Y    int
	Buttons byte
}

// Input is the host input state injected into the guest.
type Input struct {
	Enabled    bool
	Buttons    core.Buttons
	Pointer    Pointer
	HasPointer bool
	Modifiers  byte
	Keys       KeyQueue
}

func (in *Input) joypad() byte {
	var v byte
	b := in.Buttons
	for _, p := range [...]struct {
		on  bool
		bit byte
	}{
		{b.Right, PadRight}, {b.Left, PadLeft}, {b.Up, PadUp}, {b.Down, PadDown},
		{b.A, PadA}, {b.B, PadB}, {b.Select, PadSelect}, {b.Start, PadStart},
	} {
		if p.on {
			v |= p.bit
		}
	}
	return v
}

func clampByte(v, hi int) byte {
	if v < 0 {
		return 0
	}
	if v > hi {
		return byte(hi)
	}
	return byte(v)
}
