package apu

import "sync"

// RingBuffer is the power-of-two single-producer/single-consumer sample
// queue crossing the emulator/host-audio-callback boundary (spec §3
// "Audio ring buffer", §5 "one shared resource crossing a threading
// boundary"). The emulator thread calls Push; a host audio callback
// calls Pull. A mutex guards the whole buffer, the simple variant
// spec §5 accepts over a lock-free SPSC design.
type RingBuffer struct {
	mu     sync.Mutex
	buf    []float32
	mask   uint32
	write  uint32
	play   uint32
}

// NewRingBuffer constructs a ring of the given length, which must be a
// power of two so index arithmetic can mask instead of mod.
func NewRingBuffer(length int) *RingBuffer {
	if length <= 0 || length&(length-1) != 0 {
		panic("apu: ring buffer length must be a power of two")
	}
	return &RingBuffer{buf: make([]float32, length), mask: uint32(length - 1)}
}

// Push writes one stereo-interleaved sample pair (or mono, depending on
// caller convention), overwriting unread samples on overrun
// (spec §7: "minor overwrite of unread samples ... expected").
func (r *RingBuffer) Push(left, right float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.write&r.mask] = left
	r.write++
	r.buf[r.write&r.mask] = right
	r.write++
}

// Pull drains up to len(out) samples starting at the play cursor,
// repeating the last sample on underrun (spec §7). After an overrun the
// play cursor first skips past the overwritten samples, so the oldest
// sample still in the buffer is returned first.
func (r *RingBuffer) Pull(out []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.write-r.play > uint32(len(r.buf)) {
		r.play = r.write - uint32(len(r.buf))
	}
	for i := range out {
		if r.play == r.write {
			if i > 0 {
				out[i] = out[i-1]
			}
			continue
		}
		out[i] = r.buf[r.play&r.mask]
		r.play++
	}
}

// Available reports how many unread samples are queued (advisory only,
// per spec §5).
func (r *RingBuffer) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.write - r.play)
}
