package apu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOPushWordOrderAndOverflow(t *testing.T) {
	var f soundFIFO
	f.pushWord(0x04030201)
	assert.Equal(t, 4, f.count)
	assert.Equal(t, int8(0x01), f.buf[0])
	assert.Equal(t, int8(0x02), f.buf[1])
	assert.Equal(t, int8(0x03), f.buf[2])
	assert.Equal(t, int8(0x04), f.buf[3])

	for i := 0; i < 10; i++ {
		f.pushWord(0)
	}
	assert.Equal(t, 32, f.count, "excess pushes beyond 32 bytes are dropped")
}

// TestFIFORefillThreshold is SPEC_FULL §D.4: a DMA refill is requested
// once the FIFO's depth drops to 16 bytes or fewer.
func TestFIFORefillThreshold(t *testing.T) {
	var f soundFIFO
	f.pushWord(1)
	f.pushWord(2)
	f.pushWord(3)
	f.pushWord(4)
	f.pushWord(5)
	f.pushWord(6)
	f.pushWord(7)
	f.pushWord(8) // count == 32

	needsRefill := false
	for f.count > 0 {
		needsRefill = f.pop()
	}
	assert.True(t, needsRefill, "should request a refill once drained to 0 (<=16)")

	var g soundFIFO
	g.pushWord(1)
	g.pushWord(2)
	g.pushWord(3)
	g.pushWord(4)
	g.pushWord(5) // count == 20
	assert.Equal(t, 20, g.count)
	assert.False(t, g.pop(), "20 -> 19 bytes remaining, still above threshold")
}

func TestFIFOPopEmptyIsNoop(t *testing.T) {
	var f soundFIFO
	assert.False(t, f.pop())
	assert.Equal(t, int8(0), f.current)
}

func TestFIFOReset(t *testing.T) {
	var f soundFIFO
	f.pushWord(0x7F7F7F7F)
	f.pop()
	f.reset()
	assert.Equal(t, 0, f.count)
	assert.Equal(t, int8(0), f.current)
}

type stubFIFORequester struct{ requested []int }

func (s *stubFIFORequester) OnFIFORequest(channelIndex int) { s.requested = append(s.requested, channelIndex) }

func TestOnTimerOverflowRequestsRefillAtThreshold(t *testing.T) {
	req := &stubFIFORequester{}
	a := New(NewRingBuffer(16), req)
	// FIFO A's default timer select (SOUNDCNT_H bit 10 clear) is timer 0.

	for i := 0; i < 20; i++ {
		a.fifoA.push(1)
	}

	for i := 0; i < 3; i++ {
		a.OnTimerOverflow(0)
	}
	assert.Empty(t, req.requested, "20->17 bytes: still above the 16-byte threshold")

	a.OnTimerOverflow(0) // 17 -> 16, crosses the threshold
	assert.Equal(t, []int{1}, req.requested, "FIFO A crossing the threshold requests channel 1's refill")

	a.OnTimerOverflow(1) // wrong timer index for FIFO A, no-op
	assert.Equal(t, []int{1}, req.requested)
}
