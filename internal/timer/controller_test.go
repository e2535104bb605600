package timer

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/stretchr/testify/assert"
)

// TestTimer0OverflowScenario is spec §8 scenario 6: timer 0, prescaler
// 1, reload 0xFFFF, IRQ-on-overflow; after 0x20000 master ticks the
// timer-0 IF bit is set. Counting up from a reload of 0xFFFF, the
// counter overflows on every tick.
func TestTimer0OverflowScenario(t *testing.T) {
	irq := interrupt.New()
	c := New(irq)

	c.WriteIO(0, 0xFF) // reload low
	c.WriteIO(1, 0xFF) // reload high
	c.WriteIO(2, 1<<7|1<<6)

	for i := 0; i < 0x20000; i++ {
		c.Tick()
	}

	assert.NotZero(t, irq.ReadIO(0x02)&uint8(interrupt.Timer0))
}

func TestCountUpChaining(t *testing.T) {
	irq := interrupt.New()
	c := New(irq)

	// Channel 0: reload near-overflow, prescaler 1, no IRQ.
	c.WriteIO(0, 0xFF)
	c.WriteIO(1, 0xFF)
	c.WriteIO(2, 1<<7)

	// Channel 1: count-up chaining, reload 0xFFFE so one chained
	// increment does not itself overflow.
	c.WriteIO(4, 0xFE)
	c.WriteIO(5, 0xFF)
	c.WriteIO(6, 1<<7|1<<2)

	c.Tick() // channel 0 overflows, cascades channel 1 by one count

	assert.Equal(t, uint8(0xFF), c.ReadIO(4))
	assert.Equal(t, uint8(0xFF), c.ReadIO(5))
}

func TestChannel0IgnoresCountUp(t *testing.T) {
	// spec §4.8: count-up chaining is ignored for channel 0.
	irq := interrupt.New()
	c := New(irq)
	c.WriteIO(0, 0x00)
	c.WriteIO(1, 0x00)
	c.WriteIO(2, 1<<7|1<<2|1<<0) // enable, count-up (ignored), prescaler=1 (64 ticks)

	for i := 0; i < 64; i++ {
		c.Tick()
	}
	assert.Equal(t, uint8(1), c.ReadIO(0), "channel 0 should still advance off its own prescaler")
}
