package dma

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/stretchr/testify/assert"
)

// flatBus is a minimal Bus double backing a large enough flat address
// space for the DMA3-to-VRAM scenario below.
type flatBus struct {
	mem map[uint32]byte
}

func newFlatBus() *flatBus { return &flatBus{mem: make(map[uint32]byte)} }

func (b *flatBus) Read8(addr uint32) uint8     { return b.mem[addr] }
func (b *flatBus) Write8(addr uint32, v uint8) { b.mem[addr] = v }
func (b *flatBus) Read16(addr uint32) uint16 {
	return uint16(b.mem[addr]) | uint16(b.mem[addr+1])<<8
}
func (b *flatBus) Write16(addr uint32, v uint16) {
	b.mem[addr] = uint8(v)
	b.mem[addr+1] = uint8(v >> 8)
}
func (b *flatBus) Read32(addr uint32) uint32 {
	return uint32(b.mem[addr]) | uint32(b.mem[addr+1])<<8 | uint32(b.mem[addr+2])<<16 | uint32(b.mem[addr+3])<<24
}
func (b *flatBus) Write32(addr uint32, v uint32) {
	b.mem[addr] = uint8(v)
	b.mem[addr+1] = uint8(v >> 8)
	b.mem[addr+2] = uint8(v >> 16)
	b.mem[addr+3] = uint8(v >> 24)
}

func setSrc(c *Controller, ch int, v uint32) {
	base := uint32(ch * 12)
	for i := uint32(0); i < 4; i++ {
		c.WriteIO(base+i, byte(v>>(8*i)))
	}
}
func setDst(c *Controller, ch int, v uint32) {
	base := uint32(ch*12 + 4)
	for i := uint32(0); i < 4; i++ {
		c.WriteIO(base+i, byte(v>>(8*i)))
	}
}
func setCount(c *Controller, ch int, v uint16) {
	base := uint32(ch*12 + 8)
	c.WriteIO(base, byte(v))
	c.WriteIO(base+1, byte(v>>8))
}
func setControl(c *Controller, ch int, v uint16) {
	base := uint32(ch*12 + 10)
	c.WriteIO(base, byte(v))
	c.WriteIO(base+1, byte(v>>8))
}

// TestDMA3ImmediateHalfwordCopy is spec §8 scenario 5: DMA3,
// source=0x08000000, destination=0x06000000, count=0x8000, unit=halfword,
// start=immediate, IRQ=on: after being enabled, exactly 0x10000 bytes are
// copied, the DMA3 IF bit is set, and enable is cleared.
func TestDMA3ImmediateHalfwordCopy(t *testing.T) {
	bus := newFlatBus()
	for i := uint32(0); i < 0x10000; i++ {
		bus.mem[0x08000000+i] = byte(i)
	}

	irq := interrupt.New()
	c := New(irq)
	c.SetBus(bus)

	setSrc(c, 3, 0x08000000)
	setDst(c, 3, 0x06000000)
	setCount(c, 3, 0x8000)
	// control: enable(15) | irq(14) | start=immediate(12-13=00) | unit=halfword(10=0)
	setControl(c, 3, 1<<15|1<<14)

	for i := 0; i < 0x8000; i++ {
		assert.True(t, c.Active(), "channel still transferring at unit %d", i)
		c.Tick()
	}

	assert.False(t, c.Active())
	for i := uint32(0); i < 0x10000; i++ {
		assert.Equal(t, bus.mem[0x08000000+i], bus.mem[0x06000000+i])
	}
	assert.NotZero(t, irq.ReadIO(0x03)&uint8(interrupt.DMA3>>8))

	control := uint16(c.ReadIO(uint32(3*12+10))) | uint16(c.ReadIO(uint32(3*12+11)))<<8
	assert.Zero(t, control&(1<<15), "enable should clear on completion without repeat")
}

func TestDMAZeroCountInterpretedAsMax(t *testing.T) {
	bus := newFlatBus()
	irq := interrupt.New()
	c := New(irq)
	c.SetBus(bus)

	setSrc(c, 0, 0x02000000)
	setDst(c, 0, 0x03000000)
	setCount(c, 0, 0)
	setControl(c, 0, 1<<15)

	count := 0
	for c.Active() {
		c.Tick()
		count++
		if count > 0x5000 {
			t.Fatal("channel never completed")
		}
	}
	assert.Equal(t, 0x4000, count)
}
