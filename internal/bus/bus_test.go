package bus

import (
	"testing"

	"github.com/kestrelcore/goba/internal/cartridge"
	"github.com/kestrelcore/goba/internal/dma"
	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/kestrelcore/goba/internal/keypad"
	"github.com/kestrelcore/goba/internal/ppu"
	"github.com/kestrelcore/goba/internal/timer"
	"github.com/stretchr/testify/assert"
)

func newTestBus() *Bus {
	irq := interrupt.New()
	tmr := timer.New(irq)
	dmaCtl := dma.New(irq)
	cart := cartridge.New()

	b := New(cart, irq, tmr, dmaCtl)
	dmaCtl.SetBus(b)

	p := ppu.New(irq, dmaCtl)
	k := keypad.New(irq)
	b.Attach(p, nil, k)
	return b
}

// TestHalfwordComposesFromBytes is spec §8's universal bus invariant:
// read_halfword(a) == read_byte(a) | read_byte(a+1)<<8, across regions.
func TestHalfwordComposesFromBytes(t *testing.T) {
	b := newTestBus()
	addrs := []uint32{0x02000010, 0x03000010, 0x06000010, 0x07000010, 0x05000010}
	for _, a := range addrs {
		b.Write8(a, 0x34)
		b.Write8(a+1, 0x12)
		assert.Equal(t, uint16(0x1234), b.Read16(a), "addr %#x", a)
	}
}

// TestWordComposesFromBytes is the word-width counterpart of the
// halfword invariant above.
func TestWordComposesFromBytes(t *testing.T) {
	b := newTestBus()
	addrs := []uint32{0x02000020, 0x03000020, 0x06000020}
	for _, a := range addrs {
		b.Write8(a, 0x78)
		b.Write8(a+1, 0x56)
		b.Write8(a+2, 0x34)
		b.Write8(a+3, 0x12)
		assert.Equal(t, uint32(0x12345678), b.Read32(a), "addr %#x", a)
	}
}

func TestWriteThenReadRoundtripInWritableRegions(t *testing.T) {
	b := newTestBus()
	cases := []struct {
		name string
		addr uint32
	}{
		{"EWRAM", 0x02012345},
		{"IWRAM", 0x03001234},
		{"Palette", 0x05000100},
		{"VRAM", 0x06003000},
		{"OAM", 0x07000100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b.Write32(tc.addr, 0xDEADBEEF)
			assert.Equal(t, uint32(0xDEADBEEF), b.Read32(tc.addr))
		})
	}
}

// TestMisalignedHalfwordReadRotates is spec §3's open-bus rotation
// behavior for an odd-aligned halfword read.
func TestMisalignedHalfwordReadRotates(t *testing.T) {
	b := newTestBus()
	b.Write8(0x02000000, 0x34)
	b.Write8(0x02000001, 0x12)
	got := b.Read16(0x02000001)
	assert.Equal(t, uint16(0x3412), got, "odd-aligned read rotates the aligned halfword right by 8")
}

// TestMisalignedWordReadRotates is spec §3's open-bus rotation behavior
// for a misaligned word read.
func TestMisalignedWordReadRotates(t *testing.T) {
	b := newTestBus()
	b.Write32(0x02000000, 0x12345678)
	got := b.Read32(0x02000001)
	assert.Equal(t, uint32(0x78123456), got)
}

func TestVRAMTailMirroring(t *testing.T) {
	b := newTestBus()
	// Offset 0x19000 falls in the reflected tail (96-128KiB) and maps
	// back to 0x11000 in the first 32KiB of the second 64KiB bank.
	b.Write8(0x06019000, 0xAB)
	assert.Equal(t, uint8(0xAB), b.Read8(0x06011000), "tail mirrors the first 32KiB of the second 64KiB bank")
}

func TestCartridgeROMIsReadOnly(t *testing.T) {
	b := newTestBus()
	image := make([]byte, 0x100)
	image[4] = 0x42
	b.cart.LoadImage(image)

	assert.Equal(t, uint8(0x42), b.Read8(0x08000004))
	b.Write8(0x08000004, 0x99)
	assert.Equal(t, uint8(0x42), b.Read8(0x08000004), "cartridge ROM writes are ignored")
}
