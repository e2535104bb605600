// Package emulator ties the CPU, bus, and peripheral controllers
// together into the four-method external API spec §6 defines, enforcing
// the per-tick CPU → PPU → sound → timers → DMA ordering spec §5
// specifies as externally observable (spec §2, §5, §6).
package emulator

import (
	"fmt"

	"github.com/kestrelcore/goba/internal/apu"
	"github.com/kestrelcore/goba/internal/bus"
	"github.com/kestrelcore/goba/internal/cartridge"
	"github.com/kestrelcore/goba/internal/cpu"
	"github.com/kestrelcore/goba/internal/dma"
	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/kestrelcore/goba/internal/keypad"
	"github.com/kestrelcore/goba/internal/ppu"
	"github.com/kestrelcore/goba/internal/timer"
)

const ringBufferLength = 1 << 12 // 4096 samples, power of two (apu.RingBuffer)

// Emulator owns every component as a direct field: hierarchical,
// acyclic ownership with no shared mutable handles (spec §5).
type Emulator struct {
	cpu  *cpu.CPU
	bus  *bus.Bus
	ppu  *ppu.PPU
	apu  *apu.APU
	dma  *dma.Controller
	tmr  *timer.Controller
	irq  *interrupt.Controller
	key  *keypad.Keypad
	cart *cartridge.Cartridge

	ring *apu.RingBuffer
}

// New wires every component together in the order their constructors
// require: interrupt controller first (everything else references it),
// then timer/DMA (the bus needs both), then the bus itself, then
// CPU/PPU/APU/keypad (which need the bus or each other's narrow
// interfaces), and finally Bus.Attach to close the loop.
func New() *Emulator {
	irq := interrupt.New()
	tmr := timer.New(irq)
	dmaCtl := dma.New(irq)
	cart := cartridge.New()

	b := bus.New(cart, irq, tmr, dmaCtl)
	dmaCtl.SetBus(b)

	c := cpu.New(b, irq)
	p := ppu.New(irq, dmaCtl)
	ring := apu.NewRingBuffer(ringBufferLength)
	a := apu.New(ring, dmaCtl)
	tmr.SetFIFOClocker(a)
	k := keypad.New(irq)

	b.Attach(p, a, k)

	return &Emulator{
		cpu: c, bus: b, ppu: p, apu: a, dma: dmaCtl,
		tmr: tmr, irq: irq, key: k, cart: cart, ring: ring,
	}
}

// LoadBIOS installs a BIOS image, zero-padded/truncated to 16 KiB
// (spec §6 "load_bios").
func (e *Emulator) LoadBIOS(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("emulator: empty BIOS image")
	}
	e.bus.LoadBIOS(image)
	return nil
}

// LoadCartridge installs a cartridge ROM image, truncated to the
// maximum ROM size (spec §6 "load_cartridge").
func (e *Emulator) LoadCartridge(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("emulator: empty cartridge image")
	}
	e.cart.LoadImage(image)
	return nil
}

// Tick advances the system by one master-clock tick: CPU (or IRQ
// entry) unless a DMA channel is mid-transfer, then PPU, sound, timers,
// and DMA, matching spec §2's dataflow paragraph and spec §5's
// externally observable ordering.
func (e *Emulator) Tick() {
	if !e.dma.Active() {
		e.cpu.Tick()
	}
	e.ppu.Tick()
	e.apu.Step()
	e.tmr.Tick()
	e.dma.Tick()
}

// TryTakeFramebuffer returns the 240x160 framebuffer in 15-bit BGR
// format as a flat byte slice (little-endian halfwords) and clears the
// frame-ready flag, or (nil, false) if no frame has completed since the
// last call (spec §6 "try_take_framebuffer").
func (e *Emulator) TryTakeFramebuffer() ([]byte, bool) {
	pixels, ok := e.ppu.TryTakeFramebuffer()
	if !ok {
		return nil, false
	}
	out := make([]byte, len(pixels)*2)
	for i, px := range pixels {
		out[i*2] = byte(px)
		out[i*2+1] = byte(px >> 8)
	}
	return out, true
}

// UpdateKeypad replaces the 10-bit keypad state, 0 = pressed
// (spec §6 "update_keypad").
func (e *Emulator) UpdateKeypad(state uint16) {
	e.key.SetState(state)
}

// AudioRingBuffer exposes the producer-side ring buffer so a host
// audio callback (external collaborator, spec §5) can Pull from it.
func (e *Emulator) AudioRingBuffer() *apu.RingBuffer { return e.ring }
