// Package bus implements the GBA system bus: address decoding across
// BIOS, work RAM, I/O registers, palette/VRAM/OAM, and cartridge ROM, plus
// the byte/halfword/word access rules the CPU and DMA controller rely on
// (spec §3).
package bus

import (
	"github.com/kestrelcore/goba/internal/cartridge"
	"github.com/kestrelcore/goba/internal/dma"
	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/kestrelcore/goba/internal/memory"
	"github.com/kestrelcore/goba/internal/timer"
)

// VideoDevice is the narrow surface the bus needs from the PPU: its
// register window plus the three video RAM regions it owns directly.
type VideoDevice interface {
	ReadIO(offset uint32) uint8
	WriteIO(offset uint32, value uint8)
	ReadPalette(offset uint32) uint8
	WritePalette(offset uint32, value uint8)
	ReadVRAM(offset uint32) uint8
	WriteVRAM(offset uint32, value uint8)
	ReadOAM(offset uint32) uint8
	WriteOAM(offset uint32, value uint8)
}

// SoundDevice is the narrow surface the bus needs from the sound
// controller's register window.
type SoundDevice interface {
	ReadIO(offset uint32) uint8
	WriteIO(offset uint32, value uint8)
}

// KeyDevice is the narrow surface the bus needs from the keypad.
type KeyDevice interface {
	ReadIO(offset uint32) uint8
	WriteIO(offset uint32, value uint8)
}

// Address-space region bases (spec §3).
const (
	baseBIOS      = 0x00000000
	baseEWRAM     = 0x02000000
	baseIWRAM     = 0x03000000
	baseIO        = 0x04000000
	basePalette   = 0x05000000
	baseVRAM      = 0x06000000
	baseOAM       = 0x07000000
	baseCartridge = 0x08000000
	endCartridge  = 0x0E000000

	biosSize = 16 * 1024
)

// I/O sub-region offsets, relative to baseIO.
const (
	ioPPUStart   = 0x000
	ioPPUEnd     = 0x060
	ioSoundStart = 0x060
	ioSoundEnd   = 0x0B0
	ioDMAStart   = 0x0B0
	ioDMAEnd     = 0x0E2
	ioTimerStart = 0x100
	ioTimerEnd   = 0x110
	ioKeyStart   = 0x130
	ioKeyEnd     = 0x134
	ioIRQStart   = 0x200
	ioIRQEnd     = 0x20C
)

// Bus wires every addressable device together and implements the
// address decode the CPU, DMA controller, and debugger all read/write
// through.
type Bus struct {
	bios  *memory.BIOS
	ewram *memory.RAM
	iwram *memory.RAM
	cart  *cartridge.Cartridge

	ppu  VideoDevice
	apu  SoundDevice
	key  KeyDevice
	irq  *interrupt.Controller
	tmr  *timer.Controller
	dma  *dma.Controller
}

// New constructs a Bus. PPU, APU, and keypad are attached afterward with
// Attach, since they are constructed independently and wired back to the
// emulator's interrupt/timer/DMA controllers in turn.
func New(cart *cartridge.Cartridge, irq *interrupt.Controller, tmr *timer.Controller, dmaCtl *dma.Controller) *Bus {
	return &Bus{
		bios:  memory.NewBIOS(biosSize),
		ewram: memory.NewRAM(256 * 1024),
		iwram: memory.NewRAM(32 * 1024),
		cart:  cart,
		irq:   irq,
		tmr:   tmr,
		dma:   dmaCtl,
	}
}

// Attach wires the video, sound, and keypad devices in once they exist.
func (b *Bus) Attach(ppu VideoDevice, apu SoundDevice, key KeyDevice) {
	b.ppu, b.apu, b.key = ppu, apu, key
}

// LoadBIOS installs a BIOS image.
func (b *Bus) LoadBIOS(image []byte) { b.bios.LoadImage(image) }

// Read8 reads one byte, dispatching on the address's top byte.
func (b *Bus) Read8(addr uint32) uint8 {
	switch {
	case addr < baseEWRAM:
		return b.bios.Read8(addr - baseBIOS)
	case addr < baseIWRAM:
		return b.ewram.Read8(addr - baseEWRAM)
	case addr < baseIO:
		return b.iwram.Read8(addr - baseIWRAM)
	case addr < basePalette:
		return b.readIO(addr - baseIO)
	case addr < baseVRAM:
		return b.readPalette(addr - basePalette)
	case addr < baseOAM:
		return b.readVRAM(addr - baseVRAM)
	case addr < baseCartridge:
		return b.readOAM(addr - baseOAM)
	case addr < endCartridge:
		return b.cart.ReadROM8((addr - baseCartridge) % cartridge.MaxROMSize)
	default:
		return 0
	}
}

// Write8 writes one byte, dispatching the same way as Read8.
func (b *Bus) Write8(addr uint32, value uint8) {
	switch {
	case addr < baseEWRAM:
		b.bios.Write8(addr-baseBIOS, value)
	case addr < baseIWRAM:
		b.ewram.Write8(addr-baseEWRAM, value)
	case addr < baseIO:
		b.iwram.Write8(addr-baseIWRAM, value)
	case addr < basePalette:
		b.writeIO(addr-baseIO, value)
	case addr < baseVRAM:
		b.writePalette(addr-basePalette, value)
	case addr < baseOAM:
		b.writeVRAM(addr-baseVRAM, value)
	case addr < baseCartridge:
		b.writeOAM(addr-baseOAM, value)
	default:
		// Cartridge ROM and anything past it is read-only/unmapped.
	}
}

// Read16 reads a little-endian halfword. Misaligned reads rotate the
// result right by 8 * (addr mod 2), matching the open-bus behavior
// documented in spec §3.
func (b *Bus) Read16(addr uint32) uint16 {
	aligned := addr &^ 1
	v := uint16(b.Read8(aligned)) | uint16(b.Read8(aligned+1))<<8
	if misalign := addr & 1; misalign != 0 {
		v = rotateRight16(v, 8*misalign)
	}
	return v
}

// Write16 writes a little-endian halfword at an aligned address.
func (b *Bus) Write16(addr uint32, value uint16) {
	aligned := addr &^ 1
	b.Write8(aligned, uint8(value))
	b.Write8(aligned+1, uint8(value>>8))
}

// Read32 reads a little-endian word. Misaligned reads rotate the result
// right by 8 * (addr mod 4), matching real ARM7TDMI/GBA bus behavior.
func (b *Bus) Read32(addr uint32) uint32 {
	aligned := addr &^ 3
	v := uint32(b.Read8(aligned)) |
		uint32(b.Read8(aligned+1))<<8 |
		uint32(b.Read8(aligned+2))<<16 |
		uint32(b.Read8(aligned+3))<<24
	if misalign := addr & 3; misalign != 0 {
		v = rotateRight32(v, 8*misalign)
	}
	return v
}

// Write32 writes a little-endian word at an aligned address.
func (b *Bus) Write32(addr uint32, value uint32) {
	aligned := addr &^ 3
	b.Write8(aligned, uint8(value))
	b.Write8(aligned+1, uint8(value>>8))
	b.Write8(aligned+2, uint8(value>>16))
	b.Write8(aligned+3, uint8(value>>24))
}

func rotateRight16(v uint16, n uint32) uint16 {
	n %= 16
	return (v >> n) | (v << (16 - n))
}

func rotateRight32(v uint32, n uint32) uint32 {
	n %= 32
	return (v >> n) | (v << (32 - n))
}

func (b *Bus) readIO(offset uint32) uint8 {
	switch {
	case offset < ioPPUEnd && b.ppu != nil:
		return b.ppu.ReadIO(offset - ioPPUStart)
	case offset >= ioSoundStart && offset < ioSoundEnd && b.apu != nil:
		return b.apu.ReadIO(offset - ioSoundStart)
	case offset >= ioDMAStart && offset < ioDMAEnd:
		return b.dma.ReadIO(offset - ioDMAStart)
	case offset >= ioTimerStart && offset < ioTimerEnd:
		return b.tmr.ReadIO(offset - ioTimerStart)
	case offset >= ioKeyStart && offset < ioKeyEnd && b.key != nil:
		return b.key.ReadIO(offset - ioKeyStart)
	case offset >= ioIRQStart && offset < ioIRQEnd:
		return b.irq.ReadIO(offset - ioIRQStart)
	default:
		return 0
	}
}

func (b *Bus) writeIO(offset uint32, value uint8) {
	switch {
	case offset < ioPPUEnd:
		if b.ppu != nil {
			b.ppu.WriteIO(offset-ioPPUStart, value)
		}
	case offset >= ioSoundStart && offset < ioSoundEnd:
		if b.apu != nil {
			b.apu.WriteIO(offset-ioSoundStart, value)
		}
	case offset >= ioDMAStart && offset < ioDMAEnd:
		b.dma.WriteIO(offset-ioDMAStart, value)
	case offset >= ioTimerStart && offset < ioTimerEnd:
		b.tmr.WriteIO(offset-ioTimerStart, value)
	case offset >= ioKeyStart && offset < ioKeyEnd:
		if b.key != nil {
			b.key.WriteIO(offset-ioKeyStart, value)
		}
	case offset >= ioIRQStart && offset < ioIRQEnd:
		b.irq.WriteIO(offset-ioIRQStart, value)
	}
}

func (b *Bus) readPalette(offset uint32) uint8 {
	if b.ppu == nil {
		return 0
	}
	return b.ppu.ReadPalette(offset % (1 * 1024))
}

func (b *Bus) writePalette(offset uint32, value uint8) {
	if b.ppu != nil {
		b.ppu.WritePalette(offset%(1*1024), value)
	}
}

// VRAM's 96 KiB is mirrored every 128 KiB, with the last 32 KiB of each
// mirror period reflecting the first 32 KiB of the second 64 KiB bank
// (spec §3's "32KB tail reflection").
func (b *Bus) readVRAM(offset uint32) uint8 {
	if b.ppu == nil {
		return 0
	}
	return b.ppu.ReadVRAM(normalizeVRAMOffset(offset))
}

func (b *Bus) writeVRAM(offset uint32, value uint8) {
	if b.ppu != nil {
		b.ppu.WriteVRAM(normalizeVRAMOffset(offset), value)
	}
}

func normalizeVRAMOffset(offset uint32) uint32 {
	const mirrorPeriod = 128 * 1024
	const vramSize = 96 * 1024
	const tailStart = 64 * 1024

	o := offset % mirrorPeriod
	if o < vramSize {
		return o
	}
	return tailStart + (o-vramSize)%(32*1024)
}

func (b *Bus) readOAM(offset uint32) uint8 {
	if b.ppu == nil {
		return 0
	}
	return b.ppu.ReadOAM(offset % (1 * 1024))
}

func (b *Bus) writeOAM(offset uint32, value uint8) {
	if b.ppu != nil {
		b.ppu.WriteOAM(offset%(1*1024), value)
	}
}
