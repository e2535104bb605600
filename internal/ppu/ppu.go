package ppu

import "github.com/kestrelcore/goba/internal/interrupt"

const (
	screenWidth  = 240
	screenHeight = 160

	dotsPerLine  = 1232
	linesPerFrame = 228
	hblankDot     = 960

	vramSize    = 96 * 1024
	oamSize     = 1 * 1024
	paletteSize = 1 * 1024
)

// DMATrigger is the narrow surface the PPU needs from the DMA
// controller: the vblank/hblank edges that arm DMA-triggered transfers.
type DMATrigger interface {
	OnVBlank()
	OnHBlank()
}

// PPU owns VRAM, OAM, and palette RAM directly (spec §5: "VRAM, palette
// RAM, and OAM are owned by the PPU and proxied through the bus").
type PPU struct {
	regs [regBankSize]byte

	vram    [vramSize]byte
	oam     [oamSize]byte
	palette [paletteSize]byte

	line int
	dot  int

	fb         [screenWidth * screenHeight]uint16
	frameReady bool

	// Internal affine reference points, advanced by PB/PD each visible
	// line and reloaded from the external registers at the end of vblank,
	// when line 227 wraps to line 0 (spec §4.3).
	refX, refY [2]int32

	// Per-scanline intermediate buffers, reused across calls to avoid
	// reallocating every line.
	bgLine     [4][screenWidth]bgPixel
	objLine    [screenWidth]objPixel
	objWindow  [screenWidth]bool

	irq *interrupt.Controller
	dma DMATrigger
}

// bgPixel is one candidate pixel a background renderer contributes to a
// given column; valid reports whether this background has opaque output
// there at all (transparent pixels are absent per spec §4.4).
type bgPixel struct {
	color uint16
	valid bool
}

// objPixel is one candidate pixel the object renderer contributes.
type objPixel struct {
	color    uint16
	priority uint8
	valid    bool
	semiTransparent bool
}

// New constructs a PPU wired to the interrupt controller and the DMA
// controller's vblank/hblank trigger hooks.
func New(irq *interrupt.Controller, dma DMATrigger) *PPU {
	return &PPU{irq: irq, dma: dma}
}

// TryTakeFramebuffer returns the 240x160 framebuffer in 15-bit BGR
// format and clears the frame-ready flag, or (nil, false) if no new
// frame has completed since the last call (spec §6).
func (p *PPU) TryTakeFramebuffer() ([]uint16, bool) {
	if !p.frameReady {
		return nil, false
	}
	p.frameReady = false
	out := make([]uint16, len(p.fb))
	copy(out, p.fb[:])
	return out, true
}

// Tick advances the scan position by one master-clock tick and fires
// the vblank/hblank/vcount edges at their fixed dot positions
// (spec §4.3).
func (p *PPU) Tick() {
	if p.dot == 0 && p.line < screenHeight {
		p.renderScanline()
	}

	p.dot++
	if p.dot == hblankDot && p.line < screenHeight {
		p.setDispstatBit(1, true) // hblank flag
		if p.hblankIRQEnabled() {
			p.irq.Request(interrupt.HBlank)
		}
		p.dma.OnHBlank()
	}

	if p.dot >= dotsPerLine {
		p.dot = 0
		p.setDispstatBit(1, false)
		p.line++

		if p.line == screenHeight {
			p.frameReady = true
			p.setDispstatBit(0, true) // vblank flag
			if p.vblankIRQEnabled() {
				p.irq.Request(interrupt.VBlank)
			}
			p.dma.OnVBlank()
		} else if p.line < screenHeight {
			p.advanceAffineReferences()
		}

		if p.line >= linesPerFrame {
			p.line = 0
			p.setDispstatBit(0, false)
			p.reloadAffineReferences() // last dot of vblank (spec §4.3)
		}

		setLE16(p.regs[:], regVCOUNT, uint16(p.line))
		if uint8(p.line) == p.vcountTarget() {
			p.setDispstatBit(2, true)
			if p.vcountIRQEnabled() {
				p.irq.Request(interrupt.VCount)
			}
		} else {
			p.setDispstatBit(2, false)
		}
	}
}

func (p *PPU) advanceAffineReferences() {
	for i := 0; i < 2; i++ {
		aff := p.bgAffine(i)
		p.refX[i] += int32(aff.pb)
		p.refY[i] += int32(aff.pd)
	}
}

func (p *PPU) reloadAffineReferences() {
	for i := 0; i < 2; i++ {
		p.refX[i], p.refY[i] = p.bgRefExternal(i)
	}
}

// ReadIO/WriteIO implement the byte-wide register window at
// 0x04000000-0x04000056 (spec §6). VCOUNT and DISPSTAT's status bits are
// read-only; writes there are silently absorbed by only updating the
// writable bits.
func (p *PPU) ReadIO(offset uint32) uint8 {
	if int(offset) >= len(p.regs) {
		return 0
	}
	return p.regs[offset]
}

func (p *PPU) WriteIO(offset uint32, value uint8) {
	if int(offset) >= len(p.regs) {
		return
	}
	switch offset {
	case regVCOUNT, regVCOUNT + 1:
		return // read-only
	case regDISPSTAT:
		statusBits := p.regs[offset] & 0x07
		p.regs[offset] = (value &^ 0x07) | statusBits // bits 0-2 are status, not configuration
	default:
		p.regs[offset] = value
	}
}

func (p *PPU) ReadPalette(offset uint32) uint8 { return p.palette[offset] }
func (p *PPU) WritePalette(offset uint32, value uint8) { p.palette[offset] = value }
func (p *PPU) ReadVRAM(offset uint32) uint8 { return p.vram[offset] }
func (p *PPU) WriteVRAM(offset uint32, value uint8) { p.vram[offset] = value }
func (p *PPU) ReadOAM(offset uint32) uint8 { return p.oam[offset] }
func (p *PPU) WriteOAM(offset uint32, value uint8) { p.oam[offset] = value }

func (p *PPU) vramU16(offset uint32) uint16 {
	return uint16(p.vram[offset]) | uint16(p.vram[offset+1])<<8
}

func (p *PPU) paletteColor(index uint32) uint16 {
	return uint16(p.palette[index*2]) | uint16(p.palette[index*2+1])<<8
}

const objPaletteBase = 0x200 // spec §9(c): OBJ palette base in palette RAM

func (p *PPU) objPaletteColor(index uint32) uint16 {
	return p.paletteColor(objPaletteBase/2 + index)
}
