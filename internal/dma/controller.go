// Package dma implements the four general-purpose DMA channels: four
// trigger sources, unit-size and address-adjustment selection, and
// repeat/chained behavior (spec §4.7).
package dma

import "github.com/kestrelcore/goba/internal/interrupt"

// Bus is the narrow memory surface a DMA channel needs. internal/bus.Bus
// satisfies this structurally.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
}

// addrAdjust is the per-operand addressing mode selected by the control
// word's source/destination adjustment fields.
type addrAdjust uint8

const (
	adjIncrement addrAdjust = 0
	adjDecrement addrAdjust = 1
	adjFixed     addrAdjust = 2
	adjReload    addrAdjust = 3 // destination-only: increment, reload from register on repeat
)

// startTiming selects when an armed channel activates.
type startTiming uint8

const (
	timingImmediate startTiming = 0
	timingVBlank    startTiming = 1
	timingHBlank    startTiming = 2
	timingSpecial   startTiming = 3 // sound-FIFO request (ch 1/2) or video capture (ch 3, unimplemented)
)

const (
	dmaRegionStart = 0x040000B0
	dmaRegionEnd   = 0x040000E1 // inclusive; DMA may not target its own registers
)

type channel struct {
	index int

	// External, CPU-writable registers.
	srcReg   uint32
	dstReg   uint32
	countReg uint16
	control  uint16

	// Internal, latched-on-activation state (spec §3: "an internal copy
	// is held so later writes to the external registers do not disturb
	// an in-flight transfer").
	srcAddr   uint32
	dstAddr   uint32
	remaining uint32
	active    bool
	// activated marks whether src/dst have ever been latched since
	// enable went high; repeats after the first reuse the continuing
	// source address rather than relatching it (SPEC_FULL §D.2). The
	// unit count is relatched on every activation.
	activated bool

	snapDestAdjust addrAdjust
	snapSrcAdjust  addrAdjust
	snapUnitSize32 bool
	snapRepeat     bool
	snapIRQ        bool
}

func (c *channel) addrMask() uint32 {
	if c.index == 3 {
		return 0x0FFFFFFF
	}
	return 0x07FFFFFF
}

func (c *channel) maxCount() uint32 {
	if c.index == 3 {
		return 0x10000
	}
	return 0x4000
}

var dmaLines = [4]interrupt.Line{interrupt.DMA0, interrupt.DMA1, interrupt.DMA2, interrupt.DMA3}

// Controller owns the four DMA channels and the bus they transfer over.
type Controller struct {
	ch  [4]channel
	bus Bus
	irq *interrupt.Controller
}

// New constructs a Controller; SetBus must be called before Tick runs.
func New(irq *interrupt.Controller) *Controller {
	c := &Controller{irq: irq}
	for i := range c.ch {
		c.ch[i].index = i
	}
	return c
}

func (c *Controller) SetBus(bus Bus) { c.bus = bus }

// Active reports whether any channel is mid-transfer; the emulator uses
// this to suspend CPU execution for the tick (spec §4.7, §5).
func (c *Controller) Active() bool {
	for i := range c.ch {
		if c.ch[i].active {
			return true
		}
	}
	return false
}

// OnVBlank triggers any channel armed for vblank-timed start.
func (c *Controller) OnVBlank() { c.triggerTiming(timingVBlank) }

// OnHBlank triggers any channel armed for hblank-timed start. The PPU
// only calls this while line < 160, per spec §4.7(c).
func (c *Controller) OnHBlank() { c.triggerTiming(timingHBlank) }

// OnFIFORequest triggers a sound-FIFO-timed channel (1 or 2). Channel 3's
// "special" timing is video capture, accepted but not implemented
// per spec §4.7(d).
func (c *Controller) OnFIFORequest(channelIndex int) {
	if channelIndex != 1 && channelIndex != 2 {
		return
	}
	ch := &c.ch[channelIndex]
	if ch.control&(1<<15) != 0 && startTiming((ch.control>>12)&0x3) == timingSpecial {
		c.activate(ch)
	}
}

func (c *Controller) triggerTiming(t startTiming) {
	for i := range c.ch {
		ch := &c.ch[i]
		if ch.control&(1<<15) == 0 || ch.active {
			continue
		}
		if startTiming((ch.control>>12)&0x3) != t {
			continue
		}
		c.activate(ch)
	}
}

// activate latches the channel and begins transferring.
func (c *Controller) activate(ch *channel) {
	ch.snapSrcAdjust = addrAdjust((ch.control >> 7) & 0x3)
	ch.snapDestAdjust = addrAdjust((ch.control >> 5) & 0x3)
	ch.snapUnitSize32 = ch.control&(1<<10) != 0
	ch.snapRepeat = ch.control&(1<<9) != 0
	ch.snapIRQ = ch.control&(1<<14) != 0

	count := uint32(ch.countReg)
	if count == 0 {
		count = ch.maxCount()
	}
	ch.remaining = count

	if !ch.activated {
		ch.srcAddr = ch.srcReg & ch.addrMask()
		ch.dstAddr = ch.dstReg & ch.addrMask()
		ch.activated = true
	} else if ch.snapDestAdjust == adjReload {
		ch.dstAddr = ch.dstReg & ch.addrMask()
	}
	ch.active = true
}

// Tick transfers one unit for the lowest-indexed active channel (real
// hardware priority is channel 0 highest, channel 3 lowest; only one
// channel can own the bus at a time).
func (c *Controller) Tick() {
	for i := range c.ch {
		ch := &c.ch[i]
		if ch.active {
			c.transferUnit(ch)
			return
		}
	}
}

func (c *Controller) transferUnit(ch *channel) {
	if !inDMARegisterWindow(ch.srcAddr) && !inDMARegisterWindow(ch.dstAddr) {
		if ch.snapUnitSize32 {
			c.bus.Write32(ch.dstAddr, c.bus.Read32(ch.srcAddr))
		} else {
			c.bus.Write16(ch.dstAddr, c.bus.Read16(ch.srcAddr))
		}
	}

	unit := uint32(2)
	if ch.snapUnitSize32 {
		unit = 4
	}
	ch.srcAddr = adjustAddr(ch.srcAddr, ch.snapSrcAdjust, unit)
	ch.dstAddr = adjustAddr(ch.dstAddr, ch.snapDestAdjust, unit)

	ch.remaining--
	if ch.remaining != 0 {
		return
	}

	ch.active = false
	if ch.snapIRQ {
		c.irq.Request(dmaLines[ch.index])
	}
	if ch.snapRepeat {
		// Stays armed; control's enable bit (bit 15) is untouched.
		return
	}
	ch.control &^= 1 << 15
}

func adjustAddr(addr uint32, adjust addrAdjust, unit uint32) uint32 {
	switch adjust {
	case adjIncrement, adjReload:
		return addr + unit
	case adjDecrement:
		return addr - unit
	default: // adjFixed
		return addr
	}
}

func inDMARegisterWindow(addr uint32) bool {
	return addr >= dmaRegionStart && addr <= dmaRegionEnd
}

// ReadIO implements the byte-wide register window at
// 0x040000B0-0x040000E1 (four channels x 12 bytes: SAD, DAD, CNT_L, CNT_H).
func (c *Controller) ReadIO(offset uint32) uint8 {
	i := int(offset / 12)
	if i > 3 {
		return 0
	}
	ch := &c.ch[i]
	r := offset % 12
	switch {
	case r < 4:
		return byteOf(ch.srcReg, r)
	case r < 8:
		return byteOf(ch.dstReg, r-4)
	case r < 10:
		return byteOf(uint32(ch.countReg), r-8)
	default:
		return byteOf(uint32(ch.control), r-10)
	}
}

// WriteIO implements the matching write side.
func (c *Controller) WriteIO(offset uint32, value uint8) {
	i := int(offset / 12)
	if i > 3 {
		return
	}
	ch := &c.ch[i]
	r := offset % 12
	switch {
	case r < 4:
		ch.srcReg = setByte(ch.srcReg, r, value)
	case r < 8:
		ch.dstReg = setByte(ch.dstReg, r-4, value)
	case r < 10:
		ch.countReg = uint16(setByte(uint32(ch.countReg), r-8, value))
	default:
		wasEnabled := ch.control&(1<<15) != 0
		ch.control = uint16(setByte(uint32(ch.control), r-10, value))
		nowEnabled := ch.control&(1<<15) != 0
		if nowEnabled && !wasEnabled {
			ch.activated = false
			if startTiming((ch.control>>12)&0x3) == timingImmediate {
				c.activate(ch)
			}
		}
		if !nowEnabled {
			ch.active = false
		}
	}
}

func byteOf(v uint32, idx uint32) uint8 { return uint8(v >> (8 * idx)) }

func setByte(v uint32, idx uint32, b uint8) uint32 {
	shift := 8 * idx
	return (v &^ (0xFF << shift)) | (uint32(b) << shift)
}
