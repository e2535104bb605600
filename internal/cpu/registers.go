package cpu

import (
	"fmt"
	"strconv"

	"github.com/kestrelcore/goba/util/dbg"
)

// ARM7TDMI CPU operating modes (CPSR bits 4-0).
const (
	USRMode = 0b10000
	FIQMode = 0b10001
	IRQMode = 0b10010
	SVCMode = 0b10011
	ABTMode = 0b10111
	UNDMode = 0b11011
	SYSMode = 0b11111
)

// CPSR condition/control bit positions.
const (
	flagN = 31
	flagZ = 30
	flagC = 29
	flagV = 28
	bitI  = 7
	bitF  = 6
	bitT  = 5
)

// Registers holds the ARM7TDMI's sixteen general-purpose registers plus
// the banked copies each privileged mode keeps of R13/R14 (and, for FIQ,
// R8-R12), and the current/saved program status registers.
type Registers struct {
	R [13]uint32 // R0-R12 outside FIQ mode

	SPUsr, LRUsr uint32
	SPSvc, LRSvc uint32
	SPAbt, LRAbt uint32
	SPUnd, LRUnd uint32
	SPIrq, LRIrq uint32

	R8Fiq, R9Fiq, R10Fiq, R11Fiq, R12Fiq uint32
	SPFiq, LRFiq                         uint32

	PC uint32

	CPSR uint32

	SPSRSvc, SPSRAbt, SPSRUnd, SPSRIrq, SPSRFiq uint32
}

// NewRegisters returns Registers reset to the ARM7TDMI's post-reset state:
// Supervisor mode, ARM state, IRQ and FIQ both masked.
func NewRegisters() *Registers {
	r := &Registers{}
	r.CPSR = uint32(SVCMode) | (1 << bitI) | (1 << bitF)
	return r
}

func (r *Registers) GetMode() uint8 { return uint8(r.CPSR & 0x1F) }

// SetMode rewrites the CPSR mode bits only, leaving flags and control
// bits untouched. Banked register access automatically follows.
func (r *Registers) SetMode(mode uint8) {
	r.CPSR = (r.CPSR &^ 0x1F) | uint32(mode)
}

func (r *Registers) GetCPSR() uint32  { return r.CPSR }
func (r *Registers) SetCPSR(v uint32) { r.CPSR = v }

// GetReg reads R0-R15, resolving banked registers from the current mode.
// R15 reads return the raw PC; callers needing the ARM +8/Thumb +4
// prefetch view add that themselves.
func (r *Registers) GetReg(n uint8) uint32 {
	if n == 15 {
		return r.PC
	}
	if n > 15 {
		panic("cpu: read of undefined register R" + strconv.Itoa(int(n)))
	}
	mode := r.GetMode()
	if mode == FIQMode {
		switch n {
		case 8:
			return r.R8Fiq
		case 9:
			return r.R9Fiq
		case 10:
			return r.R10Fiq
		case 11:
			return r.R11Fiq
		case 12:
			return r.R12Fiq
		case 13:
			return r.SPFiq
		case 14:
			return r.LRFiq
		}
	}
	if n == 13 {
		return r.bankedSP(mode)
	}
	if n == 14 {
		return r.bankedLR(mode)
	}
	return r.R[n]
}

// SetReg writes R0-R15. Writing R15 sets the raw PC; branching callers
// are responsible for flushing whatever pipeline state they model.
func (r *Registers) SetReg(n uint8, value uint32) {
	if n == 15 {
		r.PC = value
		return
	}
	if n > 15 {
		panic("cpu: write of undefined register R" + strconv.Itoa(int(n)))
	}
	mode := r.GetMode()
	if mode == FIQMode {
		switch n {
		case 8:
			r.R8Fiq = value
			return
		case 9:
			r.R9Fiq = value
			return
		case 10:
			r.R10Fiq = value
			return
		case 11:
			r.R11Fiq = value
			return
		case 12:
			r.R12Fiq = value
			return
		case 13:
			r.SPFiq = value
			return
		case 14:
			r.LRFiq = value
			return
		}
	}
	if n == 13 {
		r.setBankedSP(mode, value)
		return
	}
	if n == 14 {
		r.setBankedLR(mode, value)
		return
	}
	r.R[n] = value
}

func (r *Registers) bankedSP(mode uint8) uint32 {
	switch mode {
	case SVCMode:
		return r.SPSvc
	case ABTMode:
		return r.SPAbt
	case UNDMode:
		return r.SPUnd
	case IRQMode:
		return r.SPIrq
	default:
		return r.SPUsr
	}
}

func (r *Registers) setBankedSP(mode uint8, value uint32) {
	switch mode {
	case SVCMode:
		r.SPSvc = value
	case ABTMode:
		r.SPAbt = value
	case UNDMode:
		r.SPUnd = value
	case IRQMode:
		r.SPIrq = value
	default:
		r.SPUsr = value
	}
}

func (r *Registers) bankedLR(mode uint8) uint32 {
	switch mode {
	case SVCMode:
		return r.LRSvc
	case ABTMode:
		return r.LRAbt
	case UNDMode:
		return r.LRUnd
	case IRQMode:
		return r.LRIrq
	default:
		return r.LRUsr
	}
}

func (r *Registers) setBankedLR(mode uint8, value uint32) {
	switch mode {
	case SVCMode:
		r.LRSvc = value
	case ABTMode:
		r.LRAbt = value
	case UNDMode:
		r.LRUnd = value
	case IRQMode:
		r.LRIrq = value
	default:
		r.LRUsr = value
	}
}

// GetSPSR returns the saved program status register banked to the
// current mode. USR/SYS modes have no SPSR; reading in those modes
// returns 0, matching the "unpredictable" real-hardware behavior closely
// enough for software that never does it deliberately.
func (r *Registers) GetSPSR() uint32 {
	switch r.GetMode() {
	case FIQMode:
		return r.SPSRFiq
	case SVCMode:
		return r.SPSRSvc
	case ABTMode:
		return r.SPSRAbt
	case IRQMode:
		return r.SPSRIrq
	case UNDMode:
		return r.SPSRUnd
	default:
		return 0
	}
}

func (r *Registers) SetSPSR(value uint32) {
	switch r.GetMode() {
	case FIQMode:
		r.SPSRFiq = value
	case SVCMode:
		r.SPSRSvc = value
	case ABTMode:
		r.SPSRAbt = value
	case IRQMode:
		r.SPSRIrq = value
	case UNDMode:
		r.SPSRUnd = value
	default:
		dbg.Printf("cpu: SetSPSR called in mode %02X, discarded\n", r.GetMode())
	}
}

func (r *Registers) IsThumb() bool           { return r.CPSR&(1<<bitT) != 0 }
func (r *Registers) SetThumbState(set bool)  { r.setBit(bitT, set) }
func (r *Registers) IsFIQDisabled() bool     { return r.CPSR&(1<<bitF) != 0 }
func (r *Registers) SetFIQDisabled(set bool) { r.setBit(bitF, set) }
func (r *Registers) IsIRQDisabled() bool     { return r.CPSR&(1<<bitI) != 0 }
func (r *Registers) SetIRQDisabled(set bool) { r.setBit(bitI, set) }

func (r *Registers) GetFlagN() bool { return r.CPSR&(1<<flagN) != 0 }
func (r *Registers) GetFlagZ() bool { return r.CPSR&(1<<flagZ) != 0 }
func (r *Registers) GetFlagC() bool { return r.CPSR&(1<<flagC) != 0 }
func (r *Registers) GetFlagV() bool { return r.CPSR&(1<<flagV) != 0 }

func (r *Registers) SetFlagN(set bool) { r.setBit(flagN, set) }
func (r *Registers) SetFlagZ(set bool) { r.setBit(flagZ, set) }
func (r *Registers) SetFlagC(set bool) { r.setBit(flagC, set) }
func (r *Registers) SetFlagV(set bool) { r.setBit(flagV, set) }

func (r *Registers) setBit(pos uint, set bool) {
	if set {
		r.CPSR |= 1 << pos
	} else {
		r.CPSR &^= 1 << pos
	}
}

func modeName(mode uint8) string {
	switch mode {
	case USRMode:
		return "USR"
	case FIQMode:
		return "FIQ"
	case IRQMode:
		return "IRQ"
	case SVCMode:
		return "SVC"
	case ABTMode:
		return "ABT"
	case UNDMode:
		return "UND"
	case SYSMode:
		return "SYS"
	default:
		return fmt.Sprintf("?%02X?", mode)
	}
}

// String renders the register file for debug logging.
func (r *Registers) String() string {
	state := "ARM"
	if r.IsThumb() {
		state = "THUMB"
	}
	return fmt.Sprintf(
		"R0 =%08X R1 =%08X R2 =%08X R3 =%08X\n"+
			"R4 =%08X R5 =%08X R6 =%08X R7 =%08X\n"+
			"R8 =%08X R9 =%08X R10=%08X R11=%08X\n"+
			"R12=%08X SP =%08X LR =%08X PC =%08X\n"+
			"CPSR=%08X (%s %s N:%t Z:%t C:%t V:%t I:%t F:%t)",
		r.GetReg(0), r.GetReg(1), r.GetReg(2), r.GetReg(3),
		r.GetReg(4), r.GetReg(5), r.GetReg(6), r.GetReg(7),
		r.GetReg(8), r.GetReg(9), r.GetReg(10), r.GetReg(11),
		r.GetReg(12), r.GetReg(13), r.GetReg(14), r.PC,
		r.CPSR, modeName(r.GetMode()), state,
		r.GetFlagN(), r.GetFlagZ(), r.GetFlagC(), r.GetFlagV(),
		r.IsIRQDisabled(), r.IsFIQDisabled(),
	)
}
