// Package cpu implements the ARM7TDMI instruction decoder and executor:
// ARM and Thumb instruction classes, the barrel shifter, mode-banked
// registers, and exception entry (spec §4.1, §4.2).
package cpu

import "github.com/kestrelcore/goba/internal/interrupt"

// Bus is the narrow memory surface the CPU needs. internal/bus.Bus
// satisfies this structurally.
type Bus interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	Read16(addr uint32) uint16
	Write16(addr uint32, value uint16)
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
}

// Exception vectors (spec §4.2 "Exception entry").
const (
	vectorUndefined = 0x00000004
	vectorSWI       = 0x00000008
	vectorIRQ       = 0x00000018
)

// CPU holds the register file and executes one instruction (or one IRQ
// entry) per Tick, matching the emulator's one-instruction-per-master-
// tick timing approximation.
type CPU struct {
	regs *Registers
	bus  Bus
	irq  *interrupt.Controller
}

// New constructs a CPU wired to its bus and interrupt controller.
func New(bus Bus, irqCtl *interrupt.Controller) *CPU {
	return &CPU{regs: NewRegisters(), bus: bus, irq: irqCtl}
}

// Registers exposes the register file for debugging and for the
// emulator's reset/boot sequencing.
func (c *CPU) Registers() *Registers { return c.regs }

// Reset puts the CPU at the BIOS entry point in Supervisor mode with
// both interrupt lines masked, matching ARM7TDMI power-on state.
func (c *CPU) Reset() {
	c.regs = NewRegisters()
}

// Tick advances the CPU by exactly one step: if an interrupt is pending
// and not masked, it vectors to the IRQ handler; otherwise it executes
// one instruction at the current PC (spec §2 "Dataflow per master-clock
// tick").
func (c *CPU) Tick() {
	if c.irq.HasInterrupt() && !c.regs.IsIRQDisabled() {
		c.enterException(IRQMode, vectorIRQ)
		return
	}
	c.step()
}

func (c *CPU) step() {
	if c.regs.IsThumb() {
		pc := c.regs.PC
		instr := c.bus.Read16(pc)
		c.regs.PC = pc + 2
		c.execThumb(instr)
		return
	}
	pc := c.regs.PC & ^uint32(3)
	instr := c.bus.Read32(pc)
	c.regs.PC = pc + 4
	c.execARM(instr)
}

// enterException performs the save-and-vector sequence common to
// undefined-instruction, SWI, and IRQ entry (spec §4.2).
func (c *CPU) enterException(targetMode uint8, vector uint32) {
	cpsr := c.regs.GetCPSR()
	returnAddr := c.regs.PC
	c.regs.SetMode(targetMode)
	c.regs.SetSPSR(cpsr)
	c.regs.SetReg(14, returnAddr)
	c.regs.SetThumbState(false)
	c.regs.SetIRQDisabled(true)
	c.regs.PC = vector
}
