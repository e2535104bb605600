package cpu

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupt"
	"github.com/stretchr/testify/assert"
)

// flatBus is a minimal byte-addressable Bus double for CPU tests: a flat
// 64 KiB little-endian memory, enough to host the short test programs
// exercised here.
type flatBus struct {
	mem [0x10000]byte
}

func (b *flatBus) Read8(addr uint32) uint8  { return b.mem[addr&0xFFFF] }
func (b *flatBus) Write8(addr uint32, v uint8) { b.mem[addr&0xFFFF] = v }
func (b *flatBus) Read16(addr uint32) uint16 {
	a := addr & 0xFFFF
	return uint16(b.mem[a]) | uint16(b.mem[a+1])<<8
}
func (b *flatBus) Write16(addr uint32, v uint16) {
	a := addr & 0xFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
}
func (b *flatBus) Read32(addr uint32) uint32 {
	a := addr & 0xFFFF
	return uint32(b.mem[a]) | uint32(b.mem[a+1])<<8 | uint32(b.mem[a+2])<<16 | uint32(b.mem[a+3])<<24
}
func (b *flatBus) Write32(addr uint32, v uint32) {
	a := addr & 0xFFFF
	b.mem[a] = uint8(v)
	b.mem[a+1] = uint8(v >> 8)
	b.mem[a+2] = uint8(v >> 16)
	b.mem[a+3] = uint8(v >> 24)
}

func newTestCPU() (*CPU, *flatBus) {
	bus := &flatBus{}
	c := New(bus, interrupt.New())
	c.regs.SetMode(SYSMode)
	return c, bus
}

// TestAddOverflow_PositiveWrap is spec §8 scenario 2: MOV r0,#0x80000000;
// ADDS r0,r0,#1 sets N=1 Z=0 C=0 V=0.
func TestAddOverflow_PositiveWrap(t *testing.T) {
	c, _ := newTestCPU()
	c.regs.SetReg(0, 0x80000000)
	c.dispatch(decoded{Class: classDataProcessing, Cond: CondAL, Op: OpADD, S: true, Rd: 0, Rn: 0, UseRawImm: true, ImmValue: 1})

	assert.Equal(t, uint32(0x80000001), c.regs.GetReg(0))
	assert.True(t, c.regs.GetFlagN())
	assert.False(t, c.regs.GetFlagZ())
	assert.False(t, c.regs.GetFlagC())
	assert.False(t, c.regs.GetFlagV())
}

// TestAddOverflow_SelfDouble is spec §8 scenario 3: MOVS r0,#0x80000000;
// ADDS r0,r0,r0 sets N=0 Z=1 C=1 V=1.
func TestAddOverflow_SelfDouble(t *testing.T) {
	c, _ := newTestCPU()
	c.regs.SetReg(0, 0x80000000)
	c.dispatch(decoded{Class: classDataProcessing, Cond: CondAL, Op: OpADD, S: true, Rd: 0, Rn: 0, Rm: 0})

	assert.Equal(t, uint32(0), c.regs.GetReg(0))
	assert.False(t, c.regs.GetFlagN())
	assert.True(t, c.regs.GetFlagZ())
	assert.True(t, c.regs.GetFlagC())
	assert.True(t, c.regs.GetFlagV())
}

// TestSWIEntry is spec §8 scenario 4: SWI #0x12 from user mode vectors to
// supervisor mode, banks LR, clears Thumb, sets IRQ-disable, PC=0x8.
func TestSWIEntry(t *testing.T) {
	c, _ := newTestCPU()
	c.regs.SetMode(USRMode)
	c.regs.SetThumbState(false)
	c.regs.PC = 0x08000010

	c.enterException(SVCMode, vectorSWI)

	assert.Equal(t, uint8(SVCMode), c.regs.GetMode())
	assert.Equal(t, uint32(0x08000010), c.regs.LRSvc)
	assert.Equal(t, uint32(0x00000008), c.regs.PC)
	assert.False(t, c.regs.IsThumb())
	assert.True(t, c.regs.IsIRQDisabled())
}

// TestPCAfterInvariant checks spec §8's universal CPU invariant:
// PC_after = PC_before + width for a non-branching instruction, in both
// ARM and Thumb state.
func TestPCAfterInvariant(t *testing.T) {
	t.Run("ARM", func(t *testing.T) {
		c, bus := newTestCPU()
		c.regs.SetThumbState(false)
		c.regs.PC = 0x08000000
		bus.Write32(0x08000000, 0xE1A00000) // MOV r0, r0 (NOP)
		before := c.regs.PC
		c.step()
		assert.Equal(t, before+4, c.regs.PC)
	})

	t.Run("Thumb", func(t *testing.T) {
		c, bus := newTestCPU()
		c.regs.SetThumbState(true)
		c.regs.PC = 0x08000000
		bus.Write16(0x08000000, 0x1C00) // MOV r0, r0 (ADDS r0,r0,#0)
		before := c.regs.PC
		c.step()
		assert.Equal(t, before+2, c.regs.PC)
	})
}

// TestRegisterBankingPermutation: switching into a privileged mode and
// back preserves every user-mode-visible register (spec §8).
func TestRegisterBankingPermutation(t *testing.T) {
	c, _ := newTestCPU()
	c.regs.SetMode(USRMode)
	for i := uint8(0); i < 13; i++ {
		c.regs.SetReg(i, uint32(i)*0x11111111)
	}
	c.regs.SetReg(13, 0xAAAA0000)
	c.regs.SetReg(14, 0xBBBB0000)

	snapshot := make([]uint32, 15)
	for i := uint8(0); i < 15; i++ {
		snapshot[i] = c.regs.GetReg(i)
	}

	c.regs.SetMode(IRQMode)
	c.regs.SetReg(13, 0xDEAD0000)
	c.regs.SetReg(14, 0xBEEF0000)
	c.regs.SetMode(USRMode)

	for i := uint8(0); i < 15; i++ {
		assert.Equal(t, snapshot[i], c.regs.GetReg(i), "R%d not preserved across mode switch", i)
	}
}

func TestCheckCondition(t *testing.T) {
	c, _ := newTestCPU()

	t.Run("AL always executes", func(t *testing.T) {
		assert.True(t, c.checkCondition(CondAL))
	})
	t.Run("NV never executes", func(t *testing.T) {
		assert.False(t, c.checkCondition(CondNV))
	})
	t.Run("EQ iff Z", func(t *testing.T) {
		c.regs.SetFlagZ(true)
		assert.True(t, c.checkCondition(CondEQ))
		assert.False(t, c.checkCondition(CondNE))
		c.regs.SetFlagZ(false)
		assert.False(t, c.checkCondition(CondEQ))
		assert.True(t, c.checkCondition(CondNE))
	})

	pairs := []struct{ a, b Condition }{
		{CondEQ, CondNE}, {CondCS, CondCC}, {CondMI, CondPL}, {CondVS, CondVC},
		{CondHI, CondLS}, {CondGE, CondLT}, {CondGT, CondLE},
	}
	for _, flags := range []uint32{0, flagNbit, flagZbit, flagCbit, flagVbit, flagNbit | flagVbit} {
		c.regs.SetCPSR(c.regs.GetCPSR()&0x1F | flags)
		for _, p := range pairs {
			if c.checkCondition(p.a) == c.checkCondition(p.b) {
				t.Fatalf("condition %v and its negation %v agree under flags %08X", p.a, p.b, flags)
			}
		}
	}
}

const (
	flagNbit = 1 << 31
	flagZbit = 1 << 30
	flagCbit = 1 << 29
	flagVbit = 1 << 28
)
