package cpu

// execARM dispatches one already-fetched, already-PC-advanced ARM
// instruction word (spec §4.2).
func (c *CPU) execARM(instr uint32) {
	d := decodeARM(instr)
	if !c.checkCondition(d.Cond) {
		return
	}
	c.dispatch(d)
}

// dispatch executes an already-decoded, already-condition-checked
// instruction. Both the ARM and Thumb front ends funnel into it, since
// every Thumb format translates to an ARM-equivalent operation
// (spec §4.1 "Thumb translation is specified, not derived").
func (c *CPU) dispatch(d decoded) {
	switch d.Class {
	case classDataProcessing:
		c.execDataProcessing(d)
	case classPSRTransfer:
		c.execPSRTransfer(d)
	case classMultiply:
		c.execMultiply(d)
	case classMultiplyLong:
		c.execMultiplyLong(d)
	case classBranchExchange:
		c.execBranchExchange(d)
	case classSingleSwap:
		c.execSingleSwap(d)
	case classHalfwordTransfer:
		c.execHalfwordTransfer(d)
	case classSingleDataTransfer:
		c.execSingleDataTransfer(d)
	case classBlockDataTransfer:
		c.execBlockDataTransfer(d)
	case classBranch:
		c.execBranch(d)
	case classSoftwareInterrupt:
		c.enterException(SVCMode, vectorSWI)
	case classUndefined:
		c.enterException(UNDMode, vectorUndefined)
	}
}

func (c *CPU) checkCondition(cond Condition) bool {
	n, z, cy, v := c.regs.GetFlagN(), c.regs.GetFlagZ(), c.regs.GetFlagC(), c.regs.GetFlagV()
	switch cond {
	case CondEQ:
		return z
	case CondNE:
		return !z
	case CondCS:
		return cy
	case CondCC:
		return !cy
	case CondMI:
		return n
	case CondPL:
		return !n
	case CondVS:
		return v
	case CondVC:
		return !v
	case CondHI:
		return cy && !z
	case CondLS:
		return !cy || z
	case CondGE:
		return n == v
	case CondLT:
		return n != v
	case CondGT:
		return !z && n == v
	case CondLE:
		return z || n != v
	case CondAL:
		return true
	default: // CondNV
		return false
	}
}

// operand2 resolves a data-processing instruction's second operand and
// the shifter's carry-out (spec §4.2 "Barrel shifter").
func (c *CPU) operand2(d decoded) (uint32, bool) {
	if d.UseRawImm {
		return d.ImmValue, c.regs.GetFlagC()
	}
	if d.ImmOp2 {
		return rotateImmediate(d.Imm8, d.RotImm, c.regs.GetFlagC())
	}
	rm := c.readRmForShift(d)
	if d.ShiftByReg {
		amount := c.regs.GetReg(d.ShiftAmt) & 0xFF
		return shiftByRegister(d.ShiftT, rm, amount, c.regs.GetFlagC())
	}
	return shiftImmediate(d.ShiftT, rm, d.ShiftAmt, c.regs.GetFlagC())
}

// readReg reads a register as an ordinary ALU/address operand, applying
// the r15 prefetch quirk: a plain read of r15 sees the executing
// instruction's address + 8, not the raw PC. c.step() has already
// advanced c.regs.PC to the next instruction's address by the time
// execution reaches here, so that quirk value is c.regs.PC + 4
// (spec §4.2). The data-processing Rn operand and the single and halfword
// transfer base reads go through this, matching the Rm handling
// readRmForShift does for the shifter's own input; swap, block-transfer
// and multiply operands are read with GetReg directly.
func (c *CPU) readReg(n uint8) uint32 {
	if n != 15 {
		return c.regs.GetReg(n)
	}
	return c.regs.PC + 4
}

// readRmForShift applies the PC prefetch quirk: when Rm is r15 and the
// shift amount comes from a register, the read PC is 12 ahead of the
// instruction rather than the usual 8 (spec §4.2).
func (c *CPU) readRmForShift(d decoded) uint32 {
	if d.Rm != 15 {
		return c.regs.GetReg(d.Rm)
	}
	if d.ShiftByReg {
		return c.regs.PC + 8
	}
	return c.readReg(d.Rm)
}

func (c *CPU) execDataProcessing(d decoded) {
	op2, shifterCarry := c.operand2(d)
	rn := c.readReg(d.Rn)
	var result uint32
	var carryOut = shifterCarry
	var arithmetic bool

	switch d.Op {
	case OpAND:
		result = rn & op2
	case OpEOR:
		result = rn ^ op2
	case OpSUB:
		result = rn - op2
		arithmetic = true
	case OpRSB:
		result = op2 - rn
		arithmetic = true
	case OpADD:
		result = rn + op2
		arithmetic = true
	case OpADC:
		result = rn + op2 + boolToBit(c.regs.GetFlagC())
		arithmetic = true
	case OpSBC:
		result = rn - op2 - (1 - boolToBit(c.regs.GetFlagC()))
		arithmetic = true
	case OpRSC:
		result = op2 - rn - (1 - boolToBit(c.regs.GetFlagC()))
		arithmetic = true
	case OpTST:
		result = rn & op2
	case OpTEQ:
		result = rn ^ op2
	case OpCMP:
		result = rn - op2
		arithmetic = true
	case OpCMN:
		result = rn + op2
		arithmetic = true
	case OpORR:
		result = rn | op2
	case OpMOV:
		result = op2
	case OpBIC:
		result = rn &^ op2
	case OpMVN:
		result = ^op2
	}

	isTestOp := d.Op == OpTST || d.Op == OpTEQ || d.Op == OpCMP || d.Op == OpCMN
	if !isTestOp {
		c.regs.SetReg(d.Rd, result)
	}

	if !d.S {
		return
	}
	if d.Rd == 15 && !isTestOp {
		mode := c.regs.GetMode()
		if mode != USRMode && mode != SYSMode {
			c.regs.SetCPSR(c.regs.GetSPSR())
		}
		return
	}

	c.regs.SetFlagN(result&0x80000000 != 0)
	c.regs.SetFlagZ(result == 0)
	if arithmetic {
		c.regs.SetFlagC(carryArithmetic(d.Op, rn, op2))
		c.regs.SetFlagV(overflowArithmetic(d.Op, rn, op2, result))
	} else {
		c.regs.SetFlagC(carryOut)
	}
}

func carryArithmetic(op DPOp, a, b uint32) bool {
	switch op {
	case OpADD, OpADC, OpCMN:
		return uint64(a)+uint64(b) > 0xFFFFFFFF
	case OpSUB, OpCMP, OpSBC:
		return a >= b
	case OpRSB, OpRSC:
		return b >= a
	}
	return false
}

func overflowArithmetic(op DPOp, a, b, result uint32) bool {
	switch op {
	case OpADD, OpADC, OpCMN:
		return (a^result)&(b^result)&0x80000000 != 0
	case OpSUB, OpCMP, OpSBC:
		return (a^b)&(a^result)&0x80000000 != 0
	case OpRSB, OpRSC:
		return (b^a)&(b^result)&0x80000000 != 0
	}
	return false
}

func (c *CPU) execPSRTransfer(d decoded) {
	if d.Rn != 0xFF {
		// MRS
		var v uint32
		if d.UseSPSR {
			v = c.regs.GetSPSR()
		} else {
			v = c.regs.GetCPSR()
		}
		c.regs.SetReg(d.Rd, v)
		return
	}

	var op2 uint32
	if d.MSRImm {
		op2, _ = rotateImmediate(d.Imm8, d.RotImm, false)
	} else {
		op2 = c.regs.GetReg(d.Rm)
	}

	var mask uint32
	if d.FieldMask&0x1 != 0 {
		mask |= 0x000000FF
	}
	if d.FieldMask&0x2 != 0 {
		mask |= 0x0000FF00
	}
	if d.FieldMask&0x4 != 0 {
		mask |= 0x00FF0000
	}
	if d.FieldMask&0x8 != 0 {
		mask |= 0xFF000000
	}

	if d.UseSPSR {
		cur := c.regs.GetSPSR()
		c.regs.SetSPSR((cur &^ mask) | (op2 & mask))
		return
	}
	cur := c.regs.GetCPSR()
	c.regs.SetCPSR((cur &^ mask) | (op2 & mask))
}

func (c *CPU) execMultiply(d decoded) {
	result := c.regs.GetReg(d.Rs) * c.regs.GetReg(d.Rm)
	if d.Accumulate {
		result += c.regs.GetReg(d.Rn)
	}
	c.regs.SetReg(d.Rd, result)
	if d.S {
		c.regs.SetFlagN(result&0x80000000 != 0)
		c.regs.SetFlagZ(result == 0)
	}
}

func (c *CPU) execMultiplyLong(d decoded) {
	rs := c.regs.GetReg(d.Rs)
	rm := c.regs.GetReg(d.Rm)
	var product uint64
	if d.SignedMul {
		product = uint64(int64(int32(rs)) * int64(int32(rm)))
	} else {
		product = uint64(rs) * uint64(rm)
	}
	if d.Accumulate {
		hi, lo := c.regs.GetReg(d.RdHi), c.regs.GetReg(d.RdLo)
		product += uint64(hi)<<32 | uint64(lo)
	}
	c.regs.SetReg(d.RdHi, uint32(product>>32))
	c.regs.SetReg(d.RdLo, uint32(product))
	if d.S {
		c.regs.SetFlagN(product&0x8000000000000000 != 0)
		c.regs.SetFlagZ(product == 0)
	}
}

func (c *CPU) execBranchExchange(d decoded) {
	rm := c.regs.GetReg(d.ExchangeRm)
	thumb := rm&1 != 0
	c.regs.SetThumbState(thumb)
	if thumb {
		c.regs.PC = rm &^ 1
	} else {
		c.regs.PC = rm &^ 3
	}
}

func (c *CPU) execSingleSwap(d decoded) {
	addr := c.regs.GetReg(d.Rn)
	if d.ByteTransfer {
		old := c.bus.Read8(addr)
		c.bus.Write8(addr, uint8(c.regs.GetReg(d.Rm)))
		c.regs.SetReg(d.Rd, uint32(old))
		return
	}
	old := c.bus.Read32(addr)
	c.bus.Write32(addr, c.regs.GetReg(d.Rm))
	c.regs.SetReg(d.Rd, old)
}

func (c *CPU) halfwordOffset(d decoded) uint32 {
	if d.HalfwordImm {
		return d.Offset12
	}
	return c.regs.GetReg(d.Rm)
}

func (c *CPU) execHalfwordTransfer(d decoded) {
	base := c.readReg(d.Rn)
	offset := c.halfwordOffset(d)
	var preAddr uint32
	if d.Up {
		preAddr = base + offset
	} else {
		preAddr = base - offset
	}

	addr := base
	if d.Pre {
		addr = preAddr
	}

	if d.Load {
		var val uint32
		switch {
		case d.HalfwordIsByte:
			val = signExtend8(c.bus.Read8(addr))
		case d.HalfwordSigned:
			if addr&1 != 0 {
				val = signExtend8(c.bus.Read8(addr &^ 1))
			} else {
				val = signExtend16(c.bus.Read16(addr))
			}
		default:
			val = uint32(c.bus.Read16(addr))
		}
		c.regs.SetReg(d.Rd, val)
	} else {
		c.bus.Write16(addr, uint16(c.regs.GetReg(d.Rd)))
	}

	if d.WriteBack && !(d.Load && d.Rd == d.Rn) {
		if d.Pre {
			c.regs.SetReg(d.Rn, addr)
		} else {
			c.regs.SetReg(d.Rn, preAddr)
		}
	} else if !d.Pre {
		c.regs.SetReg(d.Rn, preAddr)
	}
}

func (c *CPU) sdtOffset(d decoded) uint32 {
	if d.ImmOp2 {
		return d.Offset12
	}
	rm := c.regs.GetReg(d.Rm)
	v, _ := shiftImmediate(d.ShiftT, rm, d.ShiftAmt, c.regs.GetFlagC())
	return v
}

func (c *CPU) execSingleDataTransfer(d decoded) {
	base := c.readReg(d.Rn)
	offset := c.sdtOffset(d)
	var preAddr uint32
	if d.Up {
		preAddr = base + offset
	} else {
		preAddr = base - offset
	}

	addr := base
	if d.Pre {
		addr = preAddr
	}

	if d.Load {
		var val uint32
		if d.ByteTransfer {
			val = uint32(c.bus.Read8(addr))
		} else {
			val = c.bus.Read32(addr)
		}
		if d.Rd == 15 {
			c.regs.PC = val &^ 3
		} else {
			c.regs.SetReg(d.Rd, val)
		}
	} else {
		var val uint32
		if d.Rd == 15 {
			val = c.regs.PC + 8
		} else {
			val = c.regs.GetReg(d.Rd)
		}
		if d.ByteTransfer {
			c.bus.Write8(addr, uint8(val))
		} else {
			c.bus.Write32(addr, val)
		}
	}

	// Write-back is suppressed when loading into the base register.
	if d.Load && d.Rd == d.Rn {
		return
	}
	if d.Pre {
		if d.WriteBack {
			c.regs.SetReg(d.Rn, addr)
		}
	} else {
		c.regs.SetReg(d.Rn, preAddr)
	}
}

func (c *CPU) execBlockDataTransfer(d decoded) {
	base := c.regs.GetReg(d.Rn)
	count := popCount16(d.RegisterList)

	emptyList := count == 0
	addrCount := count
	if emptyList {
		addrCount = 1
	}

	var lowest, final uint32
	if d.Up {
		if d.Pre {
			lowest = base + 4
		} else {
			lowest = base
		}
		if emptyList {
			final = base + 0x40
		} else {
			final = base + uint32(addrCount)*4
		}
	} else {
		if d.Pre {
			lowest = base - uint32(addrCount)*4
		} else {
			lowest = base - uint32(addrCount)*4 + 4
		}
		if emptyList {
			final = base - 0x40
		} else {
			final = base - uint32(addrCount)*4
		}
	}

	if emptyList {
		if d.Load {
			c.regs.PC = c.bus.Read32(lowest) &^ 3
		} else {
			c.bus.Write32(lowest, c.regs.PC+8)
		}
		c.regs.SetReg(d.Rn, final)
		return
	}

	firstRegSeen := false
	addr := lowest
	for i := uint8(0); i < 16; i++ {
		if d.RegisterList&(1<<i) == 0 {
			continue
		}
		isFirst := !firstRegSeen
		firstRegSeen = true

		if d.Load {
			val := c.bus.Read32(addr)
			if i == 15 {
				c.regs.PC = val &^ 3
				if d.SBit {
					c.regs.SetCPSR(c.regs.GetSPSR())
				}
			} else {
				c.regs.SetReg(i, val)
			}
		} else {
			var val uint32
			switch {
			case i == 15:
				val = c.regs.PC + 8
			case i == d.Rn && isFirst:
				val = base
			case i == d.Rn:
				val = final
			default:
				val = c.regs.GetReg(i)
			}
			c.bus.Write32(addr, val)
		}
		addr += 4
	}

	if !d.WriteBack {
		return
	}
	if d.Load && d.RegisterList&(1<<d.Rn) != 0 {
		return
	}
	c.regs.SetReg(d.Rn, final)
}

func (c *CPU) execBranch(d decoded) {
	if d.Link {
		c.regs.SetReg(14, c.regs.PC)
	}
	c.regs.PC = uint32(int32(c.regs.PC+4) + d.BranchOff)
}

func popCount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

func signExtend8(v uint8) uint32  { return uint32(int32(int8(v))) }
func signExtend16(v uint16) uint32 { return uint32(int32(int16(v))) }
