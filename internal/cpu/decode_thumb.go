package cpu

// execThumb dispatches one already-fetched, already-PC-advanced Thumb
// instruction halfword by translating it to the ARM-equivalent decoded
// instruction the fixed Thumb format table specifies (spec §4.1).
func (c *CPU) execThumb(instr uint16) {
	switch {
	case instr>>13 == 0b000 && instr>>11 != 0b011:
		c.thumbMoveShifted(instr)
	case instr>>11 == 0b00011:
		c.thumbAddSubtract(instr)
	case instr>>13 == 0b001:
		c.thumbMovCmpAddSubImm(instr)
	case instr>>10 == 0b010000:
		c.thumbALU(instr)
	case instr>>10 == 0b010001:
		c.thumbHiRegOps(instr)
	case instr>>11 == 0b01001:
		c.thumbPCRelativeLoad(instr)
	case instr>>12 == 0b0101 && instr>>9&1 == 0:
		c.thumbLoadStoreRegOffset(instr)
	case instr>>12 == 0b0101 && instr>>9&1 == 1:
		c.thumbLoadStoreSignExtended(instr)
	case instr>>13 == 0b011:
		c.thumbLoadStoreImmOffset(instr)
	case instr>>12 == 0b1000:
		c.thumbLoadStoreHalfword(instr)
	case instr>>12 == 0b1001:
		c.thumbSPRelativeLoadStore(instr)
	case instr>>12 == 0b1010:
		c.thumbLoadAddress(instr)
	case instr>>8 == 0b10110000:
		c.thumbAddOffsetToSP(instr)
	case instr>>12 == 0b1011 && instr>>9&0x3 == 0b10:
		c.thumbPushPop(instr)
	case instr>>12 == 0b1100:
		c.thumbMultipleLoadStore(instr)
	case instr>>12 == 0b1101 && instr>>8&0xF == 0xF:
		c.thumbSoftwareInterrupt(instr)
	case instr>>12 == 0b1101:
		c.thumbConditionalBranch(instr)
	case instr>>11 == 0b11100:
		c.thumbUnconditionalBranch(instr)
	case instr>>12 == 0b1111:
		c.thumbLongBranchLink(instr)
	default:
		c.enterException(UNDMode, vectorUndefined)
	}
}

// Format 1: move shifted register -> MOVS Rd, Rm, <shift> #imm5
func (c *CPU) thumbMoveShifted(instr uint16) {
	op := (instr >> 11) & 0x3
	imm5 := uint8((instr >> 6) & 0x1F)
	rm := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	c.dispatch(decoded{
		Class: classDataProcessing, Cond: CondAL,
		Op: OpMOV, S: true, Rd: rd, ShiftT: ShiftType(op), ShiftAmt: imm5, Rm: rm,
	})
}

// Format 2: add/subtract register or 3-bit immediate -> ADDS/SUBS
func (c *CPU) thumbAddSubtract(instr uint16) {
	sub := (instr>>9)&1 != 0
	imm := (instr>>10)&1 != 0
	rnOrImm := uint8((instr >> 6) & 0x7)
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	op := OpADD
	if sub {
		op = OpSUB
	}
	d := decoded{Class: classDataProcessing, Cond: CondAL, Op: op, S: true, Rn: rs, Rd: rd}
	if imm {
		d.UseRawImm = true
		d.ImmValue = uint32(rnOrImm)
	} else {
		d.Rm = rnOrImm
	}
	c.dispatch(d)
}

// Format 3: move/compare/add/subtract immediate -> MOVS/CMP/ADDS/SUBS Rd,#imm8
func (c *CPU) thumbMovCmpAddSubImm(instr uint16) {
	opBits := (instr >> 11) & 0x3
	rd := uint8((instr >> 8) & 0x7)
	imm8 := uint8(instr & 0xFF)
	var op DPOp
	switch opBits {
	case 0:
		op = OpMOV
	case 1:
		op = OpCMP
	case 2:
		op = OpADD
	default:
		op = OpSUB
	}
	c.dispatch(decoded{
		Class: classDataProcessing, Cond: CondAL, Op: op, S: true,
		Rn: rd, Rd: rd, UseRawImm: true, ImmValue: uint32(imm8),
	})
}

// Format 4: ALU operations -> the matching ARM data-processing opcode,
// or a synthesized MUL/NEG/shift-by-register form.
func (c *CPU) thumbALU(instr uint16) {
	op := (instr >> 6) & 0xF
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)

	switch op {
	case 0x2, 0x3, 0x4, 0x7: // LSL, LSR, ASR, ROR by register
		shiftType := map[uint16]ShiftType{0x2: ShiftLSL, 0x3: ShiftLSR, 0x4: ShiftASR, 0x7: ShiftROR}[op]
		c.dispatch(decoded{
			Class: classDataProcessing, Cond: CondAL, Op: OpMOV, S: true,
			Rd: rd, Rm: rd, ShiftT: shiftType, ShiftByReg: true, ShiftAmt: rs,
		})
	case 0x9: // NEG Rd, Rs -> RSBS Rd, Rs, #0
		c.dispatch(decoded{
			Class: classDataProcessing, Cond: CondAL, Op: OpRSB, S: true,
			Rn: rs, Rd: rd, ImmOp2: true, Imm8: 0,
		})
	case 0xD: // MUL Rd, Rs
		c.dispatch(decoded{Class: classMultiply, Cond: CondAL, S: true, Rd: rd, Rs: rs, Rm: rd})
	default:
		dpOps := map[uint16]DPOp{
			0x0: OpAND, 0x1: OpEOR, 0x5: OpADC, 0x6: OpSBC,
			0x8: OpTST, 0xA: OpCMP, 0xB: OpCMN, 0xC: OpORR, 0xE: OpBIC, 0xF: OpMVN,
		}
		c.dispatch(decoded{
			Class: classDataProcessing, Cond: CondAL, Op: dpOps[op], S: true,
			Rn: rd, Rd: rd, Rm: rs,
		})
	}
}

// Format 5: Hi register operations and branch/exchange.
func (c *CPU) thumbHiRegOps(instr uint16) {
	op := (instr >> 8) & 0x3
	h1 := (instr>>7)&1 != 0
	h2 := (instr>>6)&1 != 0
	rs := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	if h1 {
		rd += 8
	}
	if h2 {
		rs += 8
	}

	switch op {
	case 0: // ADD Rd, Rd, Rs (no flags)
		c.dispatch(decoded{Class: classDataProcessing, Cond: CondAL, Op: OpADD, Rn: rd, Rd: rd, Rm: rs})
	case 1: // CMP Rd, Rs
		c.dispatch(decoded{Class: classDataProcessing, Cond: CondAL, Op: OpCMP, S: true, Rn: rd, Rm: rs})
	case 2: // MOV Rd, Rs (no flags)
		c.dispatch(decoded{Class: classDataProcessing, Cond: CondAL, Op: OpMOV, Rd: rd, Rm: rs})
	case 3: // BX Rs
		c.dispatch(decoded{Class: classBranchExchange, Cond: CondAL, ExchangeRm: rs})
	}
}

// Format 6: PC-relative load -> LDR Rd, [PC, #imm8*4], PC word-aligned.
// The value of PC used here is the instruction address + 4, bit 1
// cleared; c.regs.PC has already advanced by 2 past the instruction.
func (c *CPU) thumbPCRelativeLoad(instr uint16) {
	rd := uint8((instr >> 8) & 0x7)
	imm8 := uint32(instr&0xFF) * 4
	base := (c.regs.PC + 2) &^ 3
	c.regs.SetReg(rd, c.bus.Read32(base+imm8))
}

// Format 7: load/store with register offset.
func (c *CPU) thumbLoadStoreRegOffset(instr uint16) {
	load := (instr>>11)&1 != 0
	byteOp := (instr>>10)&1 != 0
	ro := uint8((instr >> 6) & 0x7)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	c.dispatch(decoded{
		Class: classSingleDataTransfer, Cond: CondAL, Load: load, ByteTransfer: byteOp,
		Rn: rb, Rd: rd, Pre: true, Up: true, Rm: ro,
	})
}

// Format 8: load/store sign-extended byte/halfword.
func (c *CPU) thumbLoadStoreSignExtended(instr uint16) {
	hFlag := (instr>>11)&1 != 0
	signFlag := (instr>>10)&1 != 0
	ro := uint8((instr >> 6) & 0x7)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)

	d := decoded{Class: classHalfwordTransfer, Cond: CondAL, Pre: true, Up: true, Rn: rb, Rd: rd, Rm: ro}
	switch {
	case !signFlag && !hFlag: // STRH
		d.Load = false
	case !signFlag && hFlag: // LDRH
		d.Load = true
	case signFlag && !hFlag: // LDSB
		d.Load = true
		d.HalfwordSigned = true
		d.HalfwordIsByte = true
	default: // LDSH
		d.Load = true
		d.HalfwordSigned = true
	}
	c.dispatch(d)
}

// Format 9: load/store with 5-bit immediate offset (word or byte).
func (c *CPU) thumbLoadStoreImmOffset(instr uint16) {
	byteOp := (instr>>12)&1 != 0
	load := (instr>>11)&1 != 0
	imm5 := uint32((instr >> 6) & 0x1F)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	offset := imm5 * 4
	if byteOp {
		offset = imm5
	}
	c.dispatch(decoded{
		Class: classSingleDataTransfer, Cond: CondAL, Load: load, ByteTransfer: byteOp,
		Rn: rb, Rd: rd, Pre: true, Up: true, ImmOp2: true, Offset12: offset,
	})
}

// Format 10: load/store halfword with 5-bit immediate (*2) offset.
func (c *CPU) thumbLoadStoreHalfword(instr uint16) {
	load := (instr>>11)&1 != 0
	imm5 := uint32((instr >> 6) & 0x1F)
	rb := uint8((instr >> 3) & 0x7)
	rd := uint8(instr & 0x7)
	c.dispatch(decoded{
		Class: classHalfwordTransfer, Cond: CondAL, Load: load,
		Rn: rb, Rd: rd, Pre: true, Up: true, HalfwordImm: true, Offset12: imm5 * 2,
	})
}

// Format 11: SP-relative load/store -> STR/LDR Rd, [SP, #imm8*4].
func (c *CPU) thumbSPRelativeLoadStore(instr uint16) {
	load := (instr>>11)&1 != 0
	rd := uint8((instr >> 8) & 0x7)
	imm8 := uint32(instr&0xFF) * 4
	c.dispatch(decoded{
		Class: classSingleDataTransfer, Cond: CondAL, Load: load,
		Rn: 13, Rd: rd, Pre: true, Up: true, ImmOp2: true, Offset12: imm8,
	})
}

// Format 12: load address -> ADD Rd, PC/SP, #imm8*4 (flags unaffected).
func (c *CPU) thumbLoadAddress(instr uint16) {
	sp := (instr>>11)&1 != 0
	rd := uint8((instr >> 8) & 0x7)
	imm8 := uint8(instr & 0xFF)
	if sp {
		c.dispatch(decoded{
			Class: classDataProcessing, Cond: CondAL, Op: OpADD, Rn: 13, Rd: rd,
			UseRawImm: true, ImmValue: uint32(imm8) * 4,
		})
		return
	}
	base := (c.regs.PC + 2) &^ 3
	val := base + uint32(imm8)*4
	c.regs.SetReg(rd, val)
}

// Format 13: add offset to stack pointer -> ADD/SUB SP, SP, #imm7*4.
func (c *CPU) thumbAddOffsetToSP(instr uint16) {
	sub := (instr>>7)&1 != 0
	imm7 := uint8(instr & 0x7F)
	op := OpADD
	if sub {
		op = OpSUB
	}
	c.dispatch(decoded{
		Class: classDataProcessing, Cond: CondAL, Op: op, Rn: 13, Rd: 13,
		UseRawImm: true, ImmValue: uint32(imm7) * 4,
	})
}

// Format 14: push/pop registers -> block transfer with write-back; the
// LR bit on push and the PC bit on pop translate to the corresponding
// block-transfer register-list bit (spec §4.1).
func (c *CPU) thumbPushPop(instr uint16) {
	pop := (instr>>11)&1 != 0
	rFlag := (instr>>8)&1 != 0
	list := uint16(instr & 0xFF)
	if rFlag {
		if pop {
			list |= 1 << 15
		} else {
			list |= 1 << 14
		}
	}
	if pop {
		c.dispatch(decoded{Class: classBlockDataTransfer, Cond: CondAL, Load: true, Up: true, Pre: false, WriteBack: true, Rn: 13, RegisterList: list})
	} else {
		c.dispatch(decoded{Class: classBlockDataTransfer, Cond: CondAL, Load: false, Up: false, Pre: true, WriteBack: true, Rn: 13, RegisterList: list})
	}
}

// Format 15: multiple load/store -> STMIA/LDMIA Rb!, {Rlist}.
func (c *CPU) thumbMultipleLoadStore(instr uint16) {
	load := (instr>>11)&1 != 0
	rb := uint8((instr >> 8) & 0x7)
	list := uint16(instr & 0xFF)
	c.dispatch(decoded{Class: classBlockDataTransfer, Cond: CondAL, Load: load, Up: true, Pre: false, WriteBack: true, Rn: rb, RegisterList: list})
}

// Format 16: conditional branch.
func (c *CPU) thumbConditionalBranch(instr uint16) {
	cond := Condition((instr >> 8) & 0xF)
	if !c.checkCondition(cond) {
		return
	}
	offset := int32(int8(instr & 0xFF))
	c.regs.PC = uint32(int32(c.regs.PC+2) + offset*2)
}

// Format 17: software interrupt.
func (c *CPU) thumbSoftwareInterrupt(instr uint16) {
	c.enterException(SVCMode, vectorSWI)
}

// Format 18: unconditional branch, 11-bit offset.
func (c *CPU) thumbUnconditionalBranch(instr uint16) {
	offset := signExtend11(instr & 0x7FF)
	c.regs.PC = uint32(int32(c.regs.PC+2) + offset*2)
}

// Format 19: long branch with link, split across two Thumb halfwords
// with no single ARM equivalent (spec §4.1).
func (c *CPU) thumbLongBranchLink(instr uint16) {
	low := (instr>>11)&1 != 0
	offset11 := uint32(instr & 0x7FF)
	if !low {
		hi := signExtend11(uint16(offset11)) << 12
		c.regs.SetReg(14, uint32(int32(c.regs.PC+2)+hi))
		return
	}
	lr := c.regs.GetReg(14)
	target := lr + offset11<<1
	next := c.regs.PC
	c.regs.SetReg(14, next|1)
	c.regs.PC = target
}

func signExtend11(v uint16) int32 {
	if v&0x400 != 0 {
		return int32(v) - 0x800
	}
	return int32(v)
}
