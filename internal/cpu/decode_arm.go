package cpu

// decodeARM classifies a 32-bit ARM-state instruction word into one of
// the twelve ARM instruction classes in types.go (spec §4.1). Coprocessor
// encodings have no class of their own and decode as undefined.
func decodeARM(instr uint32) decoded {
	d := decoded{Cond: Condition((instr >> 28) & 0xF)}

	switch (instr >> 26) & 0x3 {
	case 0b00:
		decodeDataProcessingGroup(instr, &d)
	case 0b01:
		decodeSingleDataTransfer(instr, &d)
	case 0b10:
		if (instr>>25)&1 != 0 {
			decodeBranch(instr, &d)
		} else {
			decodeBlockDataTransfer(instr, &d)
		}
	case 0b11:
		decodeSWIOrUndefined(instr, &d)
	}
	return d
}

func decodeDataProcessingGroup(instr uint32, d *decoded) {
	switch {
	case (instr & 0x0FFFFFF0) == 0x012FFF10:
		d.Class = classBranchExchange
		d.ExchangeRm = uint8(instr & 0xF)

	case (instr>>23)&0x1F == 0b00010 && (instr>>20)&0x3 == 0 && (instr>>16)&0x3F == 0x0F && instr&0xFFF == 0:
		d.Class = classPSRTransfer
		d.UseSPSR = (instr>>22)&1 != 0
		d.Rd = uint8((instr >> 12) & 0xF)

	case (instr>>23)&0x1F == 0b00010 && (instr>>20)&0x3 == 0 && (instr>>4)&0xFF == 0x09:
		d.Class = classSingleSwap
		d.ByteTransfer = (instr>>22)&1 != 0
		d.Rn = uint8((instr >> 16) & 0xF)
		d.Rd = uint8((instr >> 12) & 0xF)
		d.Rm = uint8(instr & 0xF)

	case (instr>>23)&0x1F == 0b00010 && (instr>>20)&0x3 == 0b10:
		d.Class = classPSRTransfer
		d.UseSPSR = (instr>>22)&1 != 0
		d.MSRImm = (instr>>25)&1 != 0
		d.FieldMask = uint8((instr >> 16) & 0xF)
		d.Rn = 0xFF // marks MSR (no Rd target); MRS leaves Rn != 0xFF and Rd valid
		if d.MSRImm {
			d.Imm8 = uint8(instr & 0xFF)
			d.RotImm = uint8((instr >> 8) & 0xF)
		} else {
			d.Rm = uint8(instr & 0xF)
		}

	case (instr>>23)&0x1F == 0b00001 && (instr>>4)&0xF == 0x9:
		d.Class = classMultiplyLong
		d.SignedMul = (instr>>22)&1 != 0
		d.Accumulate = (instr>>21)&1 != 0
		d.S = (instr>>20)&1 != 0
		d.RdHi = uint8((instr >> 16) & 0xF)
		d.RdLo = uint8((instr >> 12) & 0xF)
		d.Rs = uint8((instr >> 8) & 0xF)
		d.Rm = uint8(instr & 0xF)

	case (instr>>23)&0x1F == 0b00000 && (instr>>4)&0xF == 0x9:
		d.Class = classMultiply
		d.Accumulate = (instr>>21)&1 != 0
		d.S = (instr>>20)&1 != 0
		d.Rd = uint8((instr >> 16) & 0xF)
		d.Rn = uint8((instr >> 12) & 0xF)
		d.Rs = uint8((instr >> 8) & 0xF)
		d.Rm = uint8(instr & 0xF)

	case (instr>>25)&0x7 == 0 && (instr>>7)&1 == 1 && (instr>>4)&1 == 1 && (instr>>5)&0x3 != 0:
		d.Class = classHalfwordTransfer
		d.Pre = (instr>>24)&1 != 0
		d.Up = (instr>>23)&1 != 0
		d.HalfwordImm = (instr>>22)&1 != 0
		d.WriteBack = (instr>>21)&1 != 0
		d.Load = (instr>>20)&1 != 0
		d.Rn = uint8((instr >> 16) & 0xF)
		d.Rd = uint8((instr >> 12) & 0xF)
		sh := (instr >> 5) & 0x3
		d.HalfwordSigned = sh&0x2 != 0
		d.HalfwordIsByte = sh == 0x2
		if d.HalfwordImm {
			d.Offset12 = ((instr >> 4) & 0xF0) | (instr & 0xF)
		} else {
			d.Rm = uint8(instr & 0xF)
		}

	default:
		decodeDataProcessing(instr, d)
	}
}

func decodeDataProcessing(instr uint32, d *decoded) {
	op := DPOp((instr >> 21) & 0xF)
	s := (instr>>20)&1 != 0

	if !s && (op == OpTST || op == OpTEQ || op == OpCMP || op == OpCMN) {
		d.Class = classPSRTransfer
		d.UseSPSR = (instr>>22)&1 != 0
		d.MSRImm = (instr>>25)&1 != 0
		d.FieldMask = uint8((instr >> 16) & 0xF)
		d.Rn = 0xFF
		if d.MSRImm {
			d.Imm8 = uint8(instr & 0xFF)
			d.RotImm = uint8((instr >> 8) & 0xF)
		} else {
			d.Rm = uint8(instr & 0xF)
		}
		return
	}

	d.Class = classDataProcessing
	d.ImmOp2 = (instr>>25)&1 != 0
	d.Op = op
	d.S = s
	d.Rn = uint8((instr >> 16) & 0xF)
	d.Rd = uint8((instr >> 12) & 0xF)

	if d.ImmOp2 {
		d.Imm8 = uint8(instr & 0xFF)
		d.RotImm = uint8((instr >> 8) & 0xF)
		return
	}

	d.ShiftT = ShiftType((instr >> 5) & 0x3)
	d.ShiftByReg = (instr>>4)&1 != 0
	d.Rm = uint8(instr & 0xF)
	if d.ShiftByReg {
		d.ShiftAmt = uint8((instr >> 8) & 0xF) // register number
	} else {
		d.ShiftAmt = uint8((instr >> 7) & 0x1F)
	}
}

func decodeSingleDataTransfer(instr uint32, d *decoded) {
	d.Class = classSingleDataTransfer
	d.ImmOp2 = (instr>>25)&1 == 0 // bit25=0: 12-bit immediate offset; =1: shifted register
	d.Pre = (instr>>24)&1 != 0
	d.Up = (instr>>23)&1 != 0
	d.ByteTransfer = (instr>>22)&1 != 0
	d.WriteBack = (instr>>21)&1 != 0
	d.Load = (instr>>20)&1 != 0
	d.Rn = uint8((instr >> 16) & 0xF)
	d.Rd = uint8((instr >> 12) & 0xF)

	if d.ImmOp2 {
		d.Offset12 = instr & 0xFFF
		return
	}
	d.ShiftT = ShiftType((instr >> 5) & 0x3)
	d.ShiftAmt = uint8((instr >> 7) & 0x1F)
	d.Rm = uint8(instr & 0xF)
}

func decodeBlockDataTransfer(instr uint32, d *decoded) {
	d.Class = classBlockDataTransfer
	d.Pre = (instr>>24)&1 != 0
	d.Up = (instr>>23)&1 != 0
	d.SBit = (instr>>22)&1 != 0
	d.WriteBack = (instr>>21)&1 != 0
	d.Load = (instr>>20)&1 != 0
	d.Rn = uint8((instr >> 16) & 0xF)
	d.RegisterList = uint16(instr & 0xFFFF)
}

func decodeBranch(instr uint32, d *decoded) {
	d.Class = classBranch
	d.Link = (instr>>24)&1 != 0
	offset := instr & 0x00FFFFFF
	signed := int32(offset << 8) >> 8 // sign-extend 24 bits
	d.BranchOff = signed << 2
}

func decodeSWIOrUndefined(instr uint32, d *decoded) {
	if (instr>>24)&0xF == 0xF {
		d.Class = classSoftwareInterrupt
		d.SWIComment = instr & 0x00FFFFFF
		return
	}
	// Coprocessor data-transfer/operation/register-transfer instructions:
	// the GBA has no coprocessor, so these trap as undefined (spec §4.2
	// exception-entry note: "FIQ and the two abort vectors are defined
	// but unused"; undefined is the vector these actually reach).
	d.Class = classUndefined
}
