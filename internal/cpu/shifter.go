package cpu

import "github.com/kestrelcore/goba/util/convert"

// shiftImmediate implements the barrel shifter for an immediate shift
// amount (0..31) as encoded directly in a data-processing instruction
// (spec §4.2 "Barrel shifter"). LSR/ASR #0 are architectural aliases for
// #32; ROR #0 is the distinct RRX form (rotate through carry).
func shiftImmediate(shiftType ShiftType, value uint32, amount uint8, carryIn bool) (uint32, bool) {
	switch shiftType {
	case ShiftLSL:
		return shiftGeneric(ShiftLSL, value, uint32(amount), carryIn)
	case ShiftLSR:
		if amount == 0 {
			amount = 32
		}
		return shiftGeneric(ShiftLSR, value, uint32(amount), carryIn)
	case ShiftASR:
		if amount == 0 {
			amount = 32
		}
		return shiftGeneric(ShiftASR, value, uint32(amount), carryIn)
	case ShiftROR:
		if amount == 0 {
			result := value>>1 | boolToBit(carryIn)<<31
			return result, value&1 != 0
		}
		return shiftGeneric(ShiftROR, value, uint32(amount), carryIn)
	}
	return value, carryIn
}

// shiftByRegister implements the barrel shifter when the shift amount
// comes from a register's low 8 bits. All four shift types pass the
// value through unchanged, carry untouched, when that amount is zero.
func shiftByRegister(shiftType ShiftType, value uint32, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	return shiftGeneric(shiftType, value, amount, carryIn)
}

func shiftGeneric(shiftType ShiftType, value uint32, amount uint32, carryIn bool) (uint32, bool) {
	if amount == 0 {
		return value, carryIn
	}
	switch shiftType {
	case ShiftLSL:
		switch {
		case amount < 32:
			return value << amount, (value>>(32-amount))&1 != 0
		case amount == 32:
			return 0, value&1 != 0
		default:
			return 0, false
		}
	case ShiftLSR:
		switch {
		case amount < 32:
			return value >> amount, (value>>(amount-1))&1 != 0
		case amount == 32:
			return 0, value&0x80000000 != 0
		default:
			return 0, false
		}
	case ShiftASR:
		if amount >= 32 {
			if value&0x80000000 != 0 {
				return 0xFFFFFFFF, true
			}
			return 0, false
		}
		return uint32(int32(value) >> amount), (value>>(amount-1))&1 != 0
	case ShiftROR:
		rot := amount % 32
		carryBit := (amount - 1) % 32
		carryOut := (value>>carryBit)&1 != 0
		if rot == 0 {
			return value, carryOut
		}
		return (value >> rot) | (value << (32 - rot)), carryOut
	}
	return value, carryIn
}

// rotateImmediate implements the data-processing rotated-immediate
// operand: an 8-bit value rotated right by 2x a 4-bit field. Carry-out
// is bit 31 of the result unless the rotate count is zero, in which case
// carry-out is CPSR.C unchanged.
func rotateImmediate(imm8 uint8, rotField uint8, carryIn bool) (uint32, bool) {
	rot := uint32(rotField) * 2
	if rot == 0 {
		return uint32(imm8), carryIn
	}
	v := uint32(imm8)
	result := (v >> rot) | (v << (32 - rot))
	return result, result&0x80000000 != 0
}

// boolToBit adapts util/convert.BoolToInt's int result to the uint32
// bit width the ALU carry/borrow arithmetic needs.
func boolToBit(b bool) uint32 {
	return uint32(convert.BoolToInt(b))
}
