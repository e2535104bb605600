package cpu

import "testing"

// TestShiftGeneric_Invariants covers the barrel-shifter edge cases spec
// §8 calls universal invariants: LSR #32 -> (0, Rm[31]); LSL #32 -> (0,
// Rm[0]); ROR by a nonzero multiple of 32 is identity.
func TestShiftGeneric_Invariants(t *testing.T) {
	const rm = uint32(0x80000001)

	t.Run("LSL #32 yields 0 and carry=Rm[0]", func(t *testing.T) {
		v, c := shiftGeneric(ShiftLSL, rm, 32, false)
		if v != 0 || c != true {
			t.Fatalf("got (%#x,%v), want (0,true)", v, c)
		}
	})
	t.Run("LSL >32 yields 0,0", func(t *testing.T) {
		v, c := shiftGeneric(ShiftLSL, rm, 40, true)
		if v != 0 || c != false {
			t.Fatalf("got (%#x,%v), want (0,false)", v, c)
		}
	})
	t.Run("LSR #32 yields 0 and carry=Rm[31]", func(t *testing.T) {
		v, c := shiftGeneric(ShiftLSR, rm, 32, false)
		if v != 0 || c != true {
			t.Fatalf("got (%#x,%v), want (0,true)", v, c)
		}
	})
	t.Run("LSR >32 yields 0,0", func(t *testing.T) {
		v, c := shiftGeneric(ShiftLSR, rm, 40, true)
		if v != 0 || c != false {
			t.Fatalf("got (%#x,%v), want (0,false)", v, c)
		}
	})
	t.Run("ASR by >=32 of a negative value sign-extends to all 1s", func(t *testing.T) {
		v, c := shiftGeneric(ShiftASR, rm, 32, false)
		if v != 0xFFFFFFFF || c != true {
			t.Fatalf("got (%#x,%v), want (0xFFFFFFFF,true)", v, c)
		}
	})
	t.Run("ASR by >=32 of a positive value yields 0,0", func(t *testing.T) {
		v, c := shiftGeneric(ShiftASR, 0x7FFFFFFF, 33, true)
		if v != 0 || c != false {
			t.Fatalf("got (%#x,%v), want (0,false)", v, c)
		}
	})
	t.Run("ROR by a nonzero multiple of 32 is identity", func(t *testing.T) {
		v, _ := shiftGeneric(ShiftROR, rm, 64, false)
		if v != rm {
			t.Fatalf("got %#x, want %#x", v, rm)
		}
	})
}

func TestShiftImmediate_RRX(t *testing.T) {
	// ROR #0 on the immediate-shift path is the distinct RRX form: a
	// 33-bit rotate right through carry (spec §4.2).
	v, c := shiftImmediate(ShiftROR, 0x00000001, 0, true)
	if v != 0x80000000 || c != true {
		t.Fatalf("RRX: got (%#x,%v), want (0x80000000,true)", v, c)
	}

	v, c = shiftImmediate(ShiftROR, 0x00000002, 0, false)
	if v != 0x00000001 || c != false {
		t.Fatalf("RRX: got (%#x,%v), want (0x1,false)", v, c)
	}
}

func TestShiftImmediate_LSRLSRAliasFor32(t *testing.T) {
	v, c := shiftImmediate(ShiftLSR, 0x80000000, 0, false)
	if v != 0 || c != true {
		t.Fatalf("LSR #0 (alias #32): got (%#x,%v), want (0,true)", v, c)
	}
}

func TestShiftByRegister_ZeroAmountPassesThrough(t *testing.T) {
	v, c := shiftByRegister(ShiftLSL, 0x12345678, 0, true)
	if v != 0x12345678 || c != true {
		t.Fatalf("got (%#x,%v), want value unchanged and carry unchanged", v, c)
	}
}

func TestRotateImmediate(t *testing.T) {
	tests := []struct {
		name         string
		imm8         uint8
		rot          uint8
		carryIn      bool
		wantValue    uint32
		wantCarryOut bool
	}{
		{"zero rotate keeps carry-in", 0xFF, 0, false, 0xFF, false},
		{"zero rotate keeps carry-in true", 0xFF, 0, true, 0xFF, true},
		{"rotate by 2*1=2, no carry", 0x04, 1, false, 0x00000001, false},
		{"rotate producing a set top bit sets carry", 0x03, 1, false, 0xC0000000, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, c := rotateImmediate(tc.imm8, tc.rot, tc.carryIn)
			if v != tc.wantValue || c != tc.wantCarryOut {
				t.Fatalf("got (%#x,%v), want (%#x,%v)", v, c, tc.wantValue, tc.wantCarryOut)
			}
		})
	}
}
