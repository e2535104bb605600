// Package keypad implements the GBA keypad latch: a 10-bit button state
// register (0 = pressed) and its IRQ-condition control register
// (spec §6 "0x130-0x131: keypad state").
package keypad

import "github.com/kestrelcore/goba/internal/interrupt"

// Button identifies one of the ten keypad lines, in the bit order the
// external interface uses (spec §6 "update_keypad").
type Button uint16

const (
	A Button = 1 << iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
	R
	L
)

// Keypad holds the latched button state and the IRQ-condition register.
type Keypad struct {
	state uint16 // 0 = pressed, per bit (spec §6)
	cnt   uint16

	irq *interrupt.Controller
}

// New returns a Keypad with every button released and its IRQ disabled.
func New(irq *interrupt.Controller) *Keypad {
	return &Keypad{state: 0x03FF, irq: irq}
}

// SetState replaces the full 10-bit button mask (spec §6
// "update_keypad(state)"; bit=0 means pressed).
func (k *Keypad) SetState(state uint16) {
	k.state = state & 0x03FF
	k.checkIRQ()
}

// checkIRQ evaluates KEYCNT's condition (AND or OR of the selected
// buttons, all pressed means bit clear) and raises the keypad interrupt
// line when it's satisfied and enabled.
func (k *Keypad) checkIRQ() {
	if k.cnt&(1<<14) == 0 {
		return
	}
	selected := k.cnt & 0x03FF
	pressedMask := selected &^ k.state // bits that are selected AND pressed
	var condition bool
	if k.cnt&(1<<15) != 0 {
		condition = pressedMask == selected // AND: all selected buttons pressed
	} else {
		condition = pressedMask != 0 // OR: any selected button pressed
	}
	if condition {
		k.irq.Request(interrupt.Keypad)
	}
}

// ReadIO/WriteIO implement the byte-wide register window at
// 0x04000130-0x04000133: KEYINPUT (read-only) then KEYCNT.
func (k *Keypad) ReadIO(offset uint32) uint8 {
	switch offset {
	case 0x00:
		return uint8(k.state)
	case 0x01:
		return uint8(k.state >> 8)
	case 0x02:
		return uint8(k.cnt)
	case 0x03:
		return uint8(k.cnt >> 8)
	default:
		return 0
	}
}

func (k *Keypad) WriteIO(offset uint32, value uint8) {
	switch offset {
	case 0x02:
		k.cnt = (k.cnt &^ 0xFF) | uint16(value)
	case 0x03:
		k.cnt = (k.cnt &^ 0xFF00) | (uint16(value) << 8)
	}
}
