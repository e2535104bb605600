package interrupt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasInterrupt(t *testing.T) {
	c := New()
	assert.False(t, c.HasInterrupt(), "nothing pending, IME off")

	c.WriteIO(0x08, 1) // IME
	assert.False(t, c.HasInterrupt(), "IME on but nothing enabled/pending")

	c.Request(VBlank)
	assert.False(t, c.HasInterrupt(), "pending but not enabled in IE")

	c.WriteIO(0x00, uint8(VBlank)) // IE low byte
	assert.True(t, c.HasInterrupt())
}

// TestIFWriteOneToClear: IF is cleared only by a write-one-to-clear at
// that bit (spec §8).
func TestIFWriteOneToClear(t *testing.T) {
	c := New()
	c.Request(VBlank)
	c.Request(HBlank)

	c.WriteIO(0x02, uint8(HBlank)) // clear only HBlank

	assert.Equal(t, uint8(VBlank), c.ReadIO(0x02)&0xFF)
}

func TestRequestNeverClears(t *testing.T) {
	c := New()
	c.Request(Timer0)
	c.Request(Timer0) // OR-ing an already-set bit is a no-op, never clears
	assert.Equal(t, uint8(Timer0), c.ReadIO(0x02))
}

func TestIEReadWriteRoundtrip(t *testing.T) {
	c := New()
	c.WriteIO(0x00, 0xAB)
	c.WriteIO(0x01, 0xCD)
	assert.Equal(t, uint8(0xAB), c.ReadIO(0x00))
	assert.Equal(t, uint8(0xCD), c.ReadIO(0x01))
}
