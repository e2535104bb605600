package emulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const ticksPerFrame = 228 * 1232 // spec §8: 280,896 ticks per frame

// TestMode3FullScreenFill is grounded in spec §8 scenario 1: with BG mode
// 3 selected and BG2 enabled, every VRAM pixel written as 0x7C1F renders
// as a framebuffer of uniform bright magenta (15-bit BGR) after one
// frame. Register/VRAM pokes go straight through the bus (the same path
// CPU store instructions use) so this exercises the PPU pipeline without
// depending on a hand-assembled program.
func TestMode3FullScreenFill(t *testing.T) {
	e := New()

	const dispcnt = 0x04000000
	const vramBase = 0x06000000
	const width, height = 240, 160

	e.bus.Write16(dispcnt, 0x0403) // BG mode 3, BG2 enabled
	for i := 0; i < width*height; i++ {
		e.bus.Write16(uint32(vramBase+i*2), 0x7C1F)
	}

	// Force the CPU out of the way: an infinite branch-to-self at PC so
	// no instruction execution perturbs VRAM during the frame.
	e.cpu.Registers().SetReg(15, 0x08000000)
	e.cart.LoadImage([]byte{0xFE, 0xFF, 0xFF, 0xEA}) // B . (branch to self, ARM)

	var fb []byte
	for i := 0; i < ticksPerFrame; i++ {
		e.Tick()
		if got, ok := e.TryTakeFramebuffer(); ok {
			fb = got
		}
	}

	if !assert.NotNil(t, fb, "expected a completed frame within one frame's worth of ticks") {
		return
	}
	for i := 0; i < width*height; i++ {
		lo, hi := fb[i*2], fb[i*2+1]
		if lo != 0x1F || hi != 0x7C {
			t.Fatalf("pixel %d = (%02X,%02X), want (1F,7C)", i, lo, hi)
		}
	}
}

// TestFrameReadyCadence is spec §8's universal PPU invariant: the
// frame-ready flag is raised exactly once per 280,896-tick frame.
func TestFrameReadyCadence(t *testing.T) {
	e := New()
	frames := 0
	for i := 0; i < ticksPerFrame; i++ {
		e.Tick()
		if _, ok := e.TryTakeFramebuffer(); ok {
			frames++
		}
	}
	assert.Equal(t, 1, frames)
}

func TestUpdateKeypadRoundtrip(t *testing.T) {
	e := New()
	e.UpdateKeypad(0x0201)
	assert.Equal(t, uint8(0x01), e.key.ReadIO(0))
	assert.Equal(t, uint8(0x02), e.key.ReadIO(1))
}

func TestLoadBIOSAndCartridgeRejectEmpty(t *testing.T) {
	e := New()
	assert.Error(t, e.LoadBIOS(nil))
	assert.Error(t, e.LoadCartridge(nil))
	assert.NoError(t, e.LoadCartridge([]byte{0x01, 0x02, 0x03}))
}
