package ppu

import (
	"testing"

	"github.com/kestrelcore/goba/internal/interrupt"
)

type stubDMA struct{ vblanks, hblanks int }

func (s *stubDMA) OnVBlank() { s.vblanks++ }
func (s *stubDMA) OnHBlank() { s.hblanks++ }

// TestScanPositionInvariant is spec §8's universal PPU invariant: for
// any N master ticks, (dot, line) equals (N mod 1232, (N/1232) mod 228).
func TestScanPositionInvariant(t *testing.T) {
	p := New(interrupt.New(), &stubDMA{})
	for n := 1; n <= dotsPerLine*linesPerFrame*2+37; n++ {
		p.Tick()
		wantDot := n % dotsPerLine
		wantLine := (n / dotsPerLine) % linesPerFrame
		if p.dot != wantDot || p.line != wantLine {
			t.Fatalf("after %d ticks: (dot,line)=(%d,%d), want (%d,%d)", n, p.dot, p.line, wantDot, wantLine)
		}
	}
}

// TestFrameReadyOncePerFrame: the frame-ready flag is raised exactly
// once per 280,896-tick frame (spec §8).
func TestFrameReadyOncePerFrame(t *testing.T) {
	p := New(interrupt.New(), &stubDMA{})
	ready := 0
	for n := 0; n < dotsPerLine*linesPerFrame; n++ {
		p.Tick()
		if _, ok := p.TryTakeFramebuffer(); ok {
			ready++
		}
	}
	if ready != 1 {
		t.Fatalf("got %d frame-ready events in one frame, want 1", ready)
	}
}

func TestVBlankHBlankEdgesFireDMATrigger(t *testing.T) {
	dma := &stubDMA{}
	p := New(interrupt.New(), dma)
	for n := 0; n < dotsPerLine*linesPerFrame; n++ {
		p.Tick()
	}
	if dma.vblanks != 1 {
		t.Fatalf("got %d vblank edges in one frame, want 1", dma.vblanks)
	}
	if dma.hblanks != screenHeight {
		t.Fatalf("got %d hblank edges in one frame, want %d", dma.hblanks, screenHeight)
	}
}

// TestBlendAlphaIdentity: spec §8 - with EVA=16, EVB=0 the alpha blend
// of any top/bottom pair equals the top color unchanged.
func TestBlendAlphaIdentity(t *testing.T) {
	tops := []uint16{0, 0x1F, 0x3FF << 5, 0x7FFF, packColor(5, 17, 29)}
	other := uint16(0x7FFF)
	for _, top := range tops {
		got := blendAlphaColors(top, other, 16, 0)
		if got != top {
			t.Fatalf("blendAlphaColors(%#x, eva=16, evb=0) = %#x, want %#x", top, got, top)
		}
	}
}

// TestFadeIdentity: spec §8 - with EY=0 both fade directions are the
// identity transform.
func TestFadeIdentity(t *testing.T) {
	colors := []uint16{0, 0x1F, 0x3FF << 5, 0x7FFF, packColor(5, 17, 29)}
	for _, c := range colors {
		if got := fadeToward(c, 0x7FFF, 0); got != c {
			t.Fatalf("fadeToward(%#x, white, ey=0) = %#x, want %#x", c, got, c)
		}
		if got := fadeToward(c, 0, 0); got != c {
			t.Fatalf("fadeToward(%#x, black, ey=0) = %#x, want %#x", c, got, c)
		}
	}
}

func TestFadeFullWhiteAndFullBlack(t *testing.T) {
	c := packColor(5, 17, 29)
	if got := fadeToward(c, 0x7FFF, 16); got != 0x7FFF {
		t.Fatalf("full-strength fade to white = %#x, want 0x7FFF", got)
	}
	if got := fadeToward(c, 0, 16); got != 0 {
		t.Fatalf("full-strength fade to black = %#x, want 0", got)
	}
}
