package ppu

// layerMask holds the per-column enable state a window resolves to:
// which of BG0-3/OBJ are visible through it, and whether blend effects
// apply inside it (spec §4.6 "Window masks").
type layerMask struct {
	bg       [4]bool
	obj      bool
	effects  bool
}

func allEnabledMask() layerMask {
	return layerMask{bg: [4]bool{true, true, true, true}, obj: true, effects: true}
}

func decodeLayerMask(v uint8) layerMask {
	return layerMask{
		bg: [4]bool{v&1 != 0, v&2 != 0, v&4 != 0, v&8 != 0},
		obj:     v&0x10 != 0,
		effects: v&0x20 != 0,
	}
}

// inWindowRange reports whether coord lies within [lo,hi); when lo>hi
// the hardware treats the range as wrapping around the screen edge
// (spec §4.6 "degenerate window rectangles").
func inWindowRange(coord, lo, hi, size int) bool {
	if lo <= hi {
		return coord >= lo && coord < hi
	}
	return coord >= lo || coord < hi
}

// renderScanline produces the composited 240-pixel row for the current
// line and writes it into p.fb (spec §4.4-§4.6).
func (p *PPU) renderScanline() {
	mode := p.bgMode()
	for n := 0; n < 4; n++ {
		for x := 0; x < screenWidth; x++ {
			p.bgLine[n][x] = bgPixel{}
		}
	}

	switch mode {
	case 0:
		for n := 0; n < 4; n++ {
			if p.bgEnabled(n) {
				p.renderTextBG(n)
			}
		}
	case 1:
		if p.bgEnabled(0) {
			p.renderTextBG(0)
		}
		if p.bgEnabled(1) {
			p.renderTextBG(1)
		}
		if p.bgEnabled(2) {
			p.renderAffineBG(2, 0)
		}
	case 2:
		if p.bgEnabled(2) {
			p.renderAffineBG(2, 0)
		}
		if p.bgEnabled(3) {
			p.renderAffineBG(3, 1)
		}
	case 3:
		if p.bgEnabled(2) {
			p.renderBitmapBG3()
		}
	case 4:
		if p.bgEnabled(2) {
			p.renderBitmapBG4()
		}
	case 5:
		if p.bgEnabled(2) {
			p.renderBitmapBG5()
		}
	}

	p.renderObjects()
	p.compositeLine()
}

func (p *PPU) windowMaskAt(x int) layerMask {
	if !p.anyWindowEnabled() {
		return allEnabledMask()
	}

	if p.win0Enabled() {
		h, v := p.win0H(), p.win0V()
		if inWindowRange(x, int(h.lo), int(h.hi), screenWidth) && inWindowRange(p.line, int(v.lo), int(v.hi), screenHeight) {
			return decodeLayerMask(uint8(p.winIn()))
		}
	}
	if p.win1Enabled() {
		h, v := p.win1H(), p.win1V()
		if inWindowRange(x, int(h.lo), int(h.hi), screenWidth) && inWindowRange(p.line, int(v.lo), int(v.hi), screenHeight) {
			return decodeLayerMask(uint8(p.winIn() >> 8))
		}
	}
	if p.objWinEnabled() && p.objWindow[x] {
		return decodeLayerMask(uint8(p.winOut() >> 8))
	}
	return decodeLayerMask(uint8(p.winOut()))
}

type visiblePixel struct {
	layer    int // 0-3 BG, 4 OBJ, 5 backdrop
	priority uint8
	color    uint16
	semi     bool
}

// compositeLine resolves, per column, the window mask, the priority-
// ordered visible layers, and any blend effect between the top two,
// writing the final BGR555 color into the framebuffer (spec §4.6).
func (p *PPU) compositeLine() {
	base := p.line * screenWidth
	for x := 0; x < screenWidth; x++ {
		mask := p.windowMaskAt(x)

		var candidates [6]visiblePixel
		n := 0
		if mask.obj && p.objEnabled() && p.objLine[x].valid {
			op := p.objLine[x]
			candidates[n] = visiblePixel{layer: 4, priority: op.priority, color: op.color, semi: op.semiTransparent}
			n++
		}
		for bg := 0; bg < 4; bg++ {
			if mask.bg[bg] && p.bgEnabled(bg) && p.bgLine[bg][x].valid {
				candidates[n] = visiblePixel{layer: bg, priority: p.bgCNT(bg).priority, color: p.bgLine[bg][x].color}
				n++
			}
		}
		candidates[n] = visiblePixel{layer: 5, priority: 4, color: p.paletteColor(0)}
		n++

		cs := candidates[:n]
		sortVisiblePixels(cs)

		top := cs[0]
		result := top.color

		if mask.effects {
			sourceMask := p.blendSourceMask()
			targetMask := p.blendTargetMask()
			blendMode := p.mode()

			if top.semi && len(cs) > 1 && layerBit(cs[1].layer)&targetMask != 0 {
				result = blendAlphaColors(top.color, cs[1].color, p.eva(), p.evb())
			} else if layerBit(top.layer)&sourceMask != 0 {
				switch blendMode {
				case blendAlpha:
					if len(cs) > 1 && layerBit(cs[1].layer)&targetMask != 0 {
						result = blendAlphaColors(top.color, cs[1].color, p.eva(), p.evb())
					}
				case blendFadeWhite:
					result = fadeToward(top.color, 0x7FFF, p.ey())
				case blendFadeBlack:
					result = fadeToward(top.color, 0, p.ey())
				}
			}
		}

		p.fb[base+x] = result
	}
}

func layerBit(layer int) uint8 { return 1 << uint(layer) }

// sortVisiblePixels orders candidates by ascending priority number
// (lower wins); among equal priority, OBJ beats BG, and lower BG index
// beats higher (spec §4.6 "priority resolution").
func sortVisiblePixels(cs []visiblePixel) {
	rank := func(v visiblePixel) int {
		layerRank := v.layer
		if v.layer == 4 {
			layerRank = -1 // OBJ sorts ahead of all BGs at equal priority
		}
		return int(v.priority)*10 + layerRank
	}
	for i := 1; i < len(cs); i++ {
		j := i
		for j > 0 && rank(cs[j]) < rank(cs[j-1]) {
			cs[j], cs[j-1] = cs[j-1], cs[j]
			j--
		}
	}
}

func channels(c uint16) (r, g, b uint16) {
	return c & 0x1F, (c >> 5) & 0x1F, (c >> 10) & 0x1F
}

func packColor(r, g, b uint16) uint16 {
	return r | g<<5 | b<<10
}

func clamp31(v int) uint16 {
	if v > 31 {
		return 31
	}
	if v < 0 {
		return 0
	}
	return uint16(v)
}

func blendAlphaColors(a, b uint16, eva, evb uint8) uint16 {
	ar, ag, ab := channels(a)
	br, bg, bb := channels(b)
	r := clamp31((int(ar)*int(eva) + int(br)*int(evb)) >> 4)
	g := clamp31((int(ag)*int(eva) + int(bg)*int(evb)) >> 4)
	bl := clamp31((int(ab)*int(eva) + int(bb)*int(evb)) >> 4)
	return packColor(r, g, bl)
}

func fadeToward(c, target uint16, evy uint8) uint16 {
	cr, cg, cb := channels(c)
	tr, tg, tb := channels(target)
	r := clamp31(int(cr) + ((int(tr)-int(cr))*int(evy))>>4)
	g := clamp31(int(cg) + ((int(tg)-int(cg))*int(evy))>>4)
	b := clamp31(int(cb) + ((int(tb)-int(cb))*int(evy))>>4)
	return packColor(r, g, b)
}
