package ppu

const objCharBase = 0x10000 // spec §4.5: "sprite character data begins at offset 0x10000 in VRAM"

// spriteDims[shape][size] gives (width, height) in pixels (spec §3:
// "twelve legal sprite dimensions").
var spriteDims = [3][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},   // square
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},   // horizontal
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},   // vertical
}

type sprite struct {
	y, x                   int
	affine                 bool
	doubleSize, disable    bool
	mode                   uint8 // 0 normal, 1 blend, 2 window, 3 prohibited
	mosaic                 bool
	is8bpp                 bool
	shape, size            uint8
	affineIndex            uint8
	hflip, vflip           bool
	tileIndex              uint32
	priority               uint8
	paletteBank            uint32
}

func (p *PPU) readSprite(i int) sprite {
	base := uint32(i * 8)
	attr0 := uint16u(p.oam[base]) | uint16u(p.oam[base+1])<<8
	attr1 := uint16u(p.oam[base+2]) | uint16u(p.oam[base+3])<<8
	attr2 := uint16u(p.oam[base+4]) | uint16u(p.oam[base+5])<<8

	s := sprite{}
	s.y = int(attr0 & 0xFF)
	s.affine = attr0&(1<<8) != 0
	if s.affine {
		s.doubleSize = attr0&(1<<9) != 0
	} else {
		s.disable = attr0&(1<<9) != 0
	}
	s.mode = uint8((attr0 >> 10) & 0x3)
	s.mosaic = attr0&(1<<12) != 0
	s.is8bpp = attr0&(1<<13) != 0
	s.shape = uint8((attr0 >> 14) & 0x3)

	s.x = signExtend9(attr1 & 0x1FF)
	if s.affine {
		s.affineIndex = uint8((attr1 >> 9) & 0x1F)
	} else {
		s.hflip = attr1&(1<<12) != 0
		s.vflip = attr1&(1<<13) != 0
	}
	s.size = uint8((attr1 >> 14) & 0x3)

	s.tileIndex = uint32(attr2 & 0x3FF)
	s.priority = uint8((attr2 >> 10) & 0x3)
	s.paletteBank = uint32((attr2 >> 12) & 0xF)

	return s
}

func uint16u(b byte) uint16 { return uint16(b) }

func signExtend9(v uint16) int {
	if v&0x100 != 0 {
		return int(v) - 0x200
	}
	return int(v)
}

func (p *PPU) spriteAffine(index uint8) affineParams {
	base := uint32(index) * 32
	return affineParams{
		pa: int16(p.vramU16FromOAMSlot(base + 6)),
		pb: int16(p.vramU16FromOAMSlot(base + 14)),
		pc: int16(p.vramU16FromOAMSlot(base + 22)),
		pd: int16(p.vramU16FromOAMSlot(base + 30)),
	}
}

func (p *PPU) vramU16FromOAMSlot(off uint32) uint16 {
	return uint16(p.oam[off]) | uint16(p.oam[off+1])<<8
}

// renderObjects fills p.objLine (the visible sprite pixel per column,
// highest priority wins) and p.objWindow (the OBJ-window mask) for the
// current scanline (spec §4.5).
func (p *PPU) renderObjects() {
	for x := 0; x < screenWidth; x++ {
		p.objLine[x] = objPixel{}
		p.objWindow[x] = false
	}
	if !p.objEnabled() {
		return
	}

	// Main pass: back-to-front within each priority class, so a lower
	// OAM index of equal priority is drawn last and wins (spec §4.5).
	for priorityClass := 3; priorityClass >= 0; priorityClass-- {
		for i := 127; i >= 0; i-- {
			s := p.readSprite(i)
			if s.mode == 2 || int(s.priority) != priorityClass {
				continue
			}
			if !s.affine && s.disable {
				continue
			}
			p.renderOneSprite(s, false)
		}
	}

	// Second pass: OBJ-window contributors (spec §4.5 "second pass").
	for i := 0; i < 128; i++ {
		s := p.readSprite(i)
		if s.mode != 2 {
			continue
		}
		p.renderOneSprite(s, true)
	}
}

func (p *PPU) renderOneSprite(s sprite, windowPass bool) {
	dims := spriteDims[s.shape][s.size]
	w, h := dims[0], dims[1]
	footprintW, footprintH := w, h
	if s.affine && s.doubleSize {
		footprintW, footprintH = w*2, h*2
	}

	if p.line < s.y || p.line >= s.y+footprintH {
		// handle Y wraparound near 256 for sprites placed near the bottom
		if s.y+footprintH <= 256 || p.line >= s.y+footprintH-256 {
			return
		}
	}

	var aff affineParams
	if s.affine {
		aff = p.spriteAffine(s.affineIndex)
	}

	row := p.line - s.y
	if row < 0 {
		row += 256 // wrapped sprite: this line is past the 255->0 wrap
	}
	mosaicH, mosaicV := 1, 1
	if s.mosaic {
		mosaicH, mosaicV = int(p.objMosaicH()), int(p.objMosaicV())
		row -= row % mosaicV
	}

	centerX, centerY := footprintW/2, footprintH/2

	for sx := 0; sx < footprintW; sx++ {
		screenX := s.x + sx
		if screenX < 0 || screenX >= screenWidth {
			continue
		}
		qx := sx
		if s.mosaic {
			qx -= qx % mosaicH
		}

		var texX, texY int
		if s.affine {
			ix := qx - centerX
			iy := row - centerY
			tx := (int32(aff.pa)*int32(ix) + int32(aff.pb)*int32(iy)) >> 8
			ty := (int32(aff.pc)*int32(ix) + int32(aff.pd)*int32(iy)) >> 8
			texX = int(tx) + w/2
			texY = int(ty) + h/2
			if texX < 0 || texY < 0 || texX >= w || texY >= h {
				continue
			}
		} else {
			texX = qx
			texY = row
			if s.hflip {
				texX = w - 1 - texX
			}
			if s.vflip {
				texY = h - 1 - texY
			}
		}

		tileCol := texX / 8
		tileRow := texY / 8
		colInTile := texX % 8
		rowInTile := texY % 8

		widthTiles := w / 8
		var slot uint32
		if p.objCharMapping1D() {
			slot = uint32(tileRow*widthTiles + tileCol)
		} else {
			slot = uint32(tileRow*32 + tileCol)
		}
		if s.is8bpp {
			slot *= 2
		}

		byteOff := objCharBase + (s.tileIndex+slot)*32
		color, opaque := p.decodeObjTile(byteOff, s.is8bpp, rowInTile, colInTile, s.paletteBank)
		if !opaque {
			continue
		}

		if windowPass {
			p.objWindow[screenX] = true
			continue
		}
		p.objLine[screenX] = objPixel{
			color:           color,
			priority:        s.priority,
			valid:           true,
			semiTransparent: s.mode == 1,
		}
	}
}

func (p *PPU) decodeObjTile(byteOff uint32, is8bpp bool, row, col int, paletteBank uint32) (uint16, bool) {
	if is8bpp {
		idx := p.vram[byteOff+uint32(row*8+col)]
		if idx == 0 {
			return 0, false
		}
		return p.objPaletteColor(uint32(idx)), true
	}
	b := p.vram[byteOff+uint32(row*4+col/2)]
	var idx uint8
	if col%2 == 0 {
		idx = b & 0xF
	} else {
		idx = b >> 4
	}
	if idx == 0 {
		return 0, false
	}
	return p.objPaletteColor(paletteBank*16 + uint32(idx)), true
}
