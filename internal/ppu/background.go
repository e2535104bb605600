package ppu

// screenBlocksLayout maps a text BG's 2-bit screen-size field to the
// number of 32x32 screen blocks spanning the map's width and height.
var screenBlocksLayout = [4]struct{ blocksX, blocksY int }{
	{1, 1}, {2, 1}, {1, 2}, {2, 2},
}

// renderTextBG fills p.bgLine[n] for the text-mode background n
// (spec §4.4 "Text background").
func (p *PPU) renderTextBG(n int) {
	ctl := p.bgCNT(n)
	hofs, vofs := p.bgScroll(n)
	layout := screenBlocksLayout[ctl.screenSize]
	mapWidthTiles := layout.blocksX * 32
	mapHeightTiles := layout.blocksY * 32
	mapWidthPx := mapWidthTiles * 8
	mapHeightPx := mapHeightTiles * 8

	line := p.line
	if ctl.mosaic {
		line -= line % int(p.bgMosaicV())
	}
	texY := (line + int(vofs)) % mapHeightPx
	tileRow := texY / 8
	rowInTile := texY % 8

	for x := 0; x < screenWidth; x++ {
		px := x
		if ctl.mosaic {
			px -= px % int(p.bgMosaicH())
		}
		texX := (px + int(hofs)) % mapWidthPx
		tileCol := texX / 8
		colInTile := texX % 8

		entry := p.textMapEntry(ctl, tileRow, tileCol, layout.blocksX)
		tileIndex := entry & 0x3FF
		hflip := entry&(1<<10) != 0
		vflip := entry&(1<<11) != 0
		paletteBank := uint32((entry >> 12) & 0xF)

		col := colInTile
		row := rowInTile
		if hflip {
			col = 7 - col
		}
		if vflip {
			row = 7 - row
		}

		color, opaque := p.decodeTile(ctl.charBase, uint32(tileIndex), ctl.is8bpp, row, col, paletteBank)
		p.bgLine[n][x] = bgPixel{color: color, valid: opaque}
	}
}

func (p *PPU) textMapEntry(ctl bgControl, tileRow, tileCol, blocksX int) uint16 {
	blockX := tileCol / 32
	blockY := tileRow / 32
	localCol := tileCol % 32
	localRow := tileRow % 32
	blockNum := blockY*blocksX + blockX
	off := ctl.screenBase + uint32(blockNum)*0x800 + uint32(localRow*32+localCol)*2
	return p.vramU16(off)
}

// decodeTile reads one pixel out of a character (tile) and resolves it
// through the background palette. paletteBank, the map entry's 4-bit
// palette bank, is ignored in 8bpp mode (spec §4.4).
func (p *PPU) decodeTile(charBase, tileIndex uint32, is8bpp bool, row, col int, paletteBank uint32) (uint16, bool) {
	if is8bpp {
		off := charBase + tileIndex*64 + uint32(row*8+col)
		idx := p.vram[off]
		if idx == 0 {
			return 0, false
		}
		return p.paletteColor(uint32(idx)), true
	}
	off := charBase + tileIndex*32 + uint32(row*4+col/2)
	b := p.vram[off]
	var idx uint8
	if col%2 == 0 {
		idx = b & 0xF
	} else {
		idx = b >> 4
	}
	if idx == 0 {
		return 0, false
	}
	return p.paletteColor(paletteBank*16 + uint32(idx)), true
}

// renderAffineBG fills p.bgLine[n] for an affine-mode background
// (spec §4.4 "Affine background"). affineIndex selects BG2 (0) or
// BG3 (1)'s shared reference-point/parameter pair.
func (p *PPU) renderAffineBG(n, affineIndex int) {
	ctl := p.bgCNT(n)
	aff := p.bgAffine(affineIndex)
	mapSizeTiles := 16 << ctl.screenSize // 16,32,64,128
	mapSizePx := mapSizeTiles * 8

	refX := p.refX[affineIndex]
	refY := p.refY[affineIndex]

	for x := 0; x < screenWidth; x++ {
		texX := int32(refX+int32(aff.pa)*int32(x)) >> 8
		texY := int32(refY+int32(aff.pc)*int32(x)) >> 8

		if ctl.overflowWrap {
			texX = wrapMod(texX, int32(mapSizePx))
			texY = wrapMod(texY, int32(mapSizePx))
		} else if texX < 0 || texY < 0 || texX >= int32(mapSizePx) || texY >= int32(mapSizePx) {
			p.bgLine[n][x] = bgPixel{valid: false}
			continue
		}

		tileCol := int(texX) / 8
		tileRow := int(texY) / 8
		colInTile := int(texX) % 8
		rowInTile := int(texY) % 8

		mapOff := ctl.screenBase + uint32(tileRow*mapSizeTiles+tileCol)
		tileIndex := uint32(p.vram[mapOff])

		color, opaque := p.decodeTile(ctl.charBase, tileIndex, true, rowInTile, colInTile, 0)
		p.bgLine[n][x] = bgPixel{color: color, valid: opaque}
	}
}

func wrapMod(v, m int32) int32 {
	v %= m
	if v < 0 {
		v += m
	}
	return v
}

// renderBitmapBG3 fills p.bgLine[2] for BG mode 3: a direct 16-bit color
// framebuffer the size of the screen.
func (p *PPU) renderBitmapBG3() {
	row := uint32(p.line) * screenWidth * 2
	for x := 0; x < screenWidth; x++ {
		off := row + uint32(x)*2
		p.bgLine[2][x] = bgPixel{color: p.vramU16(off) & 0x7FFF, valid: true}
	}
}

// renderBitmapBG4 fills p.bgLine[2] for BG mode 4: paletted, page-flipped.
func (p *PPU) renderBitmapBG4() {
	var page uint32
	if p.frameSelect() == 1 {
		page = 0xA000
	}
	row := page + uint32(p.line)*screenWidth
	for x := 0; x < screenWidth; x++ {
		idx := p.vram[row+uint32(x)]
		if idx == 0 {
			p.bgLine[2][x] = bgPixel{valid: false}
			continue
		}
		p.bgLine[2][x] = bgPixel{color: p.paletteColor(uint32(idx)), valid: true}
	}
}

// renderBitmapBG5 fills p.bgLine[2] for BG mode 5: a smaller 160x128
// direct-color, page-flipped bitmap.
func (p *PPU) renderBitmapBG5() {
	const bg5Width, bg5Height = 160, 128
	if p.line >= bg5Height {
		for x := 0; x < screenWidth; x++ {
			p.bgLine[2][x] = bgPixel{valid: false}
		}
		return
	}
	var page uint32
	if p.frameSelect() == 1 {
		page = 0xA000
	}
	row := page + uint32(p.line)*bg5Width*2
	for x := 0; x < screenWidth; x++ {
		if x >= bg5Width {
			p.bgLine[2][x] = bgPixel{valid: false}
			continue
		}
		off := row + uint32(x)*2
		p.bgLine[2][x] = bgPixel{color: p.vramU16(off) & 0x7FFF, valid: true}
	}
}
