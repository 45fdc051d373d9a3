package ppu

// Read implements VRAMReader for the PPU's own internal scanline
// composition. Unlike CPURead it never returns 0xFF for mode-gating: the
// renderer runs as part of the PPU itself, not a CPU access.
func (p *PPU) Read(addr uint16) byte {
	if addr >= 0x8000 && addr <= 0x9FFF {
		return p.vram[addr-0x8000]
	}
	return 0xFF
}

// scanOAM builds the sprite cache for scanline ly: up to 10 sprites,
// sorted by X ascending then OAM index ascending (§4.3).
func (p *PPU) scanOAM(ly byte) {
	p.scannedLine = int(ly)
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	p.spriteCache = p.spriteCache[:0]
	for i := 0; i < 40; i++ {
		base := i * 4
		oamY := int(p.oam[base]) - 16
		if int(ly) < oamY || int(ly) >= oamY+height {
			continue
		}
		oamX := int(p.oam[base+1]) - 8
		p.spriteCache = append(p.spriteCache, Sprite{
			X: oamX, Y: oamY,
			Tile: p.oam[base+2], Attr: p.oam[base+3],
			OAMIndex: i,
		})
		if len(p.spriteCache) == 10 {
			break
		}
	}
	sortSprites(p.spriteCache)
}

func sortSprites(s []Sprite) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0; j-- {
			a, b := s[j-1], s[j]
			if a.X < b.X || (a.X == b.X && a.OAMIndex <= b.OAMIndex) {
				break
			}
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// renderScanline composes BG, window, and sprite layers for ly using the
// registers latched in lr, and writes the resulting RGBA row into fb.
func (p *PPU) renderScanline(ly byte, lr LineRegs) {
	var bgci [160]byte
	sizeFlag := lr.LCDC&0x04 != 0

	if lr.LCDC&0x01 != 0 {
		mapBase := uint16(0x9800)
		if lr.LCDC&0x08 != 0 {
			mapBase = 0x9C00
		}
		tileData8000 := lr.LCDC&0x10 != 0
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, tileData8000, lr.SCX, lr.SCY, ly)

		if lr.WinVisible {
			winMapBase := uint16(0x9800)
			if lr.LCDC&0x40 != 0 {
				winMapBase = 0x9C00
			}
			wxStart := int(lr.WX) - 7
			winci := RenderWindowScanlineUsingFetcher(p, winMapBase, tileData8000, wxStart, lr.WinLine)
			for x := wxStart; x < 160; x++ {
				if x >= 0 {
					bgci[x] = winci[x]
				}
			}
		}
	}

	var spriteCI, spritePal [160]byte
	var spriteDrawn [160]bool
	if lr.LCDC&0x02 != 0 {
		spriteCI, spritePal, spriteDrawn = composeSpriteLine(p, p.spriteCache, ly, bgci, sizeFlag)
	}

	rowOff := int(ly) * 160 * 4
	for x := 0; x < 160; x++ {
		var rgba [4]byte
		if spriteDrawn[x] {
			obp := lr.OBP0
			if spritePal[x] == 1 {
				obp = lr.OBP1
			}
			rgba = shadeRGBA(decodeShade(obp, spriteCI[x]), p.palette)
		} else {
			rgba = shadeRGBA(decodeShade(lr.BGP, bgci[x]), p.palette)
		}
		off := rowOff + x*4
		p.fb[off+0] = rgba[0]
		p.fb[off+1] = rgba[1]
		p.fb[off+2] = rgba[2]
		p.fb[off+3] = rgba[3]
	}
}
