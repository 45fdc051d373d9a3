package ppu

import "fmt"

// TileSheetCols/Rows lay out the 384 tiles of pattern data (0x8000-0x97FF)
// as a grid, the same inspection view original_source/debugger/src/main.rs
// renders into its own "debugger screen" texture (there as 16x32 tiles
// covering all of VRAM; here restricted to the 384 tiles that are actual
// 8x8 patterns rather than tile-map bytes).
const (
	TileSheetCols   = 16
	TileSheetRows   = 384 / TileSheetCols
	tileSheetWidth  = TileSheetCols * 8
	tileSheetHeight = TileSheetRows * 8
)

// TileSheetRGBA renders every tile in pattern memory (0x8000-0x97FF, 384
// tiles of 16 bytes each) into a TileSheetCols*8 x TileSheetRows*8 RGBA8888
// image, mapping every color index (0 included, never transparent) through
// BGP and the active compat palette. It never touches the mode-gated
// CPU path (see Read), so it can be sampled at any time regardless of the
// current scan mode.
func (p *PPU) TileSheetRGBA() []byte {
	img := make([]byte, tileSheetWidth*tileSheetHeight*4)
	for tile := 0; tile < 384; tile++ {
		col := tile % TileSheetCols
		row := tile / TileSheetCols
		base := uint16(tile) * 16
		for y := 0; y < 8; y++ {
			lo := p.Read(0x8000 + base + uint16(y)*2)
			hi := p.Read(0x8000 + base + uint16(y)*2 + 1)
			for x := 0; x < 8; x++ {
				bit := 7 - byte(x)
				ci := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
				shade := decodeShade(p.bgp, ci)
				rgba := shadeRGBA(shade, p.palette)
				px := (row*8+y)*tileSheetWidth + col*8 + x
				copy(img[px*4:px*4+4], rgba[:])
			}
		}
	}
	return img
}

// TileSheetSize reports the pixel dimensions TileSheetRGBA produces.
func (p *PPU) TileSheetSize() (width, height int) { return tileSheetWidth, tileSheetHeight }

// OAMSummary renders all 40 OAM entries as a text table (Y/X/tile/attr plus
// the resolved screen-space position scanOAM would use), the text
// equivalent of original_source/debugger/src/main.rs's per-sprite thumbnail
// strip and ppu_debugger panel.
func (p *PPU) OAMSummary() string {
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	s := fmt.Sprintf("LCDC=%02X STAT=%02X LY=%02X LYC=%02X SCX=%02X SCY=%02X sprite_h=%d\n",
		p.lcdc, p.stat, p.ly, p.lyc, p.scx, p.scy, height)
	for i := 0; i < 40; i++ {
		base := i * 4
		rawY, rawX := p.oam[base], p.oam[base+1]
		tile, attr := p.oam[base+2], p.oam[base+3]
		s += fmt.Sprintf("#%02d Y=%03d X=%03d (scr Y=%4d X=%4d) tile=%02X attr=%02X\n",
			i, rawY, rawX, int(rawY)-16, int(rawX)-8, tile, attr)
	}
	return s
}
