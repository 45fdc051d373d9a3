package ppu

import (
	"bytes"
	"encoding/gob"
)

type ppuState struct {
	VRAM                          [0x2000]byte
	OAM                           [0xA0]byte
	LCDC, STAT, SCY, SCX, LY, LYC byte
	BGP, OBP0, OBP1, WY, WX       byte
	Dot                           int
	WinLineCount                  int
	Palette                       int
}

// SaveState serializes VRAM, OAM, the registers, the dot and window-line
// counters and the compat palette index via gob. The framebuffer and the
// per-line register and sprite caches are not saved.
func (p *PPU) SaveState() []byte {
	s := ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
		Dot: p.dot, WinLineCount: p.winLineCount, Palette: p.palette,
	}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

// LoadState restores state written by SaveState. Invalid data is ignored.
func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.LCDC, s.STAT, s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.BGP, s.OBP0, s.OBP1, s.WY, s.WX
	p.dot, p.winLineCount, p.palette = s.Dot, s.WinLineCount, s.Palette
	p.resetFrameTracking()
}
