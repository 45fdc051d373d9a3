package ppu

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// LineRegs captures the register values in effect when a scanline's pixel
// data was latched (at the mode2->mode3 transition), so that mid-line
// register writes don't retroactively change an already-composed line.
type LineRegs struct {
	SCX, SCY             byte
	WX, WY               byte
	LCDC                 byte
	BGP, OBP0, OBP1      byte
	WinLine              byte
	WinVisible           bool
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, sprite/BG/window composition,
// and the 160x144 RGBA framebuffer. It exposes CPU-facing Read/Write for
// VRAM/OAM and PPU IO regs; CPU-visibility of VRAM/OAM is gated by mode.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	req InterruptRequester

	lineRegs      [154]LineRegs
	winLineCount  int
	scannedLine   int // ly for which the OAM cache is current; -1 if stale
	renderedLine  int // ly for which the framebuffer row is current; -1 if stale
	spriteCache   []Sprite

	fb [160 * 144 * 4]byte

	palette int // active compat-palette index, see palette.go
}

func New(req InterruptRequester) *PPU {
	return &PPU{req: req, scannedLine: -1, renderedLine: -1}
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
			p.resetFrameTracking()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.dot = 0
			p.resetFrameTracking()
			p.setMode(2)
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		// Writes to LY are ignored: LY is a read-only hardware counter.
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

func (p *PPU) resetFrameTracking() {
	p.winLineCount = 0
	p.scannedLine = -1
	p.renderedLine = -1
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if mode == 2 && p.scannedLine != int(p.ly) {
			p.scanOAM(p.ly)
		}
		if mode == 3 && p.renderedLine != int(p.ly) {
			p.captureAndRender(p.ly)
		}

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				if p.req != nil {
					p.req(0)
				}
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCount = 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
				if p.scannedLine != int(p.ly) {
					p.scanOAM(p.ly)
				}
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// captureAndRender latches the registers in effect for scanline ly, resolves
// the window's visibility/line counter for this line, and composes the
// final BG+window+sprite pixel row into the framebuffer.
func (p *PPU) captureAndRender(ly byte) {
	lr := LineRegs{
		SCX: p.scx, SCY: p.scy,
		WX: p.wx, WY: p.wy,
		LCDC: p.lcdc,
		BGP:  p.bgp, OBP0: p.obp0, OBP1: p.obp1,
	}
	windowEnabled := lr.LCDC&0x20 != 0
	bgEnabled := lr.LCDC&0x01 != 0
	if windowEnabled && bgEnabled && int(ly) >= int(lr.WY) && (int(lr.WX)-7) < 160 {
		lr.WinVisible = true
		lr.WinLine = byte(p.winLineCount)
		p.winLineCount++
	}
	p.lineRegs[ly] = lr
	p.renderedLine = int(ly)
	p.renderScanline(ly, lr)
}

// LineRegs returns the registers captured for scanline ly at the moment its
// pixels were latched. Used by tests and by callers reasoning about
// mid-frame register changes.
func (p *PPU) LineRegs(ly int) LineRegs {
	if ly < 0 || ly >= len(p.lineRegs) {
		return LineRegs{}
	}
	return p.lineRegs[ly]
}

// Framebuffer returns the current 160x144 RGBA8888 pixel buffer. The slice
// aliases PPU-internal storage and is only valid for reading.
func (p *PPU) Framebuffer() []byte { return p.fb[:] }

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
