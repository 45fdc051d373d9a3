package ppu

// decodeShade maps a 2-bit BG/OBJ color index through a palette register
// (BGP/OBP0/OBP1) to the 2-bit shade it selects.
func decodeShade(reg byte, ci byte) byte {
	return (reg >> (ci * 2)) & 0x03
}

// compatPalettes holds alternate 4-shade RGBA mappings used in place of the
// stock DMG green when the host selects a compatibility palette (the
// auto-detected or user-picked palette described in internal/emu's compat
// table). Index 0 is the classic DMG palette; others emulate a handful of
// the boot-palette choices the Game Boy Color offers DMG cartridges.
var compatPalettes = [][4][4]byte{
	{ // 0: Green (classic DMG)
		{0x9B, 0xBC, 0x0F, 0xFF},
		{0x8B, 0xAC, 0x0F, 0xFF},
		{0x30, 0x62, 0x30, 0xFF},
		{0x0F, 0x38, 0x0F, 0xFF},
	},
	{ // 1: Sepia
		{0xF7, 0xE7, 0xC6, 0xFF},
		{0xD8, 0xB0, 0x7B, 0xFF},
		{0x8C, 0x5A, 0x3A, 0xFF},
		{0x3B, 0x24, 0x17, 0xFF},
	},
	{ // 2: Blue
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0x63, 0xA5, 0xFF, 0xFF},
		{0x00, 0x00, 0xFF, 0xFF},
		{0x00, 0x00, 0x00, 0xFF},
	},
	{ // 3: Red
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0xFF, 0x84, 0x84, 0xFF},
		{0x94, 0x3A, 0x3A, 0xFF},
		{0x00, 0x00, 0x00, 0xFF},
	},
	{ // 4: Pastel
		{0xF8, 0xF8, 0xE0, 0xFF},
		{0xC8, 0xE0, 0xC0, 0xFF},
		{0xA0, 0xA8, 0xD0, 0xFF},
		{0x70, 0x70, 0x90, 0xFF},
	},
	{ // 5: Grayscale
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0xAA, 0xAA, 0xAA, 0xFF},
		{0x55, 0x55, 0x55, 0xFF},
		{0x00, 0x00, 0x00, 0xFF},
	},
}

var compatPaletteNames = []string{"Green", "Sepia", "Blue", "Red", "Pastel", "Grayscale"}

// PaletteCount reports how many compat palettes are available.
func PaletteCount() int { return len(compatPalettes) }

// PaletteName returns the human-readable name of a compat palette index.
func PaletteName(id int) string {
	if id < 0 || id >= len(compatPaletteNames) {
		return "Green"
	}
	return compatPaletteNames[id]
}

// shadeRGBA converts a 2-bit shade to RGBA8888 bytes using the given
// palette index, clamped to a valid range.
func shadeRGBA(shade byte, paletteID int) [4]byte {
	if paletteID < 0 || paletteID >= len(compatPalettes) {
		paletteID = 0
	}
	return compatPalettes[paletteID][shade&0x03]
}

// SetPalette selects the active compat palette by index (clamped).
func (p *PPU) SetPalette(id int) {
	if id < 0 {
		id = 0
	}
	if id >= len(compatPalettes) {
		id = len(compatPalettes) - 1
	}
	p.palette = id
}

// Palette returns the active compat palette index.
func (p *PPU) Palette() int { return p.palette }
