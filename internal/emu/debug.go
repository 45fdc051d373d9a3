package emu

// Breakpoint/single-step/VRAM-inspection support, grounded on
// original_source/debugger/src/main.rs's breakpoint list and
// original_source/emulator/src/gameboy/gameboy.rs's GameBoy::tick_bp, which
// checks the post-step PC against the breakpoint set after every
// GameBoy::step call. There is no in-repo GUI debugger (an imgui/glium
// window has no equivalent in an ebiten-hosted emulator); the capability is
// instead exposed as a small API that internal/ui's debug menu partially
// surfaces (tile sheet, OAM dump). cmd/cpurunner's -break flag does its own
// post-step PC check over bus/cpu and does not call this API.

// SetBreakpoints replaces the active breakpoint set with addrs.
func (m *Machine) SetBreakpoints(addrs []uint16) {
	m.breakpoints = make(map[uint16]bool, len(addrs))
	for _, a := range addrs {
		m.breakpoints[a] = true
	}
}

// ClearBreakpoints removes every breakpoint.
func (m *Machine) ClearBreakpoints() { m.breakpoints = nil }

// Breakpoints returns the currently armed breakpoint addresses, in no
// particular order.
func (m *Machine) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(m.breakpoints))
	for a := range m.breakpoints {
		out = append(out, a)
	}
	return out
}

// PC returns the CPU's current program counter, or 0 if nothing is loaded.
func (m *Machine) PC() uint16 {
	if m.cpu == nil {
		return 0
	}
	return m.cpu.PC
}

// StepInstruction executes exactly one CPU instruction (or serviced
// interrupt) and ticks every other peripheral by the same number of
// T-cycles, mirroring GameBoy::step. It returns the cycle count consumed,
// or 0 if nothing is loaded.
func (m *Machine) StepInstruction() int {
	if m.bus == nil || m.cpu == nil {
		return 0
	}
	m.bus.SetJoypadState(m.buttons.mask())
	cyc := m.cpu.Step()
	if cyc <= 0 {
		cyc = 1
	}
	return cyc
}

// RunUntilBreakpoint repeatedly calls StepInstruction, checking the PC
// against the armed breakpoint set after each step (the same order
// tick_bp checks it in: after the step that landed on it, not before), up
// to maxInstructions steps. It reports whether a breakpoint was hit; false
// means it ran out of budget first.
func (m *Machine) RunUntilBreakpoint(maxInstructions int) bool {
	if m.bus == nil || m.cpu == nil {
		return false
	}
	for i := 0; i < maxInstructions; i++ {
		m.StepInstruction()
		if m.breakpoints[m.cpu.PC] {
			return true
		}
	}
	return false
}

// VRAMTileSheet renders the current contents of VRAM pattern memory as an
// RGBA8888 tile sheet image (see ppu.PPU.TileSheetRGBA), or nil if nothing
// is loaded.
func (m *Machine) VRAMTileSheet() []byte {
	if m.bus == nil {
		return nil
	}
	return m.bus.PPU().TileSheetRGBA()
}

// VRAMTileSheetSize reports the pixel dimensions VRAMTileSheet produces.
func (m *Machine) VRAMTileSheetSize() (width, height int) {
	if m.bus == nil {
		return 0, 0
	}
	return m.bus.PPU().TileSheetSize()
}

// OAMSummary returns a text dump of the 40 OAM entries and the PPU
// registers that affect sprite rendering, for the debug menu's
// clipboard-copy action.
func (m *Machine) OAMSummary() string {
	if m.bus == nil {
		return "no ROM loaded"
	}
	return m.bus.PPU().OAMSummary()
}
