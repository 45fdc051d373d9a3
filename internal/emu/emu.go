// Package emu assembles cartridge, bus, and CPU into a single steppable
// machine, and adds the host-facing conveniences a DMG frontend needs:
// ROM/boot-ROM loading, save states, battery persistence, and compat
// palette selection. It owns no rendering or input backend; internal/ui
// drives it.
package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/kesslerhart/gbcore/internal/bus"
	"github.com/kesslerhart/gbcore/internal/cart"
	"github.com/kesslerhart/gbcore/internal/cpu"
	"github.com/kesslerhart/gbcore/internal/ppu"
)

// ScreenWidth and ScreenHeight are the DMG LCD's native resolution.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// cyclesPerFrame is the fixed T-cycle budget of one 59.7 Hz DMG frame
// (154 scanlines * 456 cycles).
const cyclesPerFrame = 154 * 456

// Buttons is the joypad state for a single frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Machine wires a cartridge to a Bus and CPU and steps them a frame at a
// time. It keeps just enough metadata (ROM path, title, boot ROM, compat
// palette) to support reset/reload without the caller re-threading state.
type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	romPath string
	romData []byte
	boot    []byte

	header *cart.Header

	compatPalette int
	isCGBCompat   bool

	buttons Buttons

	breakpoints map[uint16]bool
}

// New constructs an unloaded Machine. Call LoadCartridge or LoadROMFromFile
// before stepping.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg.Defaults()}
}

// LoadROMFromFile reads a ROM from disk and loads it.
func (m *Machine) LoadROMFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveIO, err)
	}
	if err := m.LoadCartridge(data, nil); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// LoadCartridge builds a fresh Bus/CPU pair around rom. boot, if at least
// 256 bytes, is mapped at 0x0000 until the cartridge disables it via FF50;
// otherwise the CPU starts at the documented DMG post-boot state.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	b, err := bus.New(rom)
	if err != nil {
		return err
	}
	m.bus = b
	m.cpu = cpu.New(b)
	m.header = h
	m.romData = rom
	m.romPath = ""
	m.boot = nil

	if len(boot) >= 0x100 {
		m.boot = boot
		b.SetBootROM(boot)
		m.cpu.SetPC(0x0000)
	} else {
		m.cpu.ResetNoBoot()
	}

	id, ok := autoCompatPaletteFromHeader(h)
	m.isCGBCompat = ok
	if ok {
		m.SetCompatPalette(id)
	} else {
		m.SetCompatPalette(0)
	}
	m.buttons = Buttons{}
	return nil
}

// ResetPostBoot reloads the current ROM and starts from the DMG post-boot
// register state, skipping any boot ROM.
func (m *Machine) ResetPostBoot() error {
	if m.romData == nil {
		return fmt.Errorf("emu: no ROM loaded")
	}
	path := m.romPath
	if err := m.LoadCartridge(m.romData, nil); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// ResetWithBoot reloads the current ROM, replaying the last boot ROM that
// was loaded with it (if any); with none, it behaves like ResetPostBoot.
func (m *Machine) ResetWithBoot() error {
	if m.romData == nil {
		return fmt.Errorf("emu: no ROM loaded")
	}
	path := m.romPath
	if err := m.LoadCartridge(m.romData, m.boot); err != nil {
		return err
	}
	m.romPath = path
	return nil
}

// SetSerialWriter routes serial-port output (e.g. test ROM pass/fail
// markers) to w.
func (m *Machine) SetSerialWriter(w io.Writer) {
	if m.bus != nil {
		m.bus.SetSerialWriter(w)
	}
}

// SetButtons records joypad state to apply on the next step.
func (m *Machine) SetButtons(b Buttons) { m.buttons = b }

// stepFrame runs the CPU/bus pair for one frame's worth of cycles. Each
// cpu.Step ticks the bus by the cycles it consumed.
func (m *Machine) stepFrame() {
	if m.bus == nil || m.cpu == nil {
		return
	}
	m.bus.SetJoypadState(m.buttons.mask())
	ran := 0
	for ran < cyclesPerFrame {
		cyc := m.cpu.Step()
		if cyc <= 0 {
			cyc = 1
		}
		ran += cyc
	}
}

// StepFrame advances one frame. Identical to StepFrameNoRender; rendering
// happens continuously inside the PPU as scanlines complete, not as a
// separate pass, so there is nothing extra to skip.
func (m *Machine) StepFrame() { m.stepFrame() }

// StepFrameNoRender advances one frame without a host-visible present;
// provided for headless callers (tests) that don't care about framebuffer
// damage tracking.
func (m *Machine) StepFrameNoRender() { m.stepFrame() }

// Framebuffer returns the current 160x144 RGBA8888 pixel buffer.
func (m *Machine) Framebuffer() []byte {
	if m.bus == nil {
		return make([]byte, ScreenWidth*ScreenHeight*4)
	}
	return m.bus.PPU().Framebuffer()
}

// ROMPath returns the path LoadROMFromFile last loaded, or "" if the ROM
// was loaded via LoadCartridge or not at all.
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header's title, or "" if none is loaded.
func (m *Machine) ROMTitle() string {
	if m.header == nil {
		return ""
	}
	return m.header.Title
}

// IsCGBCompat reports whether the loaded title matched the compat-palette
// heuristic table (see compat_tables.go) and so has a meaningful palette to
// cycle. It does not imply any CGB hardware feature is emulated.
func (m *Machine) IsCGBCompat() bool { return m.isCGBCompat }

// CurrentCompatPalette returns the active compat palette index.
func (m *Machine) CurrentCompatPalette() int { return m.compatPalette }

// SetCompatPalette selects a compat palette by index (clamped).
func (m *Machine) SetCompatPalette(id int) {
	m.compatPalette = id
	if m.bus != nil {
		m.bus.PPU().SetPalette(id)
		m.compatPalette = m.bus.PPU().Palette()
	}
}

// CycleCompatPalette advances (dir>=0) or retreats (dir<0) the active
// compat palette by one, wrapping around.
func (m *Machine) CycleCompatPalette(dir int) {
	n := ppu.PaletteCount()
	if n == 0 {
		return
	}
	next := m.compatPalette
	if dir < 0 {
		next = (next - 1 + n) % n
	} else {
		next = (next + 1) % n
	}
	m.SetCompatPalette(next)
}

// CompatPaletteName returns the human-readable name of the given palette id.
func (m *Machine) CompatPaletteName(id int) string { return ppu.PaletteName(id) }

// LoadBattery restores external cartridge RAM (and, for MBC3, RTC state)
// from a previously saved .sav blob.
func (m *Machine) LoadBattery(data []byte) error {
	if m.bus == nil || m.bus.Cart() == nil {
		return fmt.Errorf("emu: no cartridge loaded")
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil // cartridge has no persisted RAM; nothing to do
	}
	bb.LoadRAM(data)
	return nil
}

// SaveBattery returns a serialized blob of external cartridge RAM (and RTC
// state where applicable) suitable for writing to a .sav file.
func (m *Machine) SaveBattery() ([]byte, error) {
	if m.bus == nil || m.bus.Cart() == nil {
		return nil, fmt.Errorf("emu: no cartridge loaded")
	}
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, nil
	}
	return bb.SaveRAM(), nil
}

// SaveStateToFile writes a save state of the bus, PPU, APU and cartridge to
// path. CPU registers are not part of it.
func (m *Machine) SaveStateToFile(path string) error {
	if m.bus == nil {
		return fmt.Errorf("emu: no ROM loaded")
	}
	data := m.bus.SaveState()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrSaveIO, err)
	}
	return nil
}

// LoadStateFromFile restores a save state previously written by
// SaveStateToFile.
func (m *Machine) LoadStateFromFile(path string) error {
	if m.bus == nil {
		return fmt.Errorf("emu: no ROM loaded")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveIO, err)
	}
	m.bus.LoadState(data)
	return nil
}

// DebugSummary renders the CPU register file and ROM identity as a short
// text block, for the devkit debug menu's clipboard-copy actions.
func (m *Machine) DebugSummary() string {
	if m.cpu == nil {
		return "no ROM loaded"
	}
	c := m.cpu
	return fmt.Sprintf(
		"ROM: %s\nPC=%04X SP=%04X\nA=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X\nIME=%t",
		m.ROMTitle(), c.PC, c.SP, c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.IME)
}

// APUBufferedStereo reports how many buffered stereo sample pairs are
// queued for playback. The APU carries no synthesis (register-file stub
// only, see internal/apu), so there is never anything buffered.
func (m *Machine) APUBufferedStereo() int { return 0 }

// APUCapBufferedStereo is a no-op latency cap hook, kept so callers can
// drive it unconditionally regardless of whether synthesis is present.
func (m *Machine) APUCapBufferedStereo(max int) {}

// APUClearAudioLatency is a no-op, kept for the same reason as
// APUCapBufferedStereo.
func (m *Machine) APUClearAudioLatency() {}

// APUPullStereo always returns nil: there is no synthesized PCM to pull.
func (m *Machine) APUPullStereo(max int) []int16 { return nil }
