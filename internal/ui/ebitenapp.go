package ui

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
	"golang.org/x/image/draw"

	"github.com/kesslerhart/gbcore/internal/emu"
)

// App is the ebiten-driven host: it owns the window, input polling, the
// upscaled framebuffer blit, the silence-fed audio player, and an overlay
// menu for save states, ROM selection, and settings. It drives an
// *emu.Machine but implements no emulation itself.
type App struct {
	cfg  Config
	m    *emu.Machine
	keys KeyMap

	tex      *ebiten.Image // raw 160x144 source texture
	scaled   *ebiten.Image // window-scale upscaled via x/image/draw
	scaledRGBA *image.RGBA
	scaleAt  int // Scale the scaled buffers were built for

	paused  bool
	fast    bool
	turbo   int  // turbo speed multiplier (1=off)
	skipOn  bool // whether to skip rendering frames
	skipN   int  // render 1 of (skipN+1) frames
	skipCtr int  // counter for frame skip

	lastTime   time.Time
	frameAcc   float64 // accumulated fractional frames
	audioMuted bool

	audioCtx    *audio.Context
	audioPlayer *audio.Player
	audioSrc    *apuStream

	showMenu  bool
	menuIdx   int    // selection index for current menu
	menuMode  string // "main" | "slot" | "rom" | "keys" | "settings" | "debug"
	showStats bool

	currentSlot int // 0..3

	romList []string
	romSel  int
	romOff  int

	keysOff int

	editingROMDir bool
	romDirInput   string
	settingsOff   int

	toastMsg   string
	toastUntil time.Time

	curH        int // menu layout height (fixed at emu.ScreenHeight)
	clipboardOK bool
}

func NewApp(cfg Config, m *emu.Machine) *App {
	cfg = loadSettings(cfg)
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(emu.ScreenWidth*cfg.Scale, emu.ScreenHeight*cfg.Scale)

	a := &App{cfg: cfg, m: m, curH: emu.ScreenHeight}
	ds := loadDevkitSettings()
	a.keys = ds.Keys
	for path, pid := range ds.Palettes {
		a.cfg.PerROMCompatPalette[path] = pid
	}
	a.lastTime = time.Now()
	a.turbo = 1

	a.audioCtx = audio.NewContext(48000)
	a.audioSrc = &apuStream{mono: !cfg.AudioStereo}
	if p, err := a.audioCtx.NewPlayer(a.audioSrc); err == nil {
		a.audioPlayer = p
		a.applyPlayerBufferSize()
		a.audioPlayer.Play()
	}

	if err := clipboard.Init(); err != nil {
		// Headless/no-display environments commonly lack a clipboard; the
		// debug "copy" actions simply become no-ops in that case.
		a.clipboardOK = false
	} else {
		a.clipboardOK = true
	}

	if m != nil && m.ROMPath() == "" {
		a.showMenu = true
		a.menuMode = "rom"
		a.romList = a.findROMs()
	}
	if m != nil && m.ROMPath() != "" {
		a.applyWindowTitle()
	}
	a.currentSlot = 0
	a.romDirInput = cfg.ROMsDir
	return a
}

func (a *App) Run() error { return ebiten.RunGame(a) }

// SaveSettings persists current settings to disk.
func (a *App) SaveSettings() { a.saveSettings() }

func (a *App) applyWindowTitle() {
	title := a.cfg.Title
	if t := a.m.ROMTitle(); t != "" {
		title = a.cfg.Title + " - [" + t + "]"
	}
	ebiten.SetWindowTitle(title)
}

func (a *App) applyWindowSize() {
	ebiten.SetWindowSize(emu.ScreenWidth*a.cfg.Scale, emu.ScreenHeight*a.cfg.Scale)
}

func (a *App) Update() error {
	if !a.showMenu {
		a.m.SetButtons(a.keys.Poll())
	} else {
		a.m.SetButtons(emu.Buttons{})
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	a.fast = ebiten.IsKeyPressed(ebiten.KeyTab)
	if inpututil.IsKeyJustPressed(ebiten.KeyF6) {
		if a.turbo > 1 {
			a.turbo--
		}
		a.toast(fmt.Sprintf("Turbo: x%d", a.turbo))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF7) {
		if a.turbo < 10 {
			a.turbo++
		}
		a.toast(fmt.Sprintf("Turbo: x%d", a.turbo))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF4) {
		a.skipOn = !a.skipOn
		a.toast(fmt.Sprintf("Frame skip: %v", map[bool]string{true: "On", false: "Off"}[a.skipOn]))
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		_ = a.m.ResetPostBoot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyB) {
		_ = a.m.ResetWithBoot()
	}
	if !a.showMenu && a.paused && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		a.m.StepFrame()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		a.showMenu = !a.showMenu
		if a.showMenu {
			a.menuMode = "main"
			a.menuIdx = 0
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	for i, k := range []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4} {
		if inpututil.IsKeyJustPressed(k) {
			a.currentSlot = i
			a.toast(fmt.Sprintf("Slot set to %d", i+1))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		if err := a.saveSlot(a.currentSlot); err == nil {
			a.toast(fmt.Sprintf("Saved slot %d", a.currentSlot+1))
		} else {
			a.toast("Save failed: " + err.Error())
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF9) {
		if _, err := os.Stat(a.statePath(a.currentSlot)); err != nil {
			a.toast("Slot is empty")
		} else if err := a.loadSlot(a.currentSlot); err == nil {
			a.toast(fmt.Sprintf("Loaded slot %d", a.currentSlot+1))
		} else {
			a.toast("Load failed: " + err.Error())
		}
	}

	muted := a.paused || a.showMenu
	if muted != a.audioMuted {
		a.audioMuted = muted
		a.lastTime = time.Now()
		a.frameAcc = 0
	}

	if a.showMenu {
		switch a.menuMode {
		case "main":
			a.updateMainMenu()
		case "slot":
			a.updateSlotMenu()
		case "rom":
			a.updateRomMenu()
		case "keys":
			a.updateKeysMenu()
		case "settings":
			a.updateSettingsMenu()
		case "debug":
			a.updateDebugMenu()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		_ = a.saveScreenshot()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF8) {
		a.showStats = !a.showStats
	}

	if a.m != nil && a.m.IsCGBCompat() {
		if inpututil.IsKeyJustPressed(ebiten.KeyBracketLeft) {
			a.cyclePalette(-1)
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyBracketRight) {
			a.cyclePalette(1)
		}
	}

	// Emulation pacing: run at ~59.7275 FPS using a time accumulator,
	// decoupled from ebiten's own update rate.
	if !a.showMenu && !a.paused {
		now := time.Now()
		dt := now.Sub(a.lastTime).Seconds()
		if dt < 0 {
			dt = 0
		}
		a.lastTime = now
		gbFps := 4194304.0 / 70224.0 // ~59.7275
		speed := 1.0
		if a.fast {
			speed = float64(max(2, a.turbo))
		}
		a.frameAcc += dt * gbFps * speed
		steps := 0
		for a.frameAcc >= 1.0 && steps < 10 { // cap to avoid spiral of death
			doRender := true
			if a.skipOn {
				if a.skipCtr < a.skipN {
					doRender = false
					a.skipCtr++
				} else {
					a.skipCtr = 0
				}
			}
			if doRender {
				a.m.StepFrame()
			} else {
				a.m.StepFrameNoRender()
			}
			a.frameAcc -= 1.0
			steps++
		}
	}

	return nil
}

// cyclePalette advances the compat palette and persists the choice for the
// current ROM.
func (a *App) cyclePalette(dir int) {
	a.m.CycleCompatPalette(dir)
	pid := a.m.CurrentCompatPalette()
	a.toast(fmt.Sprintf("Compat palette: %d - %s", pid, a.m.CompatPaletteName(pid)))
	if a.m.ROMPath() != "" {
		a.cfg.PerROMCompatPalette[a.m.ROMPath()] = pid
		a.saveSettings()
	}
}

// ensureScaledBuffers (re)allocates the upscale target when the window
// scale changes.
func (a *App) ensureScaledBuffers() {
	if a.scaled != nil && a.scaleAt == a.cfg.Scale {
		return
	}
	w, h := emu.ScreenWidth*a.cfg.Scale, emu.ScreenHeight*a.cfg.Scale
	a.scaledRGBA = image.NewRGBA(image.Rect(0, 0, w, h))
	a.scaled = ebiten.NewImage(w, h)
	a.scaleAt = a.cfg.Scale
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(emu.ScreenWidth, emu.ScreenHeight)
	}
	fb := a.m.Framebuffer()
	a.tex.WritePixels(fb)

	// Upscale the raw framebuffer with x/image/draw rather than ebiten's
	// built-in GPU scaling, so integer window-scale blits go through the
	// same software scaler a non-GPU host backend would use.
	a.ensureScaledBuffers()
	src := &image.RGBA{Pix: fb, Stride: emu.ScreenWidth * 4, Rect: image.Rect(0, 0, emu.ScreenWidth, emu.ScreenHeight)}
	draw.NearestNeighbor.Scale(a.scaledRGBA, a.scaledRGBA.Bounds(), src, src.Bounds(), draw.Src, nil)
	a.scaled.WritePixels(a.scaledRGBA.Pix)
	screen.DrawImage(a.scaled, nil)

	if a.showStats {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Turbo: x%d  Skip: %v", a.turbo, a.skipOn), 4, 4)
	}

	if a.toastMsg != "" && time.Now().Before(a.toastUntil) {
		msg := a.truncateText(a.toastMsg, a.maxCharsForText(6))
		ebitenutil.DebugPrintAt(screen, msg, 6, 4)
	}

	if a.showMenu {
		overlay := ebiten.NewImage(emu.ScreenWidth, emu.ScreenHeight)
		overlay.Fill(color.RGBA{0, 0, 0, 140})
		screen.DrawImage(overlay, nil)
		switch a.menuMode {
		case "main":
			a.drawMainMenu(screen)
		case "slot":
			a.drawSlotMenu(screen)
		case "rom":
			a.drawRomMenu(screen)
		case "keys":
			a.drawKeysMenu(screen)
		case "settings":
			a.drawSettingsMenu(screen)
		case "debug":
			a.drawDebugMenu(screen)
		}
	}
}

// toast displays a short message at the top-left.
func (a *App) toast(msg string) {
	a.toastMsg = msg
	a.toastUntil = time.Now().Add(2 * time.Second)
}

// findROMs returns a sorted, de-duplicated list of ROM file paths from the
// configured ROMs directory (tried both exe-relative and CWD-relative).
func (a *App) findROMs() []string {
	var files []string
	addFrom := func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ln := strings.ToLower(e.Name())
			if strings.HasSuffix(ln, ".gb") || strings.HasSuffix(ln, ".gbc") {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	exe, _ := os.Executable()
	exedir := filepath.Dir(exe)
	roms := a.cfg.ROMsDir
	if filepath.IsAbs(roms) {
		addFrom(roms)
	} else {
		addFrom(filepath.Join(exedir, roms))
		addFrom(roms)
	}
	sort.Strings(files)
	uniq := files[:0]
	seen := map[string]bool{}
	for _, p := range files {
		if seen[p] {
			continue
		}
		seen[p] = true
		uniq = append(uniq, p)
	}
	return uniq
}

// --- JSON settings persistence (window/audio/per-ROM palette) ---

func settingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		d := filepath.Join(dir, "gbemu")
		_ = os.MkdirAll(d, 0o755)
		return filepath.Join(d, "settings.json")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "gbemu_settings.json")
}

func loadSettings(override Config) Config {
	var cfg Config
	if b, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(b, &cfg)
	}
	if override.Title != "" {
		cfg.Title = override.Title
	}
	if override.Scale != 0 {
		cfg.Scale = override.Scale
	}
	if override.AudioBufferMs != 0 {
		cfg.AudioBufferMs = override.AudioBufferMs
	}
	if override.ROMsDir != "" {
		cfg.ROMsDir = override.ROMsDir
	}
	cfg.AudioStereo = override.AudioStereo || cfg.AudioStereo
	cfg.AudioAdaptive = override.AudioAdaptive || cfg.AudioAdaptive
	cfg.AudioLowLatency = override.AudioLowLatency || cfg.AudioLowLatency
	if cfg.Title == "" && override.Title == "" {
		cfg.Title = "gbemu"
	}
	return cfg
}

func (a *App) saveSettings() {
	if a == nil {
		return
	}
	b, _ := json.MarshalIndent(a.cfg, "", "  ")
	_ = os.WriteFile(settingsPath(), b, 0o644)
	_ = saveDevkitSettings(devkitSettings{Keys: a.keys, Palettes: a.cfg.PerROMCompatPalette})
}

// --- Save states (per-ROM, per-slot) ---

func (a *App) statePath(slot int) string {
	base := "unknown"
	if a.m != nil && a.m.ROMPath() != "" {
		base = a.m.ROMPath()
	}
	dir := filepath.Dir(base)
	name := filepath.Base(base)
	return filepath.Join(dir, fmt.Sprintf("%s.slot%d.savestate", name, slot))
}

func (a *App) saveSlot(slot int) error { return a.m.SaveStateToFile(a.statePath(slot)) }
func (a *App) loadSlot(slot int) error { return a.m.LoadStateFromFile(a.statePath(slot)) }

func (a *App) Layout(outW, outH int) (int, int) { return emu.ScreenWidth, emu.ScreenHeight }

// maxCharsForText estimates how many characters fit on a line starting at
// left margin x, at ~6px per character for the debug font.
func (a *App) maxCharsForText(left int) int {
	w := emu.ScreenWidth - left - 4
	if w < 6 {
		return 1
	}
	return w / 6
}

func (a *App) truncateText(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// wrapText wraps a string into lines no longer than max characters,
// breaking at spaces when possible.
func (a *App) wrapText(s string, max int) []string {
	if max <= 0 {
		return []string{""}
	}
	var lines []string
	for len(s) > 0 {
		if len(s) <= max {
			lines = append(lines, s)
			break
		}
		cut := -1
		for i := max; i >= 0 && i < len(s); i-- {
			if s[i] == ' ' {
				cut = i
				break
			}
			if i == 0 {
				break
			}
		}
		if cut <= 0 {
			lines = append(lines, s[:max])
			s = s[max:]
			continue
		}
		lines = append(lines, strings.TrimRight(s[:cut], " "))
		s = strings.TrimLeft(s[cut+1:], " ")
	}
	return lines
}

func (a *App) saveScreenshot() error {
	fb := a.m.Framebuffer()
	img := &image.RGBA{
		Pix:    make([]byte, len(fb)),
		Stride: 4 * emu.ScreenWidth,
		Rect:   image.Rect(0, 0, emu.ScreenWidth, emu.ScreenHeight),
	}
	copy(img.Pix, fb)
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("screenshot_%s.png", ts)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// saveTileSheet writes the current VRAM pattern memory to a PNG, the text
// host's equivalent of original_source/debugger/src/main.rs's VRAM tile
// viewer texture.
func (a *App) saveTileSheet() error {
	pix := a.m.VRAMTileSheet()
	if pix == nil {
		return fmt.Errorf("no ROM loaded")
	}
	w, h := a.m.VRAMTileSheetSize()
	img := &image.RGBA{
		Pix:    make([]byte, len(pix)),
		Stride: 4 * w,
		Rect:   image.Rect(0, 0, w, h),
	}
	copy(img.Pix, pix)
	ts := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("tilesheet_%s.png", ts)
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
