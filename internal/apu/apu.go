// Package apu implements the DMG sound unit's register file. Sample
// synthesis (mixing channels 1-4 into PCM) is an explicit non-goal; what's
// modeled here is read/write register semantics only, matching real
// hardware's bit layout and write-only/read-only masking so games that
// poll NRxx status bits (length/DAC-off readback, NR52 power) behave
// correctly even though no audio is produced.
package apu

import (
	"bytes"
	"encoding/gob"

	"github.com/ebitengine/oto/v3"
)

// APU holds the NRxx register file plus the oto output plumbing. The oto
// player is fed silence: it exists so the audio output path is genuinely
// exercised end to end, ready for channel synthesis to be dropped in later
// without touching the bus-facing register interface.
type APU struct {
	enabled bool

	nr50, nr51, nr52 byte

	ch1 squareRegs
	ch2 squareRegs
	ch3 waveRegs
	ch4 noiseRegs

	player *oto.Player
	ctx    *oto.Context
}

type squareRegs struct {
	sweep  byte // NR10 (CH1 only; zero on CH2)
	duty   byte
	length byte // raw write value (6 bits); readback exposes only the duty bits
	nrX2   byte // envelope byte as written (vol/dir/period)
	freqLo byte
	nrX4   byte // length-enable + freq hi, as written
	dacOn  bool
}

type waveRegs struct {
	dacOn   bool
	length  byte // raw write value (8 bits)
	volCode byte
	freqLo  byte
	nr34    byte
	ram     [16]byte
}

type noiseRegs struct {
	length byte // raw write value (6 bits)
	nr42   byte // envelope byte as written
	nr43   byte // polynomial counter byte
	nr44   byte
	dacOn  bool
}

// New constructs an APU. audioCtx may be nil (e.g. headless/cpurunner use);
// when non-nil it is used to open a silent output stream.
func New(audioCtx *oto.Context) *APU {
	a := &APU{enabled: true}
	a.nr50 = 0x77
	a.nr51 = 0xF3
	a.nr52 = 0xF1
	if audioCtx != nil {
		a.ctx = audioCtx
		a.player = audioCtx.NewPlayer(silenceReader{})
		a.player.Play()
	}
	return a
}

// silenceReader implements io.Reader, always returning zeroed PCM frames.
// It keeps the oto.Player primed without any channel synthesis feeding it.
type silenceReader struct{}

func (silenceReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// Tick is a no-op hook kept so callers can drive the APU alongside the PPU
// and timer without special-casing the stub; a future synthesis
// implementation would consume cycles here to advance the frame sequencer.
func (a *APU) Tick(cycles int) {}

func dacOffFromEnvByte(v byte) bool { return v&0xF8 == 0 }

// CPURead reads an APU register, applying the same "unused bits read as 1"
// masking real hardware exposes.
func (a *APU) CPURead(addr uint16) byte {
	if !a.enabled && addr != 0xFF26 && !(addr >= 0xFF30 && addr <= 0xFF3F) {
		return 0xFF
	}
	switch addr {
	case 0xFF10:
		return 0x80 | a.ch1.sweep
	case 0xFF11:
		return 0x3F | (a.ch1.duty << 6)
	case 0xFF12:
		return a.ch1.nrX2
	case 0xFF13:
		return 0xFF
	case 0xFF14:
		return 0xBF | (a.ch1.nrX4 & 0x40)
	case 0xFF16:
		return 0x3F | (a.ch2.duty << 6)
	case 0xFF17:
		return a.ch2.nrX2
	case 0xFF18:
		return 0xFF
	case 0xFF19:
		return 0xBF | (a.ch2.nrX4 & 0x40)
	case 0xFF1A:
		if a.ch3.dacOn {
			return 0xFF
		}
		return 0x7F
	case 0xFF1B:
		return 0xFF
	case 0xFF1C:
		return 0x9F | (a.ch3.volCode << 5)
	case 0xFF1D:
		return 0xFF
	case 0xFF1E:
		return 0xBF | (a.ch3.nr34 & 0x40)
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		return a.ch3.ram[addr-0xFF30]
	case 0xFF20:
		return 0xFF
	case 0xFF21:
		return a.ch4.nr42
	case 0xFF22:
		return a.ch4.nr43
	case 0xFF23:
		return 0xBF | (a.ch4.nr44 & 0x40)
	case 0xFF24:
		return a.nr50
	case 0xFF25:
		return a.nr51
	case 0xFF26:
		v := byte(0x70)
		if a.enabled {
			v |= 0x80
		}
		if a.ch1.dacOn {
			v |= 1 << 0
		}
		if a.ch2.dacOn {
			v |= 1 << 1
		}
		if a.ch3.dacOn {
			v |= 1 << 2
		}
		if a.ch4.dacOn {
			v |= 1 << 3
		}
		return v
	default:
		return 0xFF
	}
}

// CPUWrite stores a register write. Writes to most registers while the APU
// is powered off (NR52 bit7 clear) are dropped, matching hardware, except
// for the wave RAM and the length counters which stay writable.
func (a *APU) CPUWrite(addr uint16, v byte) {
	if !a.enabled && addr != 0xFF26 && !(addr >= 0xFF30 && addr <= 0xFF3F) &&
		addr != 0xFF11 && addr != 0xFF16 && addr != 0xFF1B && addr != 0xFF20 {
		return
	}
	switch addr {
	case 0xFF10:
		a.ch1.sweep = v & 0x7F
	case 0xFF11:
		a.ch1.duty = (v >> 6) & 3
		a.ch1.length = v & 0x3F
	case 0xFF12:
		a.ch1.nrX2 = v
		a.ch1.dacOn = !dacOffFromEnvByte(v)
	case 0xFF13:
		a.ch1.freqLo = v
	case 0xFF14:
		a.ch1.nrX4 = v
	case 0xFF16:
		a.ch2.duty = (v >> 6) & 3
		a.ch2.length = v & 0x3F
	case 0xFF17:
		a.ch2.nrX2 = v
		a.ch2.dacOn = !dacOffFromEnvByte(v)
	case 0xFF18:
		a.ch2.freqLo = v
	case 0xFF19:
		a.ch2.nrX4 = v
	case 0xFF1A:
		a.ch3.dacOn = v&0x80 != 0
	case 0xFF1B:
		a.ch3.length = v
	case 0xFF1C:
		a.ch3.volCode = (v >> 5) & 3
	case 0xFF1D:
		a.ch3.freqLo = v
	case 0xFF1E:
		a.ch3.nr34 = v
	case 0xFF30, 0xFF31, 0xFF32, 0xFF33, 0xFF34, 0xFF35, 0xFF36, 0xFF37,
		0xFF38, 0xFF39, 0xFF3A, 0xFF3B, 0xFF3C, 0xFF3D, 0xFF3E, 0xFF3F:
		a.ch3.ram[addr-0xFF30] = v
	case 0xFF20:
		a.ch4.length = v & 0x3F
	case 0xFF21:
		a.ch4.nr42 = v
		a.ch4.dacOn = !dacOffFromEnvByte(v)
	case 0xFF22:
		a.ch4.nr43 = v
	case 0xFF23:
		a.ch4.nr44 = v
	case 0xFF24:
		a.nr50 = v
	case 0xFF25:
		a.nr51 = v
	case 0xFF26:
		pwr := v&0x80 != 0
		if !pwr && a.enabled {
			a.powerOff()
		}
		a.enabled = pwr
	}
}

// powerOff clears all registers except wave RAM, mirroring NR52 bit7=0.
func (a *APU) powerOff() {
	a.nr50, a.nr51 = 0, 0
	a.ch1 = squareRegs{}
	a.ch2 = squareRegs{}
	ram := a.ch3.ram
	a.ch3 = waveRegs{ram: ram}
	a.ch4 = noiseRegs{}
}

// Close releases the output player, if one was opened.
func (a *APU) Close() {
	if a.player != nil {
		_ = a.player.Close()
	}
}

type apuState struct {
	Enabled          bool
	NR50, NR51, NR52 byte
	Ch1              squareRegs
	Ch2              squareRegs
	Ch3              waveRegs
	Ch4              noiseRegs
}

func (a *APU) SaveState() []byte {
	s := apuState{Enabled: a.enabled, NR50: a.nr50, NR51: a.nr51, NR52: a.nr52,
		Ch1: a.ch1, Ch2: a.ch2, Ch3: a.ch3, Ch4: a.ch4}
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(s)
	return buf.Bytes()
}

func (a *APU) LoadState(data []byte) {
	var s apuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	a.enabled, a.nr50, a.nr51, a.nr52 = s.Enabled, s.NR50, s.NR51, s.NR52
	a.ch1, a.ch2, a.ch3, a.ch4 = s.Ch1, s.Ch2, s.Ch3, s.Ch4
}
