package ui

import (
	"time"
)

// applyPlayerBufferSize sets the audio player's internal buffer to a small
// size for low latency. Ebiten exposes Player.SetBufferSize; we pick ~20ms
// in low-latency (or during fast-forward), ~40ms otherwise.
func (a *App) applyPlayerBufferSize() {
	if a.audioPlayer == nil {
		return
	}
	bufMs := 40
	if a.cfg.AudioLowLatency || a.fast {
		bufMs = 20
	}
	a.audioPlayer.SetBufferSize(time.Duration(bufMs) * time.Millisecond)
}

// apuStream implements io.Reader for ebiten's audio.Player. The APU is a
// register-file stub with no channel synthesis (see internal/apu), so this
// always emits silence; it exists so the oto/ebiten audio output path is
// genuinely exercised end to end and ready for real PCM the moment
// synthesis is added, without changing this plumbing.
type apuStream struct {
	mono bool
}

func (s *apuStream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
