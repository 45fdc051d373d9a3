package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/kesslerhart/gbcore/internal/emu"
)

// KeyMap binds each Game Boy button to a host key. It is persisted
// separately from Config as human-editable YAML (see settings.go) so a
// player can remap without touching the JSON window/audio settings.
type KeyMap struct {
	Up, Down, Left, Right string
	A, B, Start, Select   string
}

// DefaultKeyMap matches the teacher's original hardcoded bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: "ArrowUp", Down: "ArrowDown", Left: "ArrowLeft", Right: "ArrowRight",
		A: "Z", B: "X", Start: "Enter", Select: "ShiftRight",
	}
}

// keyByName resolves a YAML-editable key name to an ebiten.Key; unknown
// names fall back to KeyUnknown, which never reports pressed.
func keyByName(name string) ebiten.Key {
	if k, ok := keyNameTable[name]; ok {
		return k
	}
	return ebiten.KeyUnknown
}

var keyNameTable = map[string]ebiten.Key{
	"ArrowUp": ebiten.KeyArrowUp, "ArrowDown": ebiten.KeyArrowDown,
	"ArrowLeft": ebiten.KeyArrowLeft, "ArrowRight": ebiten.KeyArrowRight,
	"Z": ebiten.KeyZ, "X": ebiten.KeyX, "A": ebiten.KeyA, "S": ebiten.KeyS,
	"Enter": ebiten.KeyEnter, "Space": ebiten.KeySpace,
	"ShiftRight": ebiten.KeyShiftRight, "ShiftLeft": ebiten.KeyShiftLeft,
}

// Poll reads the current state of every bound key into Game Boy button bits.
func (km KeyMap) Poll() emu.Buttons {
	return emu.Buttons{
		Up:     ebiten.IsKeyPressed(keyByName(km.Up)),
		Down:   ebiten.IsKeyPressed(keyByName(km.Down)),
		Left:   ebiten.IsKeyPressed(keyByName(km.Left)),
		Right:  ebiten.IsKeyPressed(keyByName(km.Right)),
		A:      ebiten.IsKeyPressed(keyByName(km.A)),
		B:      ebiten.IsKeyPressed(keyByName(km.B)),
		Start:  ebiten.IsKeyPressed(keyByName(km.Start)),
		Select: ebiten.IsKeyPressed(keyByName(km.Select)),
	}
}
