package ui

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// devkitSettings is the human-editable sibling of the JSON Config file: key
// bindings and per-ROM palette overrides, kept in YAML so both can be
// hand-tuned in a text editor; NewApp applies both on startup.
type devkitSettings struct {
	Keys     KeyMap         `yaml:"keys"`
	Palettes map[string]int `yaml:"palettes"`
}

func devkitSettingsPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		d := filepath.Join(dir, "gbemu")
		_ = os.MkdirAll(d, 0o755)
		return filepath.Join(d, "keymap.yaml")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "gbemu_keymap.yaml")
}

// loadDevkitSettings reads keymap.yaml, returning defaults if absent or
// malformed.
func loadDevkitSettings() devkitSettings {
	s := devkitSettings{Keys: DefaultKeyMap(), Palettes: map[string]int{}}
	data, err := os.ReadFile(devkitSettingsPath())
	if err != nil {
		return s
	}
	var loaded devkitSettings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return s
	}
	if (loaded.Keys != KeyMap{}) {
		s.Keys = loaded.Keys
	}
	if loaded.Palettes != nil {
		s.Palettes = loaded.Palettes
	}
	return s
}

func saveDevkitSettings(s devkitSettings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(devkitSettingsPath(), data, 0o644)
}
