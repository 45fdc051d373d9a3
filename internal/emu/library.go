package emu

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LibraryEntry records per-ROM metadata from library.toml: a title
// override, a last-played stamp, and a saved compat palette choice.
// cmd/gbemu applies the palette choice at load time; the title and
// last-played fields are decoded but not shown or updated by any host.
type LibraryEntry struct {
	Title        string `toml:"title"`
	LastPlayed   string `toml:"last_played"` // RFC3339 text; emu never reads the clock
	CompatPalette int   `toml:"compat_palette"`
}

// Library is the decoded form of a ROMs-directory "library.toml" manifest,
// keyed by ROM filename relative to the ROMs directory.
type Library struct {
	Entries map[string]LibraryEntry `toml:"rom"`
}

// LoadLibrary reads library.toml from dir. A missing file yields an empty,
// non-nil Library rather than an error, since the manifest is optional.
func LoadLibrary(dir string) (*Library, error) {
	lib := &Library{Entries: map[string]LibraryEntry{}}
	path := filepath.Join(dir, "library.toml")
	if _, err := os.Stat(path); err != nil {
		return lib, nil
	}
	if _, err := toml.DecodeFile(path, lib); err != nil {
		return nil, err
	}
	if lib.Entries == nil {
		lib.Entries = map[string]LibraryEntry{}
	}
	return lib, nil
}

// Save writes the manifest back to dir/library.toml.
func (l *Library) Save(dir string) error {
	path := filepath.Join(dir, "library.toml")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(l)
}
