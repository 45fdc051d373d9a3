package emu

import "errors"

// ErrSaveIO is wrapped around the file I/O failures of Machine: reading a
// ROM file and writing or reading a save-state file.
var ErrSaveIO = errors.New("emu: save I/O error")
