// Package savestate stores the state of several components in one file.
package savestate

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// A StateHolder is a component whose state can be saved and restored.
type StateHolder interface {
	Name() string
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}

// file is the on-disk layout. Sections keep the holders' own binary
// layouts untouched.
type file struct {
	Version  int
	Sections map[string][]byte
}

const formatVersion = 1

// Manager saves and loads a set of StateHolders.
type Manager struct {
	holders []StateHolder
}

// NewManager creates a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a holder. Holder names must be unique.
func (m *Manager) Register(h StateHolder) {
	for _, other := range m.holders {
		if other.Name() == h.Name() {
			panic(fmt.Sprintf("state holder %s registered twice", h.Name()))
		}
	}

	m.holders = append(m.holders, h)
}

// Save writes the state of every holder to w.
func (m *Manager) Save(w io.Writer) error {
	f := file{
		Version:  formatVersion,
		Sections: make(map[string][]byte, len(m.holders)),
	}

	for _, h := range m.holders {
		var buf bytes.Buffer

		err := h.SaveState(&buf)
		if err != nil {
			return fmt.Errorf("saving %s: %w", h.Name(), err)
		}

		f.Sections[h.Name()] = buf.Bytes()
	}

	return gob.NewEncoder(w).Encode(f)
}

// Load restores every holder from r. Every registered holder must have a
// section. Nothing is restored if any section is missing.
func (m *Manager) Load(r io.Reader) error {
	var f file

	err := gob.NewDecoder(r).Decode(&f)
	if err != nil {
		return fmt.Errorf("decoding save state: %w", err)
	}

	if f.Version != formatVersion {
		return fmt.Errorf("unsupported save state version %d", f.Version)
	}

	for _, h := range m.holders {
		if _, ok := f.Sections[h.Name()]; !ok {
			return fmt.Errorf("save state has no section for %s", h.Name())
		}
	}

	for _, h := range m.holders {
		err := h.LoadState(bytes.NewReader(f.Sections[h.Name()]))
		if err != nil {
			return fmt.Errorf("loading %s: %w", h.Name(), err)
		}
	}

	return nil
}

// SaveFile writes the state of every holder to a file.
func (m *Manager) SaveFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}

	err = m.Save(out)
	if err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// LoadFile restores every holder from a file written by SaveFile.
func (m *Manager) LoadFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	return m.Load(in)
}
