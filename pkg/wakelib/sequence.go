package wakelib

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Action is a single step of an alarm sequence. Config is passed through
// opaquely to the executor; unknown keys are preserved on round-trip.
type Action struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
}

// Sequence is an ordered, named list of actions executed when an alarm
// fires. Sequences are independent of alarms: removing an alarm never
// removes its sequence, and several alarms may reference the same one.
type Sequence struct {
	Name    string   `json:"name"`
	Actions []Action `json:"actions"`
}

// Validate checks the structural invariants of a sequence before saving.
func (s *Sequence) Validate() error {
	if s.Name == "" {
		return ErrSequenceName
	}
	if len(s.Actions) == 0 {
		return ErrSequenceEmpty
	}
	for i, a := range s.Actions {
		if a.Type == "" {
			return fmt.Errorf("action %d has no type", i)
		}
	}
	return nil
}

// SequenceStore loads and saves sequence documents as JSON files, one per
// sequence, in a single directory. It is read by the UI process and by
// the short-lived process the native scheduler spawns at fire time; those
// processes share nothing except these files.
type SequenceStore struct {
	fs  afero.Fs
	dir string
}

// NewSequenceStore creates a store rooted at dir on the given filesystem.
func NewSequenceStore(fs afero.Fs, dir string) *SequenceStore {
	return &SequenceStore{fs: fs, dir: dir}
}

// Path returns the file path a sequence name resolves to. The name is
// sanitized the same way on save and load so the two always agree.
func (st *SequenceStore) Path(name string) string {
	return filepath.Join(st.dir, sanitizeFilename(name)+".json")
}

// Save writes a sequence document, creating the store directory if
// needed. The write goes through a temp file and rename so a fired
// process never observes a half-written document.
func (st *SequenceStore) Save(seq *Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}
	if err := st.fs.MkdirAll(st.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sequence dir: %w", err)
	}
	data, err := json.MarshalIndent(seq, "", "    ")
	if err != nil {
		return err
	}
	path := st.Path(seq.Name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(st.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to save sequence %q: %w", seq.Name, err)
	}
	if err := st.fs.Rename(tmp, path); err != nil {
		_ = st.fs.Remove(tmp)
		return fmt.Errorf("failed to save sequence %q: %w", seq.Name, err)
	}
	return nil
}

// Load reads a sequence document by name.
func (st *SequenceStore) Load(name string) (*Sequence, error) {
	data, err := afero.ReadFile(st.fs, st.Path(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSequenceNotFound, name)
	}
	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("failed to parse sequence %q: %w", name, err)
	}
	if seq.Name == "" {
		seq.Name = name
	}
	return &seq, nil
}

// List returns the names of all stored sequences, sorted.
func (st *SequenceStore) List() ([]string, error) {
	infos, err := afero.ReadDir(st.fs, st.dir)
	if err != nil {
		// A store that was never written to lists as empty.
		return nil, nil
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(fi.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes a stored sequence document.
func (st *SequenceStore) Remove(name string) error {
	if err := st.fs.Remove(st.Path(name)); err != nil {
		return fmt.Errorf("%w: %q", ErrSequenceNotFound, name)
	}
	return nil
}

// sanitizeFilename keeps alphanumerics, dots, dashes, underscores and
// spaces, dropping anything that could escape the store directory.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}
