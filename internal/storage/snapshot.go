package storage

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/valyala/fastjson"
)

// Snapshot is the persisted-state boundary: one JSON file holding the
// canonical subset {currentUser, users, chats, stories,
// isSidebarCollapsed}. It is loaded once at startup and rewritten
// synchronously on every mutation.
type Snapshot struct {
	path string
}

// NewSnapshot points the boundary at a file. The file may not exist yet.
func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

// snapshotState is the on-disk shape. Collections left nil on load keep
// their fixture defaults.
type snapshotState struct {
	CurrentUser      *User   `json:"currentUser"`
	Users            []User  `json:"users"`
	Chats            []Chat  `json:"chats"`
	Stories          []Story `json:"stories"`
	SidebarCollapsed bool    `json:"isSidebarCollapsed"`
}

// load reads the snapshot file. A missing file is not an error; a corrupt
// one is, and the caller falls back to fixtures.
func (s *Snapshot) load() (snapshotState, bool, error) {
	var st snapshotState

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, false, nil
		}
		return st, false, err
	}

	if err := fastjson.ValidateBytes(raw); err != nil {
		return st, false, err
	}

	if err := json.Unmarshal(raw, &st); err != nil {
		return st, false, err
	}

	return st, true, nil
}

// save rewrites the whole snapshot file.
func (s *Snapshot) save(st snapshotState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, raw, 0644)
}
