package watermark

import (
	"encoding/json"
	"os"

	"github.com/owslabs/whatsapp-ows-bridge/internal/errors"
)

// Store persists, per group, the identifier of the last processed
// message. It is backed by a single JSON object file mapping group name
// to message identifier.
//
// Every Set re-reads the full snapshot and rewrites it wholesale; no
// state is cached across calls, so a process restart mid-cycle loses at
// most the in-flight message. This discipline is only safe with a single
// writer; the bot serializes all access.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file. The file is created
// on the first Set; a missing file reads as an empty mapping.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the last processed message identifier for a group. ok is
// false when the group has no recorded watermark.
func (s *Store) Get(group string) (id string, ok bool, err error) {
	marks, err := s.read()
	if err != nil {
		return "", false, err
	}
	id, ok = marks[group]
	return id, ok, nil
}

// Set durably records the last processed message identifier for a group.
func (s *Store) Set(group, id string) error {
	marks, err := s.read()
	if err != nil {
		return err
	}

	marks[group] = id

	data, err := json.Marshal(marks)
	if err != nil {
		return errors.StoreIO(err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.StoreIO(err)
	}
	return nil
}

// read loads the full snapshot from disk. A missing file is an empty
// mapping, not an error: a deleted store simply makes all visible
// history unread again.
func (s *Store) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, errors.StoreIO(err)
	}

	marks := make(map[string]string)
	if err := json.Unmarshal(data, &marks); err != nil {
		return nil, errors.StoreIO(err)
	}
	return marks, nil
}
