package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/migsilva89/markmind/internal/storage"
)

// Key under which the session record lives in the kv table.
const storeKey = "organizeSession"

// KV is the durable key-value surface the session store needs.
type KV interface {
	GetKV(key string) (string, error)
	SetKV(key, value string) error
	DeleteKV(key string) error
}

// Store persists the single session record. It is the only channel through
// which the CLI and the daemon observe each other's progress; there is no
// version stamp, the last write wins.
type Store struct {
	kv KV
}

// NewStore creates a session store over the given key-value backend.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Load returns the persisted session, or nil when none is stored. A stored
// record is trusted as-is; there is no schema versioning.
func (s *Store) Load() (*Session, error) {
	raw, err := s.kv.GetKV(storeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &sess, nil
}

// Save persists the session, replacing any previous record.
func (s *Store) Save(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.kv.SetKV(storeKey, string(data)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Clear deletes the persisted session record.
func (s *Store) Clear() error {
	if err := s.kv.DeleteKV(storeKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
