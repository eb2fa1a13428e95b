// Package session persists the client's session token between runs,
// playing the role browser local storage played for the web client.
package session

import (
	"encoding/json"
	"os"
	"sync"
)

// Store keeps the current session token in memory and mirrors it to
// a JSON file. An empty token means "not authenticated".
type Store struct {
	mu    sync.Mutex
	path  string
	token string
}

type fileFormat struct {
	Token string `json:"token"`
}

// NewStore returns a Store backed by the file at path and loads any
// previously saved token. A missing or unreadable file simply leaves
// the store empty.
func NewStore(path string) *Store {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return s
	}
	s.token = f.Token
	return s
}

// Token returns the stored session token, or "" when none is present.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken replaces the stored token and persists it.
func (s *Store) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return s.save()
}

// Clear removes the token from memory and disk. A missing file is
// not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) save() error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(fileFormat{Token: s.token})
}
