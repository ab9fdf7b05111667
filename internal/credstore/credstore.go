// Package credstore is the durable storage slot for the bearer token.
// One slot, one raw string; presence of the slot is itself meaningful
// to route gating, so Present must not require a successful read.
package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoToken = errors.New("no token stored")

// Slot is the persistence port the session store writes through.
type Slot interface {
	Read() (string, error)
	Write(token string) error
	Clear() error
	Present() bool
}

// FileSlot stores the token in a single file under the config dir.
type FileSlot struct {
	path string
}

func NewFileSlot(path string) *FileSlot {
	return &FileSlot{path: path}
}

func (s *FileSlot) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *FileSlot) Write(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0600)
}

// Clear removes the slot. Removing an absent slot is not an error.
func (s *FileSlot) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileSlot) Present() bool {
	info, err := os.Stat(s.path)
	return err == nil && info.Size() > 0
}
