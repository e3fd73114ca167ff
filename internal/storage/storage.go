// Package storage keeps book cover images on the local filesystem
package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrInvalidFileName is returned for names that do not denote a plain file
var ErrInvalidFileName = errors.New("invalid file name")

// localStorage stores files flat under a base directory
type localStorage struct {
	basePath string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath string) *localStorage {
	return &localStorage{
		basePath: basePath,
	}
}

// generatePath resolves a file name inside the base directory.
// Directory components are stripped so a name can never escape basePath.
func (s *localStorage) generatePath(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base != name {
		return "", ErrInvalidFileName
	}
	return filepath.Join(s.basePath, base), nil
}

// Create creates a new file and returns a WriteCloser
func (s *localStorage) Create(name string) (io.WriteCloser, error) {
	path, err := s.generatePath(name)
	if err != nil {
		return nil, err
	}

	// Ensure the directory exists
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// OpenFile opens a file for use with http.ServeContent
func (s *localStorage) OpenFile(name string) (*os.File, error) {
	path, err := s.generatePath(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes a file
func (s *localStorage) Delete(name string) error {
	path, err := s.generatePath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
