package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"castpress/internal/fileutil"
)

// Store maps descriptors to file paths inside one episode working directory
// and back. It performs no I/O beyond existence checks and payload loads
// requested explicitly by callers.
type Store struct {
	dir string
}

// NewStore builds a store rooted at the episode working directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the working directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Locate returns the canonical path for the descriptor. The result is
// deterministic for identical inputs.
func (s *Store) Locate(desc Descriptor) (string, error) {
	name, err := desc.FileName()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Describe parses a path (or bare file name) back into a descriptor.
// Files that match no known convention yield nil.
func (s *Store) Describe(path string) *Descriptor {
	return ParseFileName(filepath.Base(path))
}

// Exists reports whether the artifact for desc is present on disk.
func (s *Store) Exists(desc Descriptor) (bool, error) {
	path, err := s.Locate(desc)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("artifact: stat %s: %w", path, err)
	}
	return true, nil
}

// Save writes the document as the artifact payload using an atomic
// temp-file-plus-rename write, so an interrupted write never leaves a file
// the detector would mistake for a completed step.
func (s *Store) Save(desc Descriptor, payload []byte) (string, error) {
	path, err := s.Locate(desc)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: ensure workdir: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", filepath.Base(path), err)
	}
	return path, nil
}

// SaveJSON marshals v with indentation and saves it as the artifact payload.
func (s *Store) SaveJSON(desc Descriptor, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifact: encode %s: %w", desc.Kind, err)
	}
	return s.Save(desc, append(data, '\n'))
}

// Load reads the artifact payload. Content is loaded lazily, only when a
// step actually needs it; detection never calls Load.
func (s *Store) Load(desc Descriptor) ([]byte, error) {
	path, err := s.Locate(desc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// LoadJSON reads and unmarshals the artifact payload into v.
func (s *Store) LoadJSON(desc Descriptor, v any) error {
	data, err := s.Load(desc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("artifact: decode %s: %w", desc.Kind, err)
	}
	return nil
}
