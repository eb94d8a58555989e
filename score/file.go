package score

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// FileStore keeps the list as a JSON blob on disk
// The whole file is rewritten on every Add
type FileStore struct {
	mu   sync.Mutex
	path string
	size int
}

func NewFileStore(path string, size int) *FileStore {
	if size <= 0 {
		size = DefaultSize
	}
	return &FileStore{path: path, size: size}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the stored list, a missing file yields an empty list
func (s *FileStore) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", s.path)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "decode %s", s.path)
	}
	Sort(entries)
	return entries, nil
}

func (s *FileStore) Add(_ context.Context, score int64, name string) error {
	name, err := validName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = Insert(entries, Entry{Score: score, Name: name}, s.size)
	return s.save(entries)
}

func (s *FileStore) Top(_ context.Context, n int) ([]Entry, error) {
	entries, err := s.Load()
	if err != nil {
		return nil, err
	}
	return head(entries, n), nil
}

// save writes to a sibling temp file and renames it over the target
func (s *FileStore) save(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode scores")
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", tmp)
	}
	return eris.Wrapf(os.Rename(tmp, s.path), "replace %s", s.path)
}
