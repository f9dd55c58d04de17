package fsblob

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/acevedod1974/gradebook/core"
)

// Store keeps backup blobs as plain files in a directory; it backs the
// local "export to file" path.
type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Put(_ context.Context, name string, data []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	return errors.Wrapf(ioutil.WriteFile(path, data, 0o644), "writing %s", name)
}

func (s *Store) Get(_ context.Context, name string) ([]byte, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, core.NewNotFoundError("backup")
	}
	return data, errors.Wrapf(err, "reading %s", name)
}

func (s *Store) List(_ context.Context) ([]string, error) {
	entries, err := ioutil.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", s.dir)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// path rejects names that would escape the store directory.
func (s *Store) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", errors.Errorf("invalid blob name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
