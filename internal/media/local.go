package media

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore keeps images in a directory served under AssetsPrefix.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Backend() string { return "local" }

func (s *LocalStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	name, ok := LocalName(ref)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
