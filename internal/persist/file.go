package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ariefcatur/go-farmlink/internal/market"
)

// File stores the snapshot as <dir>/<key>.json, the on-disk counterpart of
// a browser's local key-value storage.
type File struct {
	dir string
	key string
}

func NewFile(dir, key string) *File {
	if key == "" {
		key = DefaultKey
	}
	return &File{dir: dir, key: key}
}

func (f *File) Path() string { return filepath.Join(f.dir, f.key+".json") }

func (f *File) Load(context.Context) (*market.State, error) {
	b, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(b)
}

// Save writes to a temp file and renames it over the old snapshot so a
// crash mid-write never leaves a truncated file behind.
func (f *File) Save(_ context.Context, st market.State) error {
	b, err := Encode(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, f.key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path()); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
