package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileBackend stores one file per key in a single directory. The filename
// is the key verbatim and the file's modification time is the entry's age.
type FileBackend struct {
	fs  afero.Fs
	dir string
}

// NewFileBackend creates a backend rooted at dir on the OS filesystem
func NewFileBackend(dir string) (*FileBackend, error) {
	return NewFileBackendWithFs(afero.NewOsFs(), dir)
}

// NewFileBackendWithFs creates a backend rooted at dir on fsys
func NewFileBackendWithFs(fsys afero.Fs, dir string) (*FileBackend, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{fs: fsys, dir: dir}, nil
}

// DefaultDir returns the per-user cache directory for the client
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "airtable"), nil
}

// Dir returns the directory entries are stored in
func (f *FileBackend) Dir() string {
	return f.dir
}

// ErrInvalidKey is returned when a key cannot be used as a plain filename
var ErrInvalidKey = errors.New("cache key is not a plain filename")

// path returns the file for key. Keys naming anything other than a direct
// child of the cache directory are rejected.
func (f *FileBackend) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || filepath.Base(key) != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.dir, key), nil
}

// Read returns the file contents and modification time for key
func (f *FileBackend) Read(ctx context.Context, key string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	p, err := f.path(key)
	if err != nil {
		return Entry{}, ErrCacheMiss{Key: key}
	}

	info, err := f.fs.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrCacheMiss{Key: key}
		}
		return Entry{}, err
	}

	data, err := afero.ReadFile(f.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrCacheMiss{Key: key}
		}
		return Entry{}, err
	}

	return Entry{Data: data, ModTime: info.ModTime()}, nil
}

// Write stores the entry and stamps the file with its modification time.
// Concurrent writers to one key race; the last writer wins.
func (f *FileBackend) Write(ctx context.Context, key string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(f.fs, p, entry.Data, 0o644); err != nil {
		return err
	}
	if entry.ModTime.IsZero() {
		return nil
	}
	return f.fs.Chtimes(p, entry.ModTime, entry.ModTime)
}

// Delete removes the file for key
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := f.path(key)
	if err != nil {
		return err
	}
	err = f.fs.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every file in the cache directory
func (f *FileBackend) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if err := f.fs.Remove(filepath.Join(f.dir, info.Name())); err != nil {
			return err
		}
	}
	return nil
}
