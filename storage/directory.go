package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const sessionFileExt = ".sess"

// Directory stores each session as "<id>.sess" in a local directory. Writes
// go to a temporary file that is renamed into place, so readers never see a
// partial blob.
type Directory struct {
	dir string
}

// NewDirectory checks that dir exists, is a directory, and is readable and
// writable by this process.
func NewDirectory(dir string) (*Directory, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: sessions directory: %v", ErrBackend, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBackend, dir)
	}
	if _, err := os.ReadDir(dir); err != nil {
		return nil, fmt.Errorf("%w: sessions directory is not readable: %v", ErrBackend, err)
	}
	check, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("%w: sessions directory is not writable: %v", ErrBackend, err)
	}
	name := check.Name()
	_ = check.Close()
	_ = os.Remove(name)

	return &Directory{dir: dir}, nil
}

// Path returns the directory backing the store.
func (d *Directory) Path() string {
	return d.dir
}

func (d *Directory) file(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: invalid session file name %q", ErrBackend, id)
	}
	return filepath.Join(d.dir, id+sessionFileExt), nil
}

func (d *Directory) Has(_ context.Context, id string) (bool, error) {
	path, err := d.file(id)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return true, nil
}

func (d *Directory) Read(_ context.Context, id string) ([]byte, error) {
	path, err := d.file(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read session file %q: %v", ErrBackend, id, err)
	}
	return data, nil
}

func (d *Directory) Write(_ context.Context, id string, blob []byte) error {
	path, err := d.file(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-"+id+"-*")
	if err != nil {
		return fmt.Errorf("%w: write session %q: %v", ErrBackend, id, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write session %q: %v", ErrBackend, id, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: sync session %q: %v", ErrBackend, id, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close session %q: %v", ErrBackend, id, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("%w: commit session %q: %v", ErrBackend, id, err)
	}
	return nil
}

func (d *Directory) Delete(_ context.Context, id string) error {
	path, err := d.file(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: delete session file %q: %v", ErrBackend, id, err)
	}
	return nil
}

func (d *Directory) LastModified(_ context.Context, id string) (int64, error) {
	path, err := d.file(id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: stat session file %q: %v", ErrBackend, id, err)
	}
	return info.ModTime().Unix(), nil
}

func (d *Directory) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions directory: %v", ErrBackend, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, sessionFileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, sessionFileExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *Directory) Flush(ctx context.Context) error {
	ids, err := d.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := d.Delete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %d of %d session files: %w", len(errs), len(ids), errors.Join(errs...))
	}
	return nil
}
