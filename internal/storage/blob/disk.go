package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vuxmai/catalog-admin/internal/config"
)

var _ Store = (*DiskStore)(nil)

// DiskStore stores blobs on the local filesystem under root/<disk>/<path>.
type DiskStore struct {
	root string
}

// NewDiskStore creates a filesystem-backed blob store rooted at cfg.Root.
func NewDiskStore(cfg config.Storage) *DiskStore {
	return &DiskStore{root: cfg.Root}
}

func (s *DiskStore) Put(ctx context.Context, disk, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath, err := s.resolve(disk, path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	return path, nil
}

func (s *DiskStore) Delete(ctx context.Context, disk, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := s.resolve(disk, path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}

	return nil
}

// resolve joins disk and path under the root, rejecting paths that would
// escape the disk directory.
func (s *DiskStore) resolve(disk, path string) (string, error) {
	diskRoot := filepath.Join(s.root, disk)
	fullPath := filepath.Join(diskRoot, filepath.FromSlash(path))

	if !strings.HasPrefix(fullPath, diskRoot+string(os.PathSeparator)) {
		return "", fmt.Errorf("blob path escapes disk %q: %s", disk, path)
	}

	return fullPath, nil
}
