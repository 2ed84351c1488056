package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps uploaded artifacts (QR codes, proof photos, signatures)
// and hands back a relative reference that is stored on the owning record.
type BlobStore interface {
	Save(ctx context.Context, dir, name string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

type fsStore struct {
	fs afero.Fs
}

// NewFSStore stores blobs on fs. Use afero.NewBasePathFs to confine it to a
// media root, or afero.NewMemMapFs in tests.
func NewFSStore(fs afero.Fs) BlobStore {
	return &fsStore{fs: fs}
}

// NewMediaStore roots a store at dir on the local disk, creating it if needed.
func NewMediaStore(dir string) (BlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

func (s *fsStore) Save(ctx context.Context, dir, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := path.Join(cleanSegment(dir), cleanSegment(name))
	if err := s.fs.MkdirAll(filepath.FromSlash(cleanSegment(dir)), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob dir: %w", err)
	}
	f, err := s.fs.Create(filepath.FromSlash(ref))
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = s.fs.Remove(filepath.FromSlash(ref))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close blob: %w", err)
	}
	return ref, nil
}

func (s *fsStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, ErrBlobNotFound
	}
	f, err := s.fs.Open(filepath.FromSlash(path.Clean("/" + ref))[1:])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (s *fsStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	err := s.fs.Remove(filepath.FromSlash(path.Clean("/" + ref))[1:])
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// cleanSegment strips traversal and separators from caller-supplied names.
func cleanSegment(s string) string {
	s = path.Clean("/" + strings.ReplaceAll(s, "\\", "/"))
	return strings.TrimPrefix(s, "/")
}
