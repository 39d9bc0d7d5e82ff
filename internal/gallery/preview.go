// Package gallery holds the image collectors backing the listing form
// and the upgrade wizard, plus their revocable preview handles.
package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"foodshare/internal/imaging"

	"github.com/google/uuid"
)

// Handle is a revocable local preview resource. Each staged or selected
// file owns exactly one; Release must be called when the entry is
// removed or superseded so scratch files don't pile up.
type Handle struct {
	ID   string
	path string

	once sync.Once
}

func (h *Handle) Path() string { return h.path }

// Release deletes the backing scratch file. Safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(func() { _ = os.Remove(h.path) })
}

// PreviewStore writes downscaled preview renditions into a scratch
// directory and hands out Handles for them.
type PreviewStore struct {
	dir string
}

func NewPreviewStore(dir string) *PreviewStore { return &PreviewStore{dir: dir} }

func (s *PreviewStore) Create(data []byte) (*Handle, error) {
	thumb, err := imaging.Preview(data)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	path := filepath.Join(s.dir, "preview-"+id+".jpg")
	if err := os.WriteFile(path, thumb, 0o644); err != nil {
		return nil, fmt.Errorf("writing preview: %w", err)
	}
	return &Handle{ID: id, path: path}, nil
}
