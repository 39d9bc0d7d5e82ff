package gallery

import (
	"sync"

	"foodshare/internal/media"
)

// Staging collects raw files locally without uploading them; the owner
// drives the actual upload later. Candidates beyond capacity are
// silently dropped, which is intentionally different from Collector's
// capacity error.
type Staging struct {
	mu       sync.Mutex
	maxFiles int
	previews *PreviewStore
	files    []media.File
	handles  []*Handle // index-aligned with files
	onChange func(files []media.File)
}

func NewStaging(maxFiles int, previews *PreviewStore, onChange func([]media.File)) *Staging {
	if maxFiles <= 0 {
		maxFiles = 1
	}
	if onChange == nil {
		onChange = func([]media.File) {}
	}
	return &Staging{maxFiles: maxFiles, previews: previews, onChange: onChange}
}

// AddFiles stages candidates one at a time up to remaining capacity and
// returns how many were accepted. Excess candidates, and candidates
// whose bytes are not a decodable image, are dropped without error.
func (s *Staging) AddFiles(candidates []media.File) int {
	s.mu.Lock()
	accepted := 0
	for _, f := range candidates {
		if len(s.files) >= s.maxFiles {
			break
		}
		h, err := s.previews.Create(f.Content)
		if err != nil {
			continue
		}
		s.files = append(s.files, f)
		s.handles = append(s.handles, h)
		accepted++
	}
	var snapshot []media.File
	if accepted > 0 {
		snapshot = append([]media.File(nil), s.files...)
	}
	s.mu.Unlock()

	if accepted > 0 {
		s.onChange(snapshot)
	}
	return accepted
}

// RemoveAt releases the preview resource at i, then drops the file and
// preview together.
func (s *Staging) RemoveAt(i int) bool {
	s.mu.Lock()
	if i < 0 || i >= len(s.files) {
		s.mu.Unlock()
		return false
	}
	s.handles[i].Release()
	s.files = append(s.files[:i], s.files[i+1:]...)
	s.handles = append(s.handles[:i], s.handles[i+1:]...)
	snapshot := append([]media.File(nil), s.files...)
	s.mu.Unlock()

	s.onChange(snapshot)
	return true
}

func (s *Staging) Files() []media.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.File(nil), s.files...)
}

func (s *Staging) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Handle(nil), s.handles...)
}

func (s *Staging) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Clear releases every staged preview and empties the collector.
func (s *Staging) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handles {
		h.Release()
	}
	s.files = nil
	s.handles = nil
}
