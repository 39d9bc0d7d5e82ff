package gallery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"foodshare/internal/errs"
	"foodshare/internal/media"
)

// BatchUploader is the slice of the media client the collector needs.
type BatchUploader interface {
	UploadBatch(ctx context.Context, files []media.File) ([]string, error)
}

// Collector accumulates uploaded image URLs for a single form field,
// up to a cap. Selected files are uploaded immediately; the owner is
// notified with the full URL list after every change.
type Collector struct {
	mu        sync.Mutex
	max       int
	uploader  BatchUploader
	previews  *PreviewStore
	committed []string  // uploaded URLs
	handles   []*Handle // index-aligned with committed
	reserved  int       // slots held by selections whose upload is in flight
	busy      bool
	errMsg    string
	progress  atomic.Int32
	onChange  func(urls []string)
}

func NewCollector(max int, up BatchUploader, previews *PreviewStore, onChange func([]string)) *Collector {
	if max <= 0 {
		max = 1
	}
	if onChange == nil {
		onChange = func([]string) {}
	}
	return &Collector{max: max, uploader: up, previews: previews, onChange: onChange}
}

// Seed loads already-persisted URLs (edit mode) without previews being
// regenerated from bytes; the URL itself serves as the preview source.
func (c *Collector) Seed(urls []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range urls {
		c.committed = append(c.committed, u)
		c.handles = append(c.handles, &Handle{ID: u, path: ""})
	}
}

// SelectFiles uploads the given files as one batch and commits their
// URLs in input order. Selections that would exceed the cap are
// rejected whole with ErrCapacity and no state change. On upload
// failure the error is recorded, previews created for this call are
// released, and the committed list is untouched.
func (c *Collector) SelectFiles(ctx context.Context, files []media.File) error {
	if len(files) == 0 {
		return nil
	}

	c.mu.Lock()
	// Reserved slots count toward the cap so a second selection cannot
	// slip in while this one's upload is still in flight.
	if len(c.committed)+c.reserved+len(files) > c.max {
		c.mu.Unlock()
		return fmt.Errorf("%w: at most %d images", errs.ErrCapacity, c.max)
	}
	c.reserved += len(files)

	pending := make([]*Handle, 0, len(files))
	for _, f := range files {
		h, err := c.previews.Create(f.Content)
		if err != nil {
			for _, p := range pending {
				p.Release()
			}
			c.reserved -= len(files)
			c.mu.Unlock()
			return fmt.Errorf("%w: %v", errs.ErrValidation, err)
		}
		pending = append(pending, h)
	}
	c.busy = true
	c.errMsg = ""
	c.mu.Unlock()

	done := make(chan struct{})
	go c.runProgress(done)

	urls, err := c.uploader.UploadBatch(ctx, files)
	close(done)

	c.mu.Lock()
	c.busy = false
	c.reserved -= len(files)
	if err != nil {
		// Roll the optimistic previews back so the visible count never
		// exceeds the confirmed URL count.
		for _, p := range pending {
			p.Release()
		}
		c.errMsg = "Upload failed. Please try again."
		c.mu.Unlock()
		return err
	}
	c.committed = append(c.committed, urls...)
	c.handles = append(c.handles, pending...)
	c.progress.Store(100)
	snapshot := append([]string(nil), c.committed...)
	c.mu.Unlock()

	c.onChange(snapshot)
	return nil
}

// RemoveAt drops the committed URL and its preview at index i together
// and notifies the owner synchronously. Works regardless of any upload
// in flight.
func (c *Collector) RemoveAt(i int) bool {
	c.mu.Lock()
	if i < 0 || i >= len(c.committed) {
		c.mu.Unlock()
		return false
	}
	c.handles[i].Release()
	c.committed = append(c.committed[:i], c.committed[i+1:]...)
	c.handles = append(c.handles[:i], c.handles[i+1:]...)
	snapshot := append([]string(nil), c.committed...)
	c.mu.Unlock()

	c.onChange(snapshot)
	return true
}

func (c *Collector) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.committed...)
}

func (c *Collector) Handles() []*Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Handle(nil), c.handles...)
}

func (c *Collector) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Collector) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Progress is purely cosmetic: it creeps toward 90 while an upload is
// outstanding and jumps to 100 on success. Nothing may gate on it.
func (c *Collector) Progress() int { return int(c.progress.Load()) }

func (c *Collector) runProgress(done <-chan struct{}) {
	c.progress.Store(0)
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if p := c.progress.Load(); p < 90 {
				c.progress.Store(p + 10)
			}
		}
	}
}

// Close releases every preview handle. Called when the owning form is
// torn down.
func (c *Collector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range c.handles {
		h.Release()
	}
	c.handles = nil
	c.committed = nil
}
