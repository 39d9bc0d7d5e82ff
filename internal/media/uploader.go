// Package media wraps the external image-hosting API. Uploads are
// all-or-nothing per batch; failures are surfaced to the user, never
// retried here.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"foodshare/internal/config"
	"foodshare/internal/errs"

	"golang.org/x/sync/errgroup"
)

// File is one pending binary to upload.
type File struct {
	Name    string
	Content []byte
}

type Uploader struct {
	client    *http.Client
	endpoint  string // <base>/<cloud name>/image/upload
	preset    string
	misconfig bool
}

func NewUploader(cfg config.Config) *Uploader {
	u := &Uploader{
		client: &http.Client{Timeout: 30 * time.Second},
		preset: cfg.MediaUploadPreset,
	}
	if cfg.MediaCloudName == "" || cfg.MediaUploadPreset == "" {
		u.misconfig = true
		return u
	}
	u.endpoint = cfg.MediaUploadURL + "/" + cfg.MediaCloudName + "/image/upload"
	return u
}

// Upload posts a single file and returns its durable URL.
func (u *Uploader) Upload(ctx context.Context, f File) (string, error) {
	if u.misconfig {
		return "", errs.ErrMisconfigured
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", f.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	if _, err := part.Write(f.Content); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	if err := mw.WriteField("upload_preset", u.preset); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %s (%s)", errs.ErrUpload, resp.Status, bytes.TrimSpace(msg))
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: bad response: %v", errs.ErrUpload, err)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: response missing secure_url", errs.ErrUpload)
	}
	return out.SecureURL, nil
}

// UploadBatch uploads every file concurrently. The returned URLs are in
// input order regardless of completion order. If any single upload
// fails the whole batch fails and no partial result is returned.
func (u *Uploader) UploadBatch(ctx context.Context, files []File) ([]string, error) {
	if u.misconfig {
		return nil, errs.ErrMisconfigured
	}
	if len(files) == 0 {
		return []string{}, nil
	}

	urls := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		i := i
		g.Go(func() error {
			url, err := u.Upload(gctx, files[i])
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
