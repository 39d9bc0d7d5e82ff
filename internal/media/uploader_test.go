package media_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"foodshare/internal/config"
	"foodshare/internal/errs"
	"foodshare/internal/media"
)

func testCfg(url string) config.Config {
	return config.Config{
		MediaCloudName:    "demo",
		MediaUploadPreset: "unsigned",
		MediaUploadURL:    url,
	}
}

// Fake media host: echoes back a URL derived from the uploaded filename.
func fakeHost(t *testing.T, fail func(name string) bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.FormValue("upload_preset") == "" {
			http.Error(w, "missing preset", http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		f.Close()
		if fail != nil && fail(hdr.Filename) {
			http.Error(w, "rejected", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://cdn.test/" + hdr.Filename,
		})
	}))
}

func TestUploadSingle(t *testing.T) {
	srv := fakeHost(t, nil)
	defer srv.Close()

	up := media.NewUploader(testCfg(srv.URL))
	url, err := up.Upload(context.Background(), media.File{Name: "bread.jpg", Content: []byte("jpegdata")})
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.test/bread.jpg" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestUploadBatchPreservesOrder(t *testing.T) {
	// Stall the first file so it completes last; order must still hold.
	var first int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(8 << 20)
		_, hdr, _ := r.FormFile("file")
		if atomic.CompareAndSwapInt32(&first, 0, 1) {
			time.Sleep(50 * time.Millisecond)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.test/" + hdr.Filename})
	}))
	defer srv.Close()

	up := media.NewUploader(testCfg(srv.URL))
	files := make([]media.File, 5)
	for i := range files {
		files[i] = media.File{Name: fmt.Sprintf("img-%d.jpg", i), Content: []byte{byte(i)}}
	}
	urls, err := up.UploadBatch(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != len(files) {
		t.Fatalf("want %d urls, got %d", len(files), len(urls))
	}
	for i, u := range urls {
		want := fmt.Sprintf("https://cdn.test/img-%d.jpg", i)
		if u != want {
			t.Fatalf("urls[%d] = %q, want %q", i, u, want)
		}
	}
}

func TestUploadBatchAllOrNothing(t *testing.T) {
	srv := fakeHost(t, func(name string) bool { return name == "img-2.jpg" })
	defer srv.Close()

	up := media.NewUploader(testCfg(srv.URL))
	files := []media.File{
		{Name: "img-0.jpg", Content: []byte("a")},
		{Name: "img-1.jpg", Content: []byte("b")},
		{Name: "img-2.jpg", Content: []byte("c")},
	}
	urls, err := up.UploadBatch(context.Background(), files)
	if !errors.Is(err, errs.ErrUpload) {
		t.Fatalf("want ErrUpload, got %v", err)
	}
	if urls != nil {
		t.Fatalf("partial result leaked: %v", urls)
	}
}

func TestUploadMisconfigured(t *testing.T) {
	up := media.NewUploader(config.Config{})
	if _, err := up.Upload(context.Background(), media.File{Name: "x.jpg"}); !errors.Is(err, errs.ErrMisconfigured) {
		t.Fatalf("want ErrMisconfigured, got %v", err)
	}
	if _, err := up.UploadBatch(context.Background(), []media.File{{Name: "x.jpg"}}); !errors.Is(err, errs.ErrMisconfigured) {
		t.Fatalf("want ErrMisconfigured, got %v", err)
	}
}
