package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrStaticCatalog = errors.New("static catalog unavailable")

// HTTPStaticSource reads the fallback catalog from a fixed URL. Concurrent
// fetches share a single request.
type HTTPStaticSource struct {
	url    string
	client *http.Client
	sfg    singleflight.Group
}

func NewHTTPStaticSource(url string, client *http.Client) *HTTPStaticSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPStaticSource{url: url, client: client}
}

// FetchOnce joins the in-flight request, if any. The shared request is detached
// from any one caller's cancellation and bounded by the client timeout; each
// caller still stops waiting when its own ctx ends.
func (s *HTTPStaticSource) FetchOnce(ctx context.Context) ([]StaticRecord, error) {
	flight := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(s.url, func() (interface{}, error) {
		return s.fetch(flight)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]StaticRecord), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *HTTPStaticSource) fetch(ctx context.Context) ([]StaticRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build static catalog request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaticCatalog, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrStaticCatalog, resp.StatusCode)
	}
	return decodeStatic(resp.Body)
}

// FileStaticSource reads the fallback catalog from a file on disk.
type FileStaticSource struct {
	path string
}

func NewFileStaticSource(path string) *FileStaticSource {
	return &FileStaticSource{path: path}
}

func (s *FileStaticSource) FetchOnce(context.Context) ([]StaticRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaticCatalog, err)
	}
	defer f.Close()
	return decodeStatic(f)
}

func decodeStatic(r io.Reader) ([]StaticRecord, error) {
	var records []StaticRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: malformed catalog: %w", ErrStaticCatalog, err)
	}
	return records, nil
}
