package allowlist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/BrandonDHaskell/Janus/server/internal/janus/types"
)

// maxDocumentBytes caps a downloaded allow-list. National registries are in
// the tens of thousands of entries, well below this.
const maxDocumentBytes = 32 << 20

// Source fetches the latest published allow-list document.
type Source interface {
	Fetch(ctx context.Context) (types.AllowListDocument, error)
}

// HTTPSource downloads the document from the publisher's endpoint.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Fetch(ctx context.Context) (types.AllowListDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return types.AllowListDocument{}, fmt.Errorf("allow-list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return types.AllowListDocument{}, fmt.Errorf("allow-list fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.AllowListDocument{}, fmt.Errorf("allow-list fetch: unexpected status %d", resp.StatusCode)
	}

	return decodeDocument(io.LimitReader(resp.Body, maxDocumentBytes))
}

// FileSource reads the document from a local file, e.g. one dropped in place
// by a provisioning tool.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(_ context.Context) (types.AllowListDocument, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return types.AllowListDocument{}, fmt.Errorf("allow-list open: %w", err)
	}
	defer f.Close()
	return decodeDocument(io.LimitReader(f, maxDocumentBytes))
}

// Watch calls onChange (debounced) whenever the file is written or replaced.
// It blocks until ctx is cancelled.
func (s *FileSource) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("allow-list watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so atomic rename-into-place is seen.
	if err := w.Add(filepath.Dir(s.Path)); err != nil {
		return fmt.Errorf("allow-list watch %s: %w", s.Path, err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	name := filepath.Base(s.Path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("allow-list watch: %w", err)
		}
	}
}

func decodeDocument(r io.Reader) (types.AllowListDocument, error) {
	var doc types.AllowListDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return types.AllowListDocument{}, fmt.Errorf("allow-list decode: %w", err)
	}
	return doc, nil
}
