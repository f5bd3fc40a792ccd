package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"castpress/internal/artifact"
	"castpress/internal/command"
	"castpress/internal/episode"
	"castpress/internal/fileutil"
	"castpress/internal/services"
)

// Meta is the episode-meta artifact payload written by the fetch step. It is
// the root of the episode's artifact lineage; every later step can recover
// the source audio location from it.
type Meta struct {
	episode.Episode
	SourceFile string    `json:"source_file"`
	SizeBytes  int64     `json:"size_bytes"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// HTTPDoer describes the HTTP client used for remote audio sources.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetch materializes the episode's source audio in the working directory.
type Fetch struct {
	store      *artifact.Store
	ep         episode.Episode
	httpClient HTTPDoer
	now        func() time.Time
}

// FetchOption customizes the fetch adapter.
type FetchOption func(*Fetch)

// WithFetchHTTPClient overrides the HTTP client used for downloads.
func WithFetchHTTPClient(client HTTPDoer) FetchOption {
	return func(f *Fetch) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithFetchClock overrides the timestamp source (useful for tests).
func WithFetchClock(now func() time.Time) FetchOption {
	return func(f *Fetch) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetch builds the fetch adapter for one episode.
func NewFetch(store *artifact.Store, ep episode.Episode, opts ...FetchOption) *Fetch {
	fetch := &Fetch{
		store:      store,
		ep:         ep,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(fetch)
	}
	return fetch
}

var _ command.Runner = (*Fetch)(nil)

// Run fetches the source audio into the working directory and returns the
// episode metadata document.
func (f *Fetch) Run(ctx context.Context, _ command.Request) (json.RawMessage, error) {
	if err := f.ep.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StepFetch, "validate episode", "", err)
	}
	if err := os.MkdirAll(f.store.Dir(), 0o755); err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepFetch, "ensure workdir", "", err)
	}

	name := sourceFileName(f.ep.AudioSource)
	dest := filepath.Join(f.store.Dir(), name)

	var size int64
	var err error
	if isRemoteSource(f.ep.AudioSource) {
		size, err = f.download(ctx, f.ep.AudioSource, dest)
	} else {
		size, err = f.copyLocal(f.ep.AudioSource, dest)
	}
	if err != nil {
		return nil, err
	}

	meta := Meta{
		Episode:    f.ep,
		SourceFile: name,
		SizeBytes:  size,
		FetchedAt:  f.now().UTC(),
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, services.Wrap(services.ErrStepFailed, StepFetch, "encode metadata", "", err)
	}
	return encoded, nil
}

func (f *Fetch) copyLocal(source, dest string) (int64, error) {
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, services.Wrap(services.ErrConfiguration, StepFetch, "locate source",
				fmt.Sprintf("audio source %q does not exist", source), nil)
		}
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "stat source", "", err)
	}
	if info.IsDir() {
		return 0, services.Wrap(services.ErrConfiguration, StepFetch, "locate source",
			fmt.Sprintf("audio source %q is a directory", source), nil)
	}
	if err := fileutil.CopyFileVerified(source, dest); err != nil {
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "copy source", "", err)
	}
	return info.Size(), nil
}

// download writes to a temp file and renames on success, so an interrupted
// download never leaves a partial file a rerun would mistake for the source.
func (f *Fetch) download(ctx context.Context, source, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, StepFetch, "build request", "", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, StepFetch, "download", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrTransient
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
			marker = services.ErrConfiguration
		}
		return 0, services.Wrap(marker, StepFetch, "download",
			fmt.Sprintf("%s returned %d", source, resp.StatusCode), nil)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "create temp file", "", err)
	}
	tmpName := tmp.Name()
	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, services.Wrap(services.ErrTransient, StepFetch, "download", "", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "sync download", "", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "close download", "", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return 0, services.Wrap(services.ErrStepFailed, StepFetch, "finalize download", "", err)
	}
	return size, nil
}

func isRemoteSource(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

func sourceFileName(source string) string {
	ext := ".mp3"
	if isRemoteSource(source) {
		if parsed, err := url.Parse(source); err == nil {
			if candidate := filepath.Ext(parsed.Path); candidate != "" {
				ext = candidate
			}
		}
	} else if candidate := filepath.Ext(source); candidate != "" {
		ext = candidate
	}
	return "source" + strings.ToLower(ext)
}
