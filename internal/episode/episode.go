// Package episode defines the episode identity model shared by every
// pipeline component. An episode is identified by (show, publish date) and
// owns one working directory under the library root; it is created once by
// the fetch step and only gains artifacts afterwards.
package episode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"castpress/internal/textutil"
)

// DateLayout is the canonical publish-date format used in keys and metadata.
const DateLayout = "2006-01-02"

// Episode identifies one podcast episode and its source audio.
type Episode struct {
	Show        string    `json:"show"`
	Title       string    `json:"title,omitempty"`
	PublishDate time.Time `json:"publish_date"`
	// AudioSource is a local path or HTTP(S) URL for the original audio.
	AudioSource string `json:"audio_source"`
}

// Key returns the stable episode identifier: show slug plus publish date.
func (e Episode) Key() string {
	slug := textutil.Slug(e.Show)
	if slug == "" {
		slug = "episode"
	}
	return fmt.Sprintf("%s-%s", slug, e.PublishDate.Format(DateLayout))
}

// Workdir resolves the episode working directory under the library root.
func (e Episode) Workdir(libraryDir string) string {
	return filepath.Join(libraryDir, e.Key())
}

// Validate ensures the episode identity is complete.
func (e Episode) Validate() error {
	if strings.TrimSpace(e.Show) == "" {
		return errors.New("episode: show is required")
	}
	if e.PublishDate.IsZero() {
		return errors.New("episode: publish date is required")
	}
	if strings.TrimSpace(e.AudioSource) == "" {
		return errors.New("episode: audio source is required")
	}
	return nil
}

// ParseDate parses a publish date in the canonical layout.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("episode: parse date %q: %w", value, err)
	}
	return parsed, nil
}
