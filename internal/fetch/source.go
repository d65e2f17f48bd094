package fetch

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedSource marks a source fragment that does not resolve to
	// a fetchable video id.
	ErrUnsupportedSource = errors.New("unsupported source")
	// ErrSourceUnavailable marks a source that looked valid but could not
	// be downloaded.
	ErrSourceUnavailable = errors.New("source unavailable")
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// CanonicalSource normalizes a source fragment from a card into a bare
// eleven character video id. Equivalent spellings of the same video must
// canonicalize identically so in-flight fetches coalesce. Accepted forms
// are the raw id, youtu.be short links, and full watch/shorts/embed URLs.
func CanonicalSource(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty source fragment", ErrUnsupportedSource)
	}
	if videoIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	parsed, err := url.Parse(candidate)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: %q is not a video id or URL", ErrUnsupportedSource, trimmed)
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch host {
	case "youtu.be":
		if id := strings.Trim(parsed.Path, "/"); videoIDPattern.MatchString(id) {
			return id, nil
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := parsed.Query().Get("v"); videoIDPattern.MatchString(id) {
			return id, nil
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(parsed.Path, prefix); ok {
				id := strings.Trim(rest, "/")
				if videoIDPattern.MatchString(id) {
					return id, nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: cannot extract video id from %q", ErrUnsupportedSource, trimmed)
}
