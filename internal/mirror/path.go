package mirror

import (
	"fmt"
	"regexp"
	"strings"
)

// mirrorPathPattern captures everything between the scheme and the last path
// segment. The leaf must be non-empty.
var mirrorPathPattern = regexp.MustCompile(`^https?://(.+)/([^/]+)$`)

// MapToDirectory returns the mirror directory for rawURL: host plus
// intermediate path segments, without the scheme and the final segment.
func MapToDirectory(rawURL string) (string, error) {
	caps := mirrorPathPattern.FindStringSubmatch(rawURL)
	if caps == nil {
		return "", fmt.Errorf("%w: %q", ErrPathExtraction, rawURL)
	}
	return caps[1], nil
}

// LeafName returns the substring after the last '/', or rawURL unchanged
// when it holds no '/'.
func LeafName(rawURL string) string {
	idx := strings.LastIndex(rawURL, "/")
	if idx < 0 {
		return rawURL
	}
	return rawURL[idx+1:]
}

func joinMirrorPath(parts ...string) string {
	return strings.Join(parts, "/")
}
