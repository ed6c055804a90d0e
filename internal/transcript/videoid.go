package transcript

import (
	"fmt"
	"regexp"
)

var videoIDRegex = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ParseVideoID extracts the 11-character video ID from a YouTube URL.
// Watch, embed, /v/, /e/ and youtu.be forms are accepted; the v= parameter
// may appear anywhere in the query.
func ParseVideoID(ref string) (string, error) {
	m := videoIDRegex.FindStringSubmatch(ref)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return m[1], nil
}
