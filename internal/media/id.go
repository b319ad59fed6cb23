// Package media resolves stable identifiers for source videos.
package media

import (
	"fmt"
	"regexp"
)

var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/v/|youtu\.be/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`^([a-zA-Z0-9_-]{11})$`),
}

// ExtractID returns the 11-character video id from a watch URL, a short URL,
// or a bare id. The id doubles as the MediaItem identity.
func ExtractID(url string) (string, error) {
	for _, p := range idPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("could not extract video id from %q", url)
}

// WatchURL rebuilds the canonical watch URL for an id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
