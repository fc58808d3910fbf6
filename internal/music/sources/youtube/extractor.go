package youtube

import (
	"regexp"
)

var videoURLPattern = regexp.MustCompile(`(?:youtube\.com/\S*(?:(?:/e(?:mbed))?/|watch/?\?(?:\S*?&?v=))|youtu\.be/)([a-zA-Z0-9_-]{6,11})`)

// Extractor finds YouTube video links in free text.
type Extractor struct{}

// Extract returns the canonical watch URL of the first video link in text.
func (Extractor) Extract(text string) (string, bool) {
	id, ok := VideoID(text)
	if !ok {
		return "", false
	}
	return WatchURL(id), true
}

// VideoID returns the id of the first video link in text.
func VideoID(text string) (string, bool) {
	m := videoURLPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
