package sources

import "time"

const SourceYouTube = "youtube"

// TrackInfo is resolved track metadata.
type TrackInfo struct {
	URL        string
	Title      string
	SourceName string
	Duration   time.Duration
}
