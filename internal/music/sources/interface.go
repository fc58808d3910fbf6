package sources

import (
	"context"
	"io"
)

type Source interface {
	// Match checks if this source can handle the given input
	Match(input string) bool

	// Resolve looks up title and canonical URL of a track
	Resolve(ctx context.Context, url string) (TrackInfo, error)

	// Stream opens the encoded audio of a track
	Stream(ctx context.Context, url string) (io.ReadCloser, error)

	// SourceName returns the string identifier ("youtube", etc.)
	SourceName() string
}
