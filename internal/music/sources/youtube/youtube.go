package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"guild-music/internal/music/sources"
	"guild-music/pkg/retrylimit"

	ytdl "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"
)

const SourceYouTube = sources.SourceYouTube

var (
	ErrInvalidURL     = errors.New("not a YouTube video link")
	ErrNoAudioFormats = errors.New("no audio formats found for video")
)

// Options configures the YouTube source.
type Options struct {
	Proxy       string
	MaxAttempts int
}

// Source resolves and streams YouTube videos through kkdai/youtube.
type Source struct {
	client  *ytdl.Client
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
	log     zerolog.Logger
}

var _ sources.Source = (*Source)(nil)

func New(opts Options, logger zerolog.Logger) (*Source, error) {
	httpClient, err := newHTTPClient(opts.Proxy)
	if err != nil {
		return nil, err
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}

	retry := retrylimit.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxAttempts

	return &Source{
		client:  &ytdl.Client{HTTPClient: httpClient},
		limiter: retrylimit.NewAdaptiveLimiter(5, 1, 10, 1, 0.5),
		retry:   retry,
		log:     logger.With().Str("component", "youtube").Logger(),
	}, nil
}

func (s *Source) SourceName() string { return SourceYouTube }

func (s *Source) Match(input string) bool {
	_, ok := VideoID(input)
	return ok
}

// Resolve looks up title and canonical URL of a video.
func (s *Source) Resolve(ctx context.Context, url string) (sources.TrackInfo, error) {
	video, err := s.video(ctx, url)
	if err != nil {
		return sources.TrackInfo{}, err
	}
	s.log.Debug().Str("id", video.ID).Str("title", video.Title).Dur("duration", video.Duration).Msg("Resolved video")
	return sources.TrackInfo{
		URL:        WatchURL(video.ID),
		Title:      video.Title,
		SourceName: SourceYouTube,
		Duration:   video.Duration,
	}, nil
}

// Stream opens the best audio-only format of a video. The stream ends when
// ctx is cancelled.
func (s *Source) Stream(ctx context.Context, url string) (io.ReadCloser, error) {
	video, err := s.video(ctx, url)
	if err != nil {
		return nil, err
	}

	format, ok := bestAudioFormat(video.Formats)
	if !ok {
		return nil, fmt.Errorf("%s: %w", video.ID, ErrNoAudioFormats)
	}

	stream, size, err := s.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", video.ID, err)
	}
	s.log.Debug().Str("id", video.ID).Str("mime", format.MimeType).Int64("size", size).Msg("Opened audio stream")
	return stream, nil
}

func (s *Source) video(ctx context.Context, url string) (*ytdl.Video, error) {
	id, ok := VideoID(url)
	if !ok {
		return nil, fmt.Errorf("%q: %w", url, ErrInvalidURL)
	}

	var video *ytdl.Video
	err := retrylimit.WithRetryConfig(ctx, func() error {
		v, err := s.client.GetVideoContext(ctx, id)
		if err != nil {
			if isPermanent(err) {
				return &retrylimit.FatalError{Err: err}
			}
			return err
		}
		video = v
		return nil
	}, s.limiter, s.retry)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	return video, nil
}

// isPermanent reports errors a retry cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ytdl.ErrVideoPrivate) ||
		errors.Is(err, ytdl.ErrLoginRequired) ||
		errors.Is(err, ytdl.ErrNotPlayableInEmbed)
}

// bestAudioFormat prefers audio-only formats with the highest bitrate and
// falls back to any format carrying audio.
func bestAudioFormat(formats ytdl.FormatList) (*ytdl.Format, bool) {
	var best *ytdl.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || f.Bitrate > best.Bitrate {
			best = f
		}
	}
	if best != nil {
		return best, true
	}

	withAudio := formats.WithAudioChannels()
	if len(withAudio) == 0 {
		return nil, false
	}
	return &withAudio[0], true
}
