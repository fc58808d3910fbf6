package stream

import (
	"context"
	"fmt"
	"io"
	"sync"

	"guild-music/internal/music/voice"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Streamer opens the raw audio bytes of a track.
type Streamer interface {
	Stream(ctx context.Context, url string) (io.ReadCloser, error)
}

// Connection plays tracks over a Discord voice connection.
type Connection struct {
	vc       *discordgo.VoiceConnection
	streamer Streamer
	log      zerolog.Logger

	mu     sync.Mutex
	active int
}

func NewConnection(vc *discordgo.VoiceConnection, streamer Streamer, logger zerolog.Logger) *Connection {
	return &Connection{
		vc:       vc,
		streamer: streamer,
		log:      logger.With().Str("component", "voice").Str("guild", vc.GuildID).Logger(),
	}
}

// Play streams url into the voice connection.
func (c *Connection) Play(url string, events voice.EventHandler) (voice.Dispatcher, error) {
	c.vc.RLock()
	ready := c.vc.Ready
	c.vc.RUnlock()
	if !ready {
		return nil, voice.ErrNotConnected
	}

	open := func(ctx context.Context) (io.ReadCloser, error) {
		src, err := c.streamer.Stream(ctx, url)
		if err != nil {
			return nil, err
		}
		return Decode(ctx, src)
	}

	c.speaking(1)
	d := Start(open, c.vc.OpusSend, func(ev voice.Event) {
		if ev.Type != voice.EventStart {
			c.speaking(-1)
		}
		events(ev)
	})
	return d, nil
}

func (c *Connection) Disconnect() error {
	if err := c.vc.Disconnect(); err != nil {
		return fmt.Errorf("voice disconnect: %w", err)
	}
	return nil
}

// speaking keeps the speaking flag set while any stream is active. A skipped
// track may end after the next one has started.
func (c *Connection) speaking(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.active > 0
	c.active += delta
	if now := c.active > 0; now != was {
		if err := c.vc.Speaking(now); err != nil {
			c.log.Warn().Err(err).Bool("speaking", now).Msg("Failed to set speaking state")
		}
	}
}
