package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"guild-music/internal/music/session"
	"guild-music/internal/music/voice"

	"github.com/rs/zerolog"
)

// volumeReference is the session volume that maps to unity gain.
const volumeReference = 5.0

const (
	msgStartPlaying  = "Start playing: **%s**"
	msgResumePlaying = "Resume playing: **%s**"
	msgPausePlaying  = "Pause playing: **%s**"
	msgAlreadyPlay   = "Already playing"
	msgAlreadyPaused = "Already paused the song!"
	msgStopPlaying   = "Stop playing"
	msgAdded         = "%s has been added to the queue"
	msgNoSongs       = "There are no songs in queue!"
	msgQueueEmpty    = "Music queue is empty!"
	msgLastSong      = "The song is the last one!"
	msgNothingToStop = "Nothing is playing."
	msgConnecting    = "Still connecting to the voice channel, try again in a moment."
	msgPlayFailed    = "Failed to play **%s**: %v"
	msgStreamError   = "Playback of **%s** failed, moving on."
	msgJoinFailed    = "Failed to join the voice channel: %v"
	msgResolveFailed = "Failed to load the track: %v"
	msgVolumeSet     = "Volume set to %d"
)

var (
	ErrEmptyQueue = errors.New("no songs in queue")
	ErrClosed     = errors.New("player is closed")
)

// Settings stores per-guild preferences that outlive a session.
type Settings interface {
	Volume(guildID string) int
	SetVolume(guildID string, volume int) error
}

// Player owns every guild session. Work for one guild runs on that guild's
// mailbox goroutine, so session state is never touched concurrently.
type Player struct {
	store    *session.Store
	settings Settings
	log      zerolog.Logger

	mu     sync.Mutex
	boxes  map[string]*mailbox
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Player. settings may be nil.
func New(settings Settings, logger zerolog.Logger) *Player {
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		store:    session.NewStore(),
		settings: settings,
		log:      logger.With().Str("component", "player").Logger(),
		boxes:    make(map[string]*mailbox),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Player) mailbox(guildID string) *mailbox {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, ok := p.boxes[guildID]; ok {
		return m
	}
	m := newMailbox()
	p.boxes[guildID] = m
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		m.run(p.ctx)
	}()
	return m
}

func (p *Player) post(guildID string, fn func()) {
	p.mailbox(guildID).post(fn)
}

// do runs fn on the guild mailbox and waits for it to finish.
// It must not be called from a mailbox goroutine.
func (p *Player) do(ctx context.Context, guildID string, fn func()) error {
	if p.ctx.Err() != nil {
		return ErrClosed
	}
	done := make(chan struct{})
	p.post(guildID, func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrClosed
	}
}

func (p *Player) volume(guildID string) int {
	if p.settings == nil {
		return session.DefaultVolume
	}
	if v := p.settings.Volume(guildID); v > 0 {
		return v
	}
	return session.DefaultVolume
}

func (p *Player) send(ch voice.TextChannel, guildID, format string, args ...any) {
	if ch == nil {
		return
	}
	text := format
	if len(args) > 0 {
		text = fmt.Sprintf(format, args...)
	}
	if err := ch.Send(text); err != nil {
		p.log.Warn().Err(err).Str("guild", guildID).Str("channel", ch.ID()).Msg("Failed to send status message")
	}
}

// Enqueue appends song to the guild queue. When the queue was empty it
// joins vc and starts playback before returning.
func (p *Player) Enqueue(ctx context.Context, guildID string, text voice.TextChannel, vc voice.VoiceChannel, song session.Song) error {
	var (
		pending *session.Session
		volume  = p.volume(guildID)
	)

	err := p.do(ctx, guildID, func() {
		if ctx.Err() != nil {
			return
		}
		s, ok := p.store.Get(guildID)
		if !ok {
			s = session.New(text, volume)
		}
		s.Songs = append(s.Songs, song)
		p.store.Set(guildID, s)

		if len(s.Songs) == 1 {
			s.VoiceChannel = vc
			pending = s
			return
		}
		p.log.Info().Str("guild", guildID).Str("title", song.Title).Int("queue_len", len(s.Songs)).Msg("Track queued")
		p.send(s.TextChannel, guildID, msgAdded, song.Title)
	})
	if err != nil {
		if !errors.Is(err, ErrClosed) {
			// The closure may still run after ctx expired. A session it
			// created would wait for a join that never happens.
			p.post(guildID, func() {
				if pending != nil && pending.Connection == nil && p.store.Has(guildID, pending) {
					p.release(guildID, pending)
				}
			})
		}
		return err
	}
	if pending == nil {
		return nil
	}

	p.log.Info().Str("guild", guildID).Str("channel", vc.ID()).Msg("Joining voice channel")
	conn, joinErr := vc.Join(ctx)

	err = p.do(ctx, guildID, func() {
		current := p.store.Has(guildID, pending)
		if joinErr != nil {
			p.log.Error().Err(joinErr).Str("guild", guildID).Msg("Failed to join voice channel")
			if current {
				p.release(guildID, pending)
			}
			p.send(pending.TextChannel, guildID, msgJoinFailed, joinErr)
			return
		}
		if !current {
			// stopped while joining
			p.log.Info().Str("guild", guildID).Msg("Session gone before voice join completed")
			if err := conn.Disconnect(); err != nil {
				p.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to disconnect")
			}
			return
		}
		if pending.Connection == nil {
			pending.Connection = conn
		}
		p.play(guildID, pending)
	})
	if err != nil {
		return err
	}
	if joinErr != nil {
		return fmt.Errorf("join voice channel: %w", joinErr)
	}
	return nil
}

// Resume continues playback of the head track. It returns ErrEmptyQueue
// when the guild has nothing queued.
func (p *Player) Resume(ctx context.Context, guildID string, text voice.TextChannel) error {
	empty := false
	err := p.do(ctx, guildID, func() {
		s, ok := p.store.Get(guildID)
		if !ok || len(s.Songs) == 0 {
			empty = true
			return
		}
		p.play(guildID, s)
	})
	if err != nil {
		return err
	}
	if empty {
		return ErrEmptyQueue
	}
	return nil
}

// Pause pauses the active stream.
func (p *Player) Pause(ctx context.Context, guildID string, text voice.TextChannel) error {
	return p.do(ctx, guildID, func() {
		s, ok := p.store.Get(guildID)
		if !ok || len(s.Songs) == 0 {
			p.send(text, guildID, msgNoSongs)
			return
		}
		if !s.Playing || s.Dispatcher == nil {
			p.send(s.TextChannel, guildID, msgAlreadyPaused)
			return
		}
		s.Dispatcher.Pause()
		s.Playing = false
		p.send(s.TextChannel, guildID, msgPausePlaying, s.Songs[0].Title)
	})
}

// Skip ends the head track and advances. A single queued track is never
// skipped.
func (p *Player) Skip(ctx context.Context, guildID string, text voice.TextChannel) error {
	return p.do(ctx, guildID, func() {
		s, ok := p.store.Get(guildID)
		switch {
		case !ok || len(s.Songs) == 0:
			p.send(text, guildID, msgQueueEmpty)
		case len(s.Songs) == 1:
			p.send(text, guildID, msgLastSong)
		case s.Dispatcher == nil:
			p.send(text, guildID, msgConnecting)
		default:
			p.log.Info().Str("guild", guildID).Str("title", s.Songs[0].Title).Msg("Skipping track")
			p.advance(guildID, s)
		}
	})
}

// Stop ends playback, clears the queue and leaves the voice channel.
func (p *Player) Stop(ctx context.Context, guildID string, text voice.TextChannel) error {
	return p.do(ctx, guildID, func() {
		s, ok := p.store.Get(guildID)
		if !ok {
			p.send(text, guildID, msgNothingToStop)
			return
		}
		p.stop(guildID, s)
	})
}

// Fail drops the guild session after a track could not be resolved.
func (p *Player) Fail(ctx context.Context, guildID string, text voice.TextChannel, cause error) error {
	return p.do(ctx, guildID, func() {
		p.log.Error().Err(cause).Str("guild", guildID).Msg("Track resolution failed")
		if s, ok := p.store.Get(guildID); ok {
			p.endDispatcher(s)
			p.release(guildID, s)
		}
		p.send(text, guildID, msgResolveFailed, cause)
	})
}

// SetVolume changes the guild volume for the current and future sessions.
func (p *Player) SetVolume(ctx context.Context, guildID string, text voice.TextChannel, volume int) error {
	if p.settings != nil {
		if err := p.settings.SetVolume(guildID, volume); err != nil {
			p.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to persist volume")
		}
	}
	return p.do(ctx, guildID, func() {
		if s, ok := p.store.Get(guildID); ok {
			s.Volume = volume
			if s.Dispatcher != nil {
				s.Dispatcher.SetVolumeLogarithmic(float64(volume) / volumeReference)
			}
		}
		p.send(text, guildID, msgVolumeSet, volume)
	})
}

// Snapshot returns a copy of the guild session.
func (p *Player) Snapshot(ctx context.Context, guildID string) (session.Info, bool, error) {
	var (
		info  session.Info
		found bool
	)
	err := p.do(ctx, guildID, func() {
		if s, ok := p.store.Get(guildID); ok {
			info, found = s.Info(guildID), true
		}
	})
	return info, found, err
}

// Snapshots returns a copy of every session.
func (p *Player) Snapshots(ctx context.Context) ([]session.Info, error) {
	ids := p.store.GuildIDs()
	out := make([]session.Info, 0, len(ids))
	for _, id := range ids {
		info, ok, err := p.Snapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info)
		}
	}
	return out, nil
}

// Queue returns the queued songs of a guild, head first.
func (p *Player) Queue(ctx context.Context, guildID string) ([]session.Song, error) {
	info, _, err := p.Snapshot(ctx, guildID)
	return info.Songs, err
}

// Shutdown tears every session down without status messages and stops the
// mailboxes.
func (p *Player) Shutdown(ctx context.Context) {
	for _, id := range p.store.GuildIDs() {
		err := p.do(ctx, id, func() {
			if s, ok := p.store.Get(id); ok {
				p.endDispatcher(s)
				p.release(id, s)
			}
		})
		if err != nil {
			p.log.Warn().Err(err).Str("guild", id).Msg("Failed to tear down session")
		}
	}
	p.cancel()
	p.wg.Wait()
}

// play is the playback transition for the head of the queue.
func (p *Player) play(guildID string, s *session.Session) {
	head, ok := s.Head()
	if !ok {
		p.log.Info().Str("guild", guildID).Msg("Queue drained, leaving voice channel")
		p.release(guildID, s)
		return
	}

	if s.Dispatcher != nil {
		if s.Playing {
			p.send(s.TextChannel, guildID, msgAlreadyPlay)
			return
		}
		s.Dispatcher.Resume()
		s.Playing = true
		p.send(s.TextChannel, guildID, msgResumePlaying, head.Title)
		return
	}

	if s.Connection == nil {
		p.send(s.TextChannel, guildID, msgConnecting)
		return
	}

	var d voice.Dispatcher
	d, err := s.Connection.Play(head.URL, func(ev voice.Event) {
		p.post(guildID, func() { p.handle(guildID, s, d, ev) })
	})
	if err != nil {
		p.log.Error().Err(err).Str("guild", guildID).Str("title", head.Title).Msg("Failed to start stream")
		p.send(s.TextChannel, guildID, msgPlayFailed, head.Title, err)
		s.Shift()
		p.play(guildID, s)
		return
	}

	d.SetVolumeLogarithmic(float64(s.Volume) / volumeReference)
	s.Dispatcher = d
	p.log.Info().Str("guild", guildID).Str("title", head.Title).Str("url", head.URL).Msg("Start playing")
	p.send(s.TextChannel, guildID, msgStartPlaying, head.Title)
}

// handle applies a dispatcher event. Events from a dispatcher that no longer
// drives the current session are dropped.
func (p *Player) handle(guildID string, s *session.Session, d voice.Dispatcher, ev voice.Event) {
	if !p.store.Has(guildID, s) || s.Dispatcher != d {
		p.log.Debug().Str("guild", guildID).Stringer("event", ev.Type).Msg("Ignoring stale stream event")
		return
	}

	switch ev.Type {
	case voice.EventStart:
		s.Playing = true
	case voice.EventFinish:
		p.advance(guildID, s)
	case voice.EventStop:
		p.stop(guildID, s)
	case voice.EventError:
		title := ""
		if head, ok := s.Head(); ok {
			title = head.Title
		}
		p.log.Error().Err(ev.Err).Str("guild", guildID).Str("title", title).Msg("Stream error")
		p.send(s.TextChannel, guildID, msgStreamError, title)
		p.advance(guildID, s)
	}
}

// advance drops the head track and plays the next one.
func (p *Player) advance(guildID string, s *session.Session) {
	p.endDispatcher(s)
	s.Shift()
	p.play(guildID, s)
}

func (p *Player) stop(guildID string, s *session.Session) {
	p.endDispatcher(s)
	p.log.Info().Str("guild", guildID).Msg("Stop playing")
	p.send(s.TextChannel, guildID, msgStopPlaying)
	p.release(guildID, s)
}

func (p *Player) endDispatcher(s *session.Session) {
	d := s.Dispatcher
	s.Dispatcher = nil
	s.Playing = false
	if d != nil {
		d.End()
	}
}

// release leaves the voice channel and forgets the session.
func (p *Player) release(guildID string, s *session.Session) {
	if s.Connection != nil {
		if err := s.Connection.Disconnect(); err != nil {
			p.log.Warn().Err(err).Str("guild", guildID).Msg("Failed to disconnect")
		}
	}
	s.Reset()
	p.store.Delete(guildID)
}
