package session

import (
	"slices"

	"guild-music/internal/music/voice"
)

const DefaultVolume = 5

// Song is a queued track.
type Song struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Session is the queue and playback state of one guild.
type Session struct {
	TextChannel  voice.TextChannel
	VoiceChannel voice.VoiceChannel
	Connection   voice.Connection
	Dispatcher   voice.Dispatcher
	Songs        []Song
	Volume       int
	Playing      bool
}

// New returns an empty session reporting to text.
func New(text voice.TextChannel, volume int) *Session {
	if volume <= 0 {
		volume = DefaultVolume
	}
	return &Session{
		TextChannel: text,
		Songs:       make([]Song, 0),
		Volume:      volume,
	}
}

// Head returns the currently playing or next-to-play song.
func (s *Session) Head() (Song, bool) {
	if len(s.Songs) == 0 {
		return Song{}, false
	}
	return s.Songs[0], true
}

// Shift drops the head song.
func (s *Session) Shift() {
	if len(s.Songs) > 0 {
		s.Songs = s.Songs[1:]
	}
}

// Reset clears queue and playback state. The caller is responsible for
// ending the dispatcher and releasing the connection first.
func (s *Session) Reset() {
	s.Songs = nil
	s.Playing = false
	s.Dispatcher = nil
	s.Connection = nil
	s.VoiceChannel = nil
}

// Info is a read-only view of a session.
type Info struct {
	GuildID   string `json:"guild_id"`
	Songs     []Song `json:"songs"`
	Volume    int    `json:"volume"`
	Playing   bool   `json:"playing"`
	Loaded    bool   `json:"loaded"`
	Connected bool   `json:"connected"`
}

// Info copies the session state.
func (s *Session) Info(guildID string) Info {
	return Info{
		GuildID:   guildID,
		Songs:     slices.Clone(s.Songs),
		Volume:    s.Volume,
		Playing:   s.Playing,
		Loaded:    s.Dispatcher != nil,
		Connected: s.Connection != nil,
	}
}
