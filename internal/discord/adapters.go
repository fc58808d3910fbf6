package discord

import (
	"context"
	"fmt"

	"guild-music/internal/music/stream"
	"guild-music/internal/music/voice"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const voicePermissions = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// message adapts a MessageCreate event to command.Message.
type message struct {
	s        *discordgo.Session
	m        *discordgo.MessageCreate
	streamer stream.Streamer
	log      zerolog.Logger
}

func newMessage(s *discordgo.Session, m *discordgo.MessageCreate, streamer stream.Streamer, logger zerolog.Logger) *message {
	return &message{s: s, m: m, streamer: streamer, log: logger}
}

func (m *message) GuildID() string    { return m.m.GuildID }
func (m *message) AuthorID() string   { return m.m.Author.ID }
func (m *message) AuthorName() string { return m.m.Author.Username }
func (m *message) Content() string    { return m.m.Content }

func (m *message) Channel() voice.TextChannel {
	return &textChannel{s: m.s, id: m.m.ChannelID}
}

func (m *message) Reply(text string) error {
	if _, err := m.s.ChannelMessageSendReply(m.m.ChannelID, text, m.m.Reference()); err != nil {
		return fmt.Errorf("reply in %s: %w", m.m.ChannelID, err)
	}
	return nil
}

func (m *message) VoiceChannel() (voice.VoiceChannel, bool) {
	vs, err := m.s.State.VoiceState(m.m.GuildID, m.m.Author.ID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return nil, false
	}
	return &voiceChannel{
		s:        m.s,
		guildID:  m.m.GuildID,
		id:       vs.ChannelID,
		streamer: m.streamer,
		log:      m.log,
	}, true
}

func (m *message) CanConnectAndSpeak(channelID string) (bool, error) {
	perms, err := m.s.UserChannelPermissions(m.s.State.User.ID, channelID)
	if err != nil {
		return false, fmt.Errorf("permissions in %s: %w", channelID, err)
	}
	return hasVoicePermissions(perms), nil
}

func hasVoicePermissions(perms int64) bool {
	return perms&voicePermissions == voicePermissions
}

type textChannel struct {
	s  *discordgo.Session
	id string
}

func (t *textChannel) ID() string { return t.id }

func (t *textChannel) Send(text string) error {
	if _, err := t.s.ChannelMessageSend(t.id, text); err != nil {
		return fmt.Errorf("send to %s: %w", t.id, err)
	}
	return nil
}

func (t *textChannel) SendEmbed(e *discordgo.MessageEmbed) error {
	if _, err := t.s.ChannelMessageSendEmbed(t.id, e); err != nil {
		return fmt.Errorf("send embed to %s: %w", t.id, err)
	}
	return nil
}

type voiceChannel struct {
	s        *discordgo.Session
	guildID  string
	id       string
	streamer stream.Streamer
	log      zerolog.Logger
}

func (v *voiceChannel) ID() string { return v.id }

// Join connects to the channel deafened. A join that completes after ctx
// is done is disconnected again.
func (v *voiceChannel) Join(ctx context.Context) (voice.Connection, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	ch := make(chan result, 1)
	go func() {
		vc, err := v.s.ChannelVoiceJoin(v.guildID, v.id, false, true)
		ch <- result{vc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if r.vc != nil {
				r.vc.Disconnect()
			}
			return nil, fmt.Errorf("join voice channel %s: %w", v.id, r.err)
		}
		return stream.NewConnection(r.vc, v.streamer, v.log), nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.vc != nil {
				r.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}
