// Package command adapts chat messages to pkg/cmd commands.
package command

import (
	"context"
	"strings"

	"guild-music/internal/music/voice"
	"guild-music/pkg/cmd"

	"github.com/rs/zerolog"
)

// Message is a chat message posted in a guild text channel.
type Message interface {
	GuildID() string
	AuthorID() string
	AuthorName() string
	Content() string
	Channel() voice.TextChannel
	// Reply answers the author directly.
	Reply(text string) error
	// VoiceChannel returns the voice channel the author is connected to.
	VoiceChannel() (voice.VoiceChannel, bool)
	// CanConnectAndSpeak reports whether the bot may join and speak in the
	// voice channel.
	CanConnectAndSpeak(voiceChannelID string) (bool, error)
}

// MessageContext is the Invocation payload for message commands.
type MessageContext struct {
	Message Message
	// Voice is the author's voice channel, set by the voice check middleware.
	Voice voice.VoiceChannel
}

// FromInvocation extracts the MessageContext carried by inv.
func FromInvocation(inv *cmd.Invocation) (*MessageContext, bool) {
	mc, ok := inv.Data.(*MessageContext)
	return mc, ok && mc != nil && mc.Message != nil
}

// Handler dispatches prefixed messages to registered commands.
type Handler struct {
	prefix   string
	registry *cmd.Registry
	log      zerolog.Logger
}

func NewHandler(prefix string, registry *cmd.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		prefix:   prefix,
		registry: registry,
		log:      logger.With().Str("component", "command").Logger(),
	}
}

// Parse splits content into a command name and its arguments.
func (h *Handler) Parse(content string) (string, []string, bool) {
	if !strings.HasPrefix(content, h.prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, h.prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Handle runs the command named in msg. It reports whether msg was a known
// command.
func (h *Handler) Handle(ctx context.Context, msg Message) (bool, error) {
	name, args, ok := h.Parse(msg.Content())
	if !ok {
		return false, nil
	}
	c := h.registry.Get(name)
	if c == nil {
		return false, nil
	}

	h.log.Debug().Str("guild", msg.GuildID()).Str("user", msg.AuthorID()).Str("command", name).Strs("args", args).Msg("Running command")
	inv := &cmd.Invocation{Args: args, Data: &MessageContext{Message: msg}}
	return true, c.Run(ctx, inv)
}
