package discord

import (
	"context"
	"fmt"

	"guild-music/internal/command"
	"guild-music/internal/music/stream"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentMessageContent

// Bot connects the command handler to a Discord gateway session.
type Bot struct {
	dg       *discordgo.Session
	handler  *command.Handler
	streamer stream.Streamer
	log      zerolog.Logger
	ctx      context.Context
	shutdown []func()
}

func NewBot(token string, handler *command.Handler, streamer stream.Streamer, logger zerolog.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = intents

	return &Bot{
		dg:       dg,
		handler:  handler,
		streamer: streamer,
		log:      logger.With().Str("component", "discord").Logger(),
	}, nil
}

// OnShutdown registers fn to run after ctx is done and before the gateway
// closes.
func (b *Bot) OnShutdown(fn func()) {
	b.shutdown = append(b.shutdown, fn)
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing gateway")
	for _, fn := range b.shutdown {
		fn()
	}
	if err := b.dg.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	msg := newMessage(s, m, b.streamer, b.log)
	handled, err := b.handler.Handle(b.ctx, msg)
	if err != nil {
		b.log.Error().Err(err).Str("guild", m.GuildID).Str("user", m.Author.ID).Str("content", m.Content).Msg("Command failed")
		return
	}
	if handled {
		b.log.Debug().Str("guild", m.GuildID).Str("content", m.Content).Msg("Command handled")
	}
}
