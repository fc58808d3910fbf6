package middleware

import (
	"context"
	"strings"
	"time"

	"guild-music/internal/command"
	"guild-music/internal/storage"
	"guild-music/pkg/cmd"

	"github.com/rs/zerolog"
)

// CommandHistory records executed commands per guild.
type CommandHistory interface {
	AppendCommand(guildID string, rec storage.CommandRecord) error
}

// WithCommandLogger logs every command and appends it to the guild history.
// history may be nil.
func WithCommandLogger(history CommandHistory, logger zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			mc, ok := command.FromInvocation(inv)
			if !ok {
				return err
			}
			msg := mc.Message
			param := strings.Join(inv.Args, " ")

			ev := logger.Info()
			if err != nil {
				ev = logger.Warn().Err(err)
			}
			ev.Str("guild", msg.GuildID()).
				Str("user", msg.AuthorName()).
				Str("command", c.Name()).
				Str("param", param).
				Dur("took", time.Since(start)).
				Msg("Command executed")

			if history != nil {
				rec := storage.CommandRecord{
					ChannelID: msg.Channel().ID(),
					UserID:    msg.AuthorID(),
					Username:  msg.AuthorName(),
					Command:   c.Name(),
					Param:     param,
					Datetime:  start,
				}
				if herr := history.AppendCommand(msg.GuildID(), rec); herr != nil {
					logger.Warn().Err(herr).Str("guild", msg.GuildID()).Str("command", c.Name()).Msg("Failed to record command")
				}
			}
			return err
		})
	}
}
