package middleware

import (
	"context"
	"fmt"

	"guild-music/internal/command"
	"guild-music/pkg/cmd"
)

const (
	msgJoinVoiceFirst  = "Please be in a voice channel first!"
	msgNeedPermissions = "I need the permissions to join and speak in your voice channel!"
)

// WithVoiceCheck aborts unless the author is in a voice channel the bot can
// join and speak in. On success the channel is stored in the context.
func WithVoiceCheck() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			mc, ok := command.FromInvocation(inv)
			if !ok {
				return fmt.Errorf("%s: unexpected invocation data %T", c.Name(), inv.Data)
			}
			msg := mc.Message

			vc, ok := msg.VoiceChannel()
			if !ok {
				return msg.Reply(msgJoinVoiceFirst)
			}

			allowed, err := msg.CanConnectAndSpeak(vc.ID())
			if err != nil {
				return fmt.Errorf("voice permissions: %w", err)
			}
			if !allowed {
				return msg.Channel().Send(msgNeedPermissions)
			}

			mc.Voice = vc
			return c.Run(ctx, inv)
		})
	}
}
