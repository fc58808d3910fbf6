// Package music implements the chat commands that drive the guild player.
package music

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guild-music/internal/command"
	"guild-music/internal/music/player"
	"guild-music/internal/music/session"
	"guild-music/internal/music/sources"
	"guild-music/internal/music/voice"
	"guild-music/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/rs/zerolog"
)

const EmbedColor = 0xb01e66

const (
	msgProvideLink   = "Please provide a YouTube link!"
	msgVolumeUsage   = "Usage: `volume <1-10>`"
	msgQueueNothing  = "Music queue is empty!"
	defaultTimeout   = 30 * time.Second
	minVolume        = 1
	maxVolume        = 10
	queueFieldsLimit = 10
)

var errNoContext = errors.New("missing message context")

// Player is the playback engine the commands drive.
type Player interface {
	Enqueue(ctx context.Context, guildID string, text voice.TextChannel, vc voice.VoiceChannel, song session.Song) error
	Resume(ctx context.Context, guildID string, text voice.TextChannel) error
	Pause(ctx context.Context, guildID string, text voice.TextChannel) error
	Skip(ctx context.Context, guildID string, text voice.TextChannel) error
	Stop(ctx context.Context, guildID string, text voice.TextChannel) error
	Fail(ctx context.Context, guildID string, text voice.TextChannel, cause error) error
	SetVolume(ctx context.Context, guildID string, text voice.TextChannel, volume int) error
	Snapshot(ctx context.Context, guildID string) (session.Info, bool, error)
}

// Resolver looks up track metadata.
type Resolver interface {
	Resolve(ctx context.Context, url string) (sources.TrackInfo, error)
}

// Extractor finds a track URL in free text.
type Extractor interface {
	Extract(text string) (string, bool)
}

// EmbedSender is implemented by text channels that can post embeds.
type EmbedSender interface {
	SendEmbed(e *discordgo.MessageEmbed) error
}

// Deps are shared by all music commands.
type Deps struct {
	Player    Player
	Resolver  Resolver
	Extractor Extractor
	// Timeout bounds track resolution and the voice join.
	Timeout time.Duration
	Log     zerolog.Logger
}

func (d *Deps) timeout() time.Duration {
	if d.Timeout <= 0 {
		return defaultTimeout
	}
	return d.Timeout
}

// Commands returns every music command.
func Commands(deps *Deps) []cmd.Command {
	return []cmd.Command{
		&PlayCommand{deps},
		&PauseCommand{deps},
		&SkipCommand{deps},
		&StopCommand{deps},
		&QueueCommand{deps},
		&VolumeCommand{deps},
	}
}

// VoiceCommands reports which commands need the author in a voice channel.
func VoiceCommands() map[string]bool {
	return map[string]bool{"play": true, "pause": true, "skip": true, "stop": true}
}

type PlayCommand struct{ *Deps }

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a YouTube link, or resume the queue" }

func (c *PlayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	msg := mc.Message
	guildID, text := msg.GuildID(), msg.Channel()

	if len(inv.Args) == 0 {
		err := c.Player.Resume(ctx, guildID, text)
		if !errors.Is(err, player.ErrEmptyQueue) {
			return err
		}
	}

	url, ok := c.Extractor.Extract(strings.Join(inv.Args, " "))
	if !ok {
		return text.Send(msgProvideLink)
	}
	if mc.Voice == nil {
		return fmt.Errorf("play: %w", voice.ErrNotConnected)
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout())
	track, err := c.Resolver.Resolve(rctx, url)
	cancel()
	if err != nil {
		c.Log.Error().Err(err).Str("guild", guildID).Str("url", url).Msg("Failed to resolve track")
		if ferr := c.Player.Fail(ctx, guildID, text, err); ferr != nil {
			return ferr
		}
		return fmt.Errorf("resolve %s: %w", url, err)
	}

	jctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	return c.Player.Enqueue(jctx, guildID, text, mc.Voice, session.Song{Title: track.Title, URL: track.URL})
}

type PauseCommand struct{ *Deps }

func (c *PauseCommand) Name() string        { return "pause" }
func (c *PauseCommand) Description() string { return "Pause the current track" }

func (c *PauseCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	return c.Player.Pause(ctx, mc.Message.GuildID(), mc.Message.Channel())
}

type SkipCommand struct{ *Deps }

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip to the next track" }

func (c *SkipCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	return c.Player.Skip(ctx, mc.Message.GuildID(), mc.Message.Channel())
}

type StopCommand struct{ *Deps }

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and clear the queue" }

func (c *StopCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	return c.Player.Stop(ctx, mc.Message.GuildID(), mc.Message.Channel())
}

type QueueCommand struct{ *Deps }

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the queued tracks" }

func (c *QueueCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	text := mc.Message.Channel()

	info, ok, err := c.Player.Snapshot(ctx, mc.Message.GuildID())
	if err != nil {
		return err
	}
	if !ok || len(info.Songs) == 0 {
		return text.Send(msgQueueNothing)
	}

	if es, ok := text.(EmbedSender); ok {
		return es.SendEmbed(QueueEmbed(info))
	}
	return text.Send(queueText(info))
}

// QueueEmbed renders the queue of a session.
func QueueEmbed(info session.Info) *discordgo.MessageEmbed {
	state := "Paused"
	if info.Playing {
		state = "Playing"
	}
	e := embed.NewEmbed().
		SetColor(EmbedColor).
		SetDescription(fmt.Sprintf("🎵 **%s:** %s", state, info.Songs[0].Title))

	for i, s := range info.Songs[1:] {
		if i == queueFieldsLimit {
			e = e.AddField("…", fmt.Sprintf("and %d more", len(info.Songs)-1-queueFieldsLimit))
			break
		}
		e = e.AddField(fmt.Sprintf("%d.", i+1), s.Title)
	}
	e = e.SetFooter(fmt.Sprintf("Volume %d", info.Volume))
	return e.MessageEmbed
}

func queueText(info session.Info) string {
	var b strings.Builder
	for i, s := range info.Songs {
		if i == 0 {
			fmt.Fprintf(&b, "Now: **%s**\n", s.Title)
			continue
		}
		fmt.Fprintf(&b, "%d. %s\n", i, s.Title)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

type VolumeCommand struct{ *Deps }

func (c *VolumeCommand) Name() string        { return "volume" }
func (c *VolumeCommand) Description() string { return "Set playback volume from 1 to 10" }

func (c *VolumeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := command.FromInvocation(inv)
	if !ok {
		return errNoContext
	}
	text := mc.Message.Channel()

	if len(inv.Args) != 1 {
		return text.Send(msgVolumeUsage)
	}
	v, err := strconv.Atoi(inv.Args[0])
	if err != nil || v < minVolume || v > maxVolume {
		return text.Send(msgVolumeUsage)
	}
	return c.Player.SetVolume(ctx, mc.Message.GuildID(), text, v)
}
