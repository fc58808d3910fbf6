package middleware

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"guild-music/internal/command"
	"guild-music/internal/music/voice"
	"guild-music/internal/storage"
	"guild-music/pkg/cmd"

	"github.com/rs/zerolog"
)

type stubText struct{ sent []string }

func (t *stubText) ID() string { return "text-1" }
func (t *stubText) Send(s string) error {
	t.sent = append(t.sent, s)
	return nil
}

type stubVoice struct{}

func (stubVoice) ID() string                                         { return "voice-1" }
func (stubVoice) Join(ctx context.Context) (voice.Connection, error) { return nil, nil }

type stubMessage struct {
	text     *stubText
	inVoice  bool
	canSpeak bool
	permErr  error
	replies  []string
}

func (m *stubMessage) GuildID() string            { return "g1" }
func (m *stubMessage) AuthorID() string           { return "u1" }
func (m *stubMessage) AuthorName() string         { return "alice" }
func (m *stubMessage) Content() string            { return "" }
func (m *stubMessage) Channel() voice.TextChannel { return m.text }
func (m *stubMessage) Reply(s string) error {
	m.replies = append(m.replies, s)
	return nil
}
func (m *stubMessage) VoiceChannel() (voice.VoiceChannel, bool) {
	if !m.inVoice {
		return nil, false
	}
	return stubVoice{}, true
}
func (m *stubMessage) CanConnectAndSpeak(string) (bool, error) { return m.canSpeak, m.permErr }

type countCommand struct {
	runs  int
	voice voice.VoiceChannel
	err   error
}

func (c *countCommand) Name() string        { return "play" }
func (c *countCommand) Description() string { return "" }
func (c *countCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	c.runs++
	if mc, ok := command.FromInvocation(inv); ok {
		c.voice = mc.Voice
	}
	return c.err
}

type history struct {
	guild   string
	records []storage.CommandRecord
}

func (h *history) AppendCommand(guildID string, rec storage.CommandRecord) error {
	h.guild = guildID
	h.records = append(h.records, rec)
	return nil
}

func invocation(msg command.Message, args ...string) *cmd.Invocation {
	return &cmd.Invocation{Args: args, Data: &command.MessageContext{Message: msg}}
}

func TestWithVoiceCheck(t *testing.T) {
	t.Run("passes and stores channel", func(t *testing.T) {
		inner := &countCommand{}
		msg := &stubMessage{text: &stubText{}, inVoice: true, canSpeak: true}
		if err := cmd.Apply(inner, WithVoiceCheck()).Run(context.Background(), invocation(msg)); err != nil {
			t.Fatal(err)
		}
		if inner.runs != 1 || inner.voice == nil || inner.voice.ID() != "voice-1" {
			t.Errorf("runs=%d voice=%v", inner.runs, inner.voice)
		}
	})

	t.Run("permission lookup error", func(t *testing.T) {
		inner := &countCommand{}
		boom := errors.New("boom")
		msg := &stubMessage{text: &stubText{}, inVoice: true, permErr: boom}
		err := cmd.Apply(inner, WithVoiceCheck()).Run(context.Background(), invocation(msg))
		if !errors.Is(err, boom) || inner.runs != 0 {
			t.Errorf("err=%v runs=%d", err, inner.runs)
		}
	})

	t.Run("foreign invocation", func(t *testing.T) {
		err := cmd.Apply(&countCommand{}, WithVoiceCheck()).Run(context.Background(), &cmd.Invocation{})
		if err == nil {
			t.Error("expected error for missing message context")
		}
	})
}

func TestWithCommandLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	h := &history{}
	inner := &countCommand{err: errors.New("resolve failed")}
	msg := &stubMessage{text: &stubText{}}

	err := cmd.Apply(inner, WithCommandLogger(h, logger)).Run(context.Background(), invocation(msg, "https://youtu.be/x"))
	if err == nil {
		t.Fatal("expected inner error to be returned")
	}

	if h.guild != "g1" || len(h.records) != 1 {
		t.Fatalf("unexpected history %+v", h)
	}
	rec := h.records[0]
	if rec.Command != "play" || rec.Param != "https://youtu.be/x" || rec.Username != "alice" || rec.ChannelID != "text-1" {
		t.Errorf("unexpected record %+v", rec)
	}
	if out := buf.String(); !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "resolve failed") {
		t.Errorf("unexpected log output %s", out)
	}
}

func TestMiddlewareOrder(t *testing.T) {
	h := &history{}
	inner := &countCommand{}
	msg := &stubMessage{text: &stubText{}, inVoice: false}

	c := cmd.Apply(inner, WithVoiceCheck(), WithCommandLogger(h, zerolog.Nop()))
	if err := c.Run(context.Background(), invocation(msg)); err != nil {
		t.Fatal(err)
	}
	if inner.runs != 0 || len(msg.replies) != 1 {
		t.Errorf("voice check should abort: runs=%d replies=%v", inner.runs, msg.replies)
	}
	if len(h.records) != 1 {
		t.Errorf("outer logger should still record the attempt, got %d", len(h.records))
	}
	if cmd.Root(c) != inner {
		t.Error("Root should unwrap to the inner command")
	}
}
