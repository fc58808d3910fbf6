package player

import (
	"context"
	"errors"
	"strings"
	"sync"

	"guild-music/internal/music/voice"
)

type fakeText struct {
	mu   sync.Mutex
	id   string
	msgs []string
}

func (f *fakeText) ID() string { return f.id }

func (f *fakeText) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeText) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func (f *fakeText) last() string {
	msgs := f.messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (f *fakeText) contains(substr string) bool {
	for _, m := range f.messages() {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

type fakeDispatcher struct {
	mu      sync.Mutex
	url     string
	events  voice.EventHandler
	paused  bool
	ended   bool
	done    bool
	pauses  int
	resumes int
	volume  float64
}

func (d *fakeDispatcher) emit(ev voice.Event) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return
	}
	if ev.Type != voice.EventStart {
		d.done = true
	}
	h := d.events
	d.mu.Unlock()
	h(ev)
}

func (d *fakeDispatcher) finish() { d.emit(voice.Event{Type: voice.EventFinish}) }

func (d *fakeDispatcher) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	d.pauses++
}

func (d *fakeDispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	d.resumes++
}

func (d *fakeDispatcher) End() {
	d.mu.Lock()
	d.ended = true
	d.mu.Unlock()
	d.emit(voice.Event{Type: voice.EventStop})
}

func (d *fakeDispatcher) SetVolumeLogarithmic(level float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = level
}

func (d *fakeDispatcher) isEnded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

type fakeConn struct {
	mu           sync.Mutex
	dispatchers  []*fakeDispatcher
	playErr      map[string]error
	disconnected int
}

func (c *fakeConn) Play(url string, events voice.EventHandler) (voice.Dispatcher, error) {
	c.mu.Lock()
	if err, ok := c.playErr[url]; ok {
		c.mu.Unlock()
		return nil, err
	}
	d := &fakeDispatcher{url: url, events: events}
	c.dispatchers = append(c.dispatchers, d)
	c.mu.Unlock()

	d.emit(voice.Event{Type: voice.EventStart})
	return d, nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected++
	return nil
}

func (c *fakeConn) dispatcher(i int) *fakeDispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.dispatchers) {
		return nil
	}
	return c.dispatchers[i]
}

func (c *fakeConn) plays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.dispatchers)
}

func (c *fakeConn) disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

type fakeVoice struct {
	mu    sync.Mutex
	conn  *fakeConn
	err   error
	gate  chan struct{}
	joins int
}

func (v *fakeVoice) ID() string { return "voice-1" }

func (v *fakeVoice) Join(ctx context.Context) (voice.Connection, error) {
	v.mu.Lock()
	v.joins++
	gate := v.gate
	v.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if v.err != nil {
		return nil, v.err
	}
	return v.conn, nil
}

func (v *fakeVoice) joinCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.joins
}

type fakeSettings struct {
	mu      sync.Mutex
	volumes map[string]int
}

func (s *fakeSettings) Volume(guildID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumes[guildID]
}

func (s *fakeSettings) SetVolume(guildID string, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.volumes == nil {
		s.volumes = make(map[string]int)
	}
	s.volumes[guildID] = volume
	return nil
}

func voiceError(msg string) voice.Event {
	return voice.Event{Type: voice.EventError, Err: errors.New(msg)}
}
