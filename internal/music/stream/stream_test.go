package stream

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"guild-music/internal/music/voice"
)

type recorder struct {
	mu     sync.Mutex
	events []voice.Event
}

func (r *recorder) handle(ev voice.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []voice.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []voice.EventType
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// fakeEncoder returns the first sample of each frame as the packet.
type fakeEncoder struct {
	err error
}

func (e *fakeEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(pcm[0]))
	return b, nil
}

func newFakeEncoder() (Encoder, error) { return &fakeEncoder{}, nil }

func pcmFrames(frames float64, sample int16) []byte {
	n := int(frames * frameSize * channels)
	buf := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(sample))
	}
	return buf
}

func openBytes(b []byte) Opener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func wait(t *testing.T, d *Dispatcher) {
	t.Helper()
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not terminate")
	}
}

func equalTypes(a, b []voice.EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDispatcher_PlaysToEnd(t *testing.T) {
	out := make(chan []byte, 10)
	rec := &recorder{}
	d := start(openBytes(pcmFrames(3, 100)), out, rec.handle, newFakeEncoder)
	wait(t, d)

	if len(out) != 3 {
		t.Errorf("expected 3 packets, got %d", len(out))
	}
	want := []voice.EventType{voice.EventStart, voice.EventFinish}
	if got := rec.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDispatcher_PartialLastFrame(t *testing.T) {
	out := make(chan []byte, 10)
	rec := &recorder{}
	d := start(openBytes(pcmFrames(2.5, 100)), out, rec.handle, newFakeEncoder)
	wait(t, d)

	if len(out) != 3 {
		t.Errorf("expected 3 packets, got %d", len(out))
	}
	if got := rec.types(); got[len(got)-1] != voice.EventFinish {
		t.Errorf("expected finish, got %v", got)
	}
}

func TestDispatcher_EndWhilePaused(t *testing.T) {
	release := make(chan struct{})
	open := func(ctx context.Context) (io.ReadCloser, error) {
		<-release
		return io.NopCloser(bytes.NewReader(pcmFrames(3, 1))), nil
	}
	out := make(chan []byte, 10)
	rec := &recorder{}
	d := start(open, out, rec.handle, newFakeEncoder)

	d.Pause()
	close(release)
	d.End()
	wait(t, d)

	if len(out) != 0 {
		t.Errorf("expected no packets while paused, got %d", len(out))
	}
	want := []voice.EventType{voice.EventStart, voice.EventStop}
	if got := rec.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDispatcher_PauseResume(t *testing.T) {
	release := make(chan struct{})
	open := func(ctx context.Context) (io.ReadCloser, error) {
		<-release
		return io.NopCloser(bytes.NewReader(pcmFrames(2, 1))), nil
	}
	out := make(chan []byte, 10)
	rec := &recorder{}
	d := start(open, out, rec.handle, newFakeEncoder)

	d.Pause()
	close(release)
	time.Sleep(20 * time.Millisecond)
	if len(out) != 0 {
		t.Fatalf("expected no packets while paused, got %d", len(out))
	}
	d.Resume()
	wait(t, d)

	if len(out) != 2 {
		t.Errorf("expected 2 packets, got %d", len(out))
	}
}

func TestDispatcher_EndUnblocksSend(t *testing.T) {
	out := make(chan []byte)
	rec := &recorder{}
	d := start(openBytes(pcmFrames(5, 1)), out, rec.handle, newFakeEncoder)

	<-out
	d.End()
	wait(t, d)

	want := []voice.EventType{voice.EventStart, voice.EventStop}
	if got := rec.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDispatcher_EndAfterFinish(t *testing.T) {
	out := make(chan []byte, 10)
	rec := &recorder{}
	d := start(openBytes(pcmFrames(1, 1)), out, rec.handle, newFakeEncoder)
	wait(t, d)
	d.End()

	want := []voice.EventType{voice.EventStart, voice.EventFinish}
	if got := rec.types(); !equalTypes(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("open", func(t *testing.T) {
		rec := &recorder{}
		open := func(ctx context.Context) (io.ReadCloser, error) { return nil, boom }
		d := start(open, make(chan []byte, 1), rec.handle, newFakeEncoder)
		wait(t, d)
		if len(rec.events) != 1 || rec.events[0].Type != voice.EventError || !errors.Is(rec.events[0].Err, boom) {
			t.Errorf("unexpected events %+v", rec.events)
		}
	})

	t.Run("encode", func(t *testing.T) {
		rec := &recorder{}
		enc := func() (Encoder, error) { return &fakeEncoder{err: boom}, nil }
		d := start(openBytes(pcmFrames(2, 1)), make(chan []byte, 1), rec.handle, enc)
		wait(t, d)
		want := []voice.EventType{voice.EventStart, voice.EventError}
		if got := rec.types(); !equalTypes(got, want) {
			t.Errorf("events = %v, want %v", got, want)
		}
	})

	t.Run("encoder init", func(t *testing.T) {
		rec := &recorder{}
		enc := func() (Encoder, error) { return nil, boom }
		d := start(openBytes(nil), make(chan []byte, 1), rec.handle, enc)
		wait(t, d)
		want := []voice.EventType{voice.EventError}
		if got := rec.types(); !equalTypes(got, want) {
			t.Errorf("events = %v, want %v", got, want)
		}
	})
}

func TestDispatcher_Volume(t *testing.T) {
	release := make(chan struct{})
	open := func(ctx context.Context) (io.ReadCloser, error) {
		<-release
		return io.NopCloser(bytes.NewReader(pcmFrames(1, 1000))), nil
	}
	out := make(chan []byte, 1)
	d := start(open, out, (&recorder{}).handle, newFakeEncoder)
	d.SetVolumeLogarithmic(2)
	close(release)
	wait(t, d)

	got := int16(binary.LittleEndian.Uint16(<-out))
	want := int16(1000 * math.Pow(2, logExponent))
	if got != want {
		t.Errorf("sample = %d, want %d", got, want)
	}
}

func TestLogarithmicGain(t *testing.T) {
	if g := LogarithmicGain(1); g != 1 {
		t.Errorf("unity level gain = %v", g)
	}
	if g := LogarithmicGain(0); g != 0 {
		t.Errorf("zero level gain = %v", g)
	}
	if g := LogarithmicGain(0.2); g <= 0 || g >= 0.2 {
		t.Errorf("low levels should attenuate more than linear, got %v", g)
	}
}

func TestApplyGainClamps(t *testing.T) {
	s := []int16{20000, -20000, 100}
	applyGain(s, 3)
	if s[0] != math.MaxInt16 || s[1] != math.MinInt16 || s[2] != 300 {
		t.Errorf("unexpected samples %v", s)
	}
}
