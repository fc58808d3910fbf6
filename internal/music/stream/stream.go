// Package stream turns an audio byte stream into Opus packets for a Discord
// voice connection.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"guild-music/internal/music/voice"

	"layeh.com/gopus"
)

// Encoder turns one PCM frame into an Opus packet.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// Opener opens a 48kHz stereo s16le PCM stream.
type Opener func(ctx context.Context) (io.ReadCloser, error)

// Dispatcher streams one track. It emits a start event once the stream is
// open and exactly one terminal event afterwards.
type Dispatcher struct {
	open       Opener
	out        chan<- []byte
	events     voice.EventHandler
	newEncoder func() (Encoder, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	ended  bool

	gain     atomic.Uint64
	terminal sync.Once
	done     chan struct{}
}

// Start begins streaming in the background. Packets are written to out.
func Start(open Opener, out chan<- []byte, events voice.EventHandler) *Dispatcher {
	return start(open, out, events, newOpusEncoder)
}

func start(open Opener, out chan<- []byte, events voice.EventHandler, newEncoder func() (Encoder, error)) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		open:       open,
		out:        out,
		events:     events,
		newEncoder: newEncoder,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	d.gain.Store(math.Float64bits(1))
	go d.run()
	return d
}

func newOpusEncoder() (Encoder, error) {
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return nil, err
	}
	enc.SetBitrate(bitrate)
	return enc, nil
}

// Pause holds frames until Resume.
func (d *Dispatcher) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
}

func (d *Dispatcher) Resume() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	d.cond.Broadcast()
}

// End terminates the stream. A stop event follows unless the stream already
// finished on its own.
func (d *Dispatcher) End() {
	d.mu.Lock()
	d.ended = true
	d.cond.Broadcast()
	d.mu.Unlock()
	d.cancel()
}

func (d *Dispatcher) SetVolumeLogarithmic(level float64) {
	d.gain.Store(math.Float64bits(LogarithmicGain(level)))
}

// Done is closed after the terminal event was emitted.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	defer d.cancel()

	enc, err := d.newEncoder()
	if err != nil {
		d.terminate(voice.EventError, fmt.Errorf("opus encoder: %w", err))
		return
	}

	pcm, err := d.open(d.ctx)
	if err != nil {
		d.fail(fmt.Errorf("open stream: %w", err))
		return
	}
	defer pcm.Close()

	d.events(voice.Event{Type: voice.EventStart})

	buf := make([]byte, frameBytes)
	samples := make([]int16, frameSize*channels)

	for {
		if !d.waitPlaying() {
			d.terminate(voice.EventStop, nil)
			return
		}

		n, err := io.ReadFull(pcm, buf)
		last := false
		switch {
		case err == nil:
		case errors.Is(err, io.ErrUnexpectedEOF) && !d.isEnded():
			clear(buf[n:])
			last = true
		case errors.Is(err, io.EOF) && !d.isEnded():
			d.terminate(voice.EventFinish, nil)
			return
		default:
			d.fail(fmt.Errorf("read pcm: %w", err))
			return
		}

		for i := range samples {
			samples[i] = int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
		}
		applyGain(samples, math.Float64frombits(d.gain.Load()))

		packet, err := enc.Encode(samples, frameSize, frameBytes)
		if err != nil {
			d.fail(fmt.Errorf("encode opus: %w", err))
			return
		}

		select {
		case d.out <- packet:
		case <-d.ctx.Done():
			d.terminate(voice.EventStop, nil)
			return
		}

		if last {
			d.terminate(voice.EventFinish, nil)
			return
		}
	}
}

func (d *Dispatcher) waitPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.paused && !d.ended {
		d.cond.Wait()
	}
	return !d.ended
}

func (d *Dispatcher) isEnded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ended
}

// fail reports err, or a stop if the failure was caused by End.
func (d *Dispatcher) fail(err error) {
	if d.isEnded() {
		d.terminate(voice.EventStop, nil)
		return
	}
	d.terminate(voice.EventError, err)
}

func (d *Dispatcher) terminate(t voice.EventType, err error) {
	d.terminal.Do(func() {
		d.events(voice.Event{Type: t, Err: err})
	})
}
