package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

const (
	channels   = 2
	sampleRate = 48000
	frameSize  = 960 // 20ms at 48kHz
	frameBytes = frameSize * channels * 2
	bitrate    = 128000
)

// FFmpegPath is the ffmpeg binary used by Decode.
var FFmpegPath = "ffmpeg"

// Decode pipes src through ffmpeg and returns 48kHz stereo s16le PCM.
// Closing the result closes src and stops ffmpeg.
func Decode(ctx context.Context, src io.ReadCloser) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, FFmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd.Stdin = src
	cmd.Stderr = os.Stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		src.Close()
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	return &decoder{ReadCloser: out, cmd: cmd, src: src}, nil
}

type decoder struct {
	io.ReadCloser
	cmd *exec.Cmd
	src io.ReadCloser
}

func (d *decoder) Close() error {
	d.src.Close()
	if err := d.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill ffmpeg: %w", err)
	}
	// Exit status after a kill is expected and not an error.
	_ = d.cmd.Wait()
	return nil
}
