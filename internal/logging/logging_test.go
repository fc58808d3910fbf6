package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ConsoleAndLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "WARN", Console: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	logger.Info().Msg("hidden")
	logger.Warn().Str("guild", "g1").Msg("Queue drained")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered: %s", out)
	}
	if !strings.Contains(out, "Queue drained") || !strings.Contains(out, "g1") {
		t.Errorf("expected warn message, got %s", out)
	}
}

func TestNew_File(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	path := filepath.Join(t.TempDir(), "bot.log")
	logger, closer, err := New(Options{File: path, Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info().Str("component", "player").Msg("Start playing")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"player"`) {
		t.Errorf("expected JSON log line, got %s", data)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}
