// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"guild-music/datastore"
	"guild-music/internal/command"
	"guild-music/internal/command/music"
	"guild-music/internal/config"
	"guild-music/internal/discord"
	"guild-music/internal/logging"
	"guild-music/internal/middleware"
	"guild-music/internal/music/player"
	"guild-music/internal/music/sources/youtube"
	"guild-music/internal/music/stream"
	"guild-music/internal/status"
	"guild-music/internal/storage"
	"guild-music/pkg/cmd"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger, logCloser, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Bot exited with error")
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info().Msg("Discord bot exited cleanly")
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info().Msg("Starting guild music bot")

	dsCfg := datastore.DefaultConfig(cfg.StoragePath)
	dsCfg.Logger = logger.With().Str("component", "datastore").Logger()
	store, err := storage.NewWithConfig(dsCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	stream.FFmpegPath = cfg.FFmpegPath

	yt, err := youtube.New(youtube.Options{Proxy: cfg.YouTubeProxy}, logger)
	if err != nil {
		return err
	}

	p := player.New(&settings{store: store, fallback: cfg.DefaultVolume}, logger)
	shutdownPlayer := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p.Shutdown(shutdownCtx)
	}
	defer shutdownPlayer()

	deps := &music.Deps{
		Player:    p,
		Resolver:  yt,
		Extractor: youtube.Extractor{},
		Timeout:   cfg.ResolveTimeout,
		Log:       logger.With().Str("component", "music").Logger(),
	}

	registry := cmd.NewRegistry()
	voiceCommands := music.VoiceCommands()
	for _, c := range music.Commands(deps) {
		mws := []cmd.Middleware{}
		if voiceCommands[c.Name()] {
			mws = append(mws, middleware.WithVoiceCheck())
		}
		mws = append(mws, middleware.WithCommandLogger(store, logger.With().Str("component", "command").Logger()))
		registry.Register(cmd.Apply(c, mws...))
	}
	handler := command.NewHandler(cfg.CommandPrefix, registry, logger)

	bot, err := discord.NewBot(cfg.DiscordToken, handler, yt, logger)
	if err != nil {
		return err
	}

	// Voice connections are left before the gateway closes.
	bot.OnShutdown(shutdownPlayer)

	var (
		wg    sync.WaitGroup
		errCh = make(chan error, 2)
	)
	start := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				errCh <- err
			}
		}()
	}

	start(func() error { return bot.Run(ctx) })
	if cfg.StatusAddr != "" {
		start(func() error { return status.Serve(ctx, cfg.StatusAddr, p, logger) })
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("Received shutdown signal, shutting down")
	case runErr = <-errCh:
		cancel()
	}
	wg.Wait()
	return runErr
}

// settings stores per-guild volume and falls back to the configured default.
type settings struct {
	store    *storage.Storage
	fallback int
}

func (s *settings) Volume(guildID string) int {
	if v := s.store.Volume(guildID); v > 0 {
		return v
	}
	return s.fallback
}

func (s *settings) SetVolume(guildID string, volume int) error {
	if volume < 1 {
		return errors.New("volume must be positive")
	}
	return s.store.SetVolume(guildID, volume)
}
