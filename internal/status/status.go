// Package status serves a read-only HTTP view of the guild sessions.
package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"guild-music/internal/music/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Sessions exposes snapshots of the guild sessions.
type Sessions interface {
	Snapshot(ctx context.Context, guildID string) (session.Info, bool, error)
	Snapshots(ctx context.Context) ([]session.Info, error)
}

const requestTimeout = 5 * time.Second

// NewRouter returns the status API routes.
func NewRouter(sessions Sessions, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/guilds", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		infos, err := sessions.Snapshots(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"guilds": infos})
	})

	r.GET("/guilds/:id/queue", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		info, ok, err := sessions.Snapshot(ctx, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("Status request")
	}
}

// Serve runs the status API on addr until ctx is done.
func Serve(ctx context.Context, addr string, sessions Sessions, logger zerolog.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	logger = logger.With().Str("component", "status").Logger()

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(sessions, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("Status API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}
