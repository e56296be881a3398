package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"concertjournal/internal/auth"
	"concertjournal/internal/http/middleware"
	"concertjournal/internal/httpapi"
	"concertjournal/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "listen host", EnvVars: []string{"HOST"}},
			&cli.IntFlag{Name: "port", Usage: "listen port", EnvVars: []string{"PORT"}},
		},
		Action: func(c *cli.Context) error {
			cfg := configFrom(c)
			if c.IsSet("host") {
				cfg.Server.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Server.Port = c.Int("port")
			}
			return withApplication(c, func(a *application) error {
				return serve(c.Context, a)
			})
		},
	}
}

func newHTTPHandler(a *application) (http.Handler, error) {
	library, err := a.mediaLibrary()
	if err != nil {
		return nil, fmt.Errorf("media storage: %w", err)
	}

	authn := auth.New(a.cfg.Auth.Username, a.cfg.Auth.PasswordHash, a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)

	services := httpapi.Services{
		Concerts: a.concerts,
		Stats:    a.stats,
		Settings: a.settings,
		Importer: a.importer,
		Exporter: a.exporter,
		Media:    library,
		Updates:  a.updates,
		Auth:     authn,
	}
	if a.cfg.Metrics.Enabled {
		metrics.Register()
		services.Metrics = metrics.Handler()
	}

	mux := httpapi.New(services).Routes()
	return middleware.Chain(mux,
		middleware.RequestLogging(),
		middleware.Recovery(),
		middleware.CORS(a.cfg.CORS.AllowedOrigins),
		middleware.RequireAuth(authn),
		middleware.Metrics(),
	), nil
}

func serve(ctx context.Context, a *application) error {
	handler, err := newHTTPHandler(a)
	if err != nil {
		return err
	}

	stopForwarding, err := a.forwardEvents()
	if err != nil {
		return err
	}
	defer stopForwarding()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Bool("auth", a.cfg.AuthEnabled()).
			Bool("metrics", a.cfg.Metrics.Enabled).
			Msg("concertjournal API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
