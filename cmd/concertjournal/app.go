package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/app/concerts"
	"concertjournal/internal/app/settings"
	"concertjournal/internal/app/stats"
	"concertjournal/internal/config"
	"concertjournal/internal/events"
	"concertjournal/internal/media"
	"concertjournal/internal/musicapi"
	"concertjournal/internal/store"
	"concertjournal/internal/transfer"
	"concertjournal/internal/update"
)

// application holds the wired services shared by every command.
type application struct {
	cfg     *config.Config
	db      *sql.DB
	dialect store.Dialect
	store   *store.Store
	bus     *events.Bus

	concerts concerts.Service
	settings *settings.Service
	stats    *stats.Service
	importer *transfer.Importer
	exporter *transfer.Exporter
	updates  *update.Checker
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	db, dialect, err := openDatabase(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	dataStore := store.New(db, dialect)
	bus := events.NewBus()
	settingsSvc := settings.New(dataStore)
	concertSvc := concerts.New(dataStore, bus, settingsSvc)

	images := musicapi.NewFromConfig(musicapi.Config{
		AudioDBURL:          cfg.Integrations.AudioDBURL,
		SpotifyClientID:     cfg.Integrations.SpotifyClientID,
		SpotifyClientSecret: cfg.Integrations.SpotifyClientSecret,
		RequestTimeout:      cfg.Integrations.HTTPTimeout,
	})

	return &application{
		cfg:      cfg,
		db:       db,
		dialect:  dialect,
		store:    dataStore,
		bus:      bus,
		concerts: concertSvc,
		settings: settingsSvc,
		stats:    stats.New(concertSvc, images),
		importer: transfer.NewImporter(concertSvc),
		exporter: transfer.NewExporter(concertSvc),
		updates:  update.NewChecker(cfg.Integrations.UpdateURL, &http.Client{Timeout: cfg.Integrations.HTTPTimeout}),
	}, nil
}

func (a *application) mediaLibrary() (*media.Library, error) {
	var provider media.Provider
	switch a.cfg.Media.Backend {
	case "s3":
		p, err := media.NewS3Provider(media.S3Config{
			Bucket:          a.cfg.Media.Bucket,
			Endpoint:        a.cfg.Media.Endpoint,
			Region:          a.cfg.Media.Region,
			AccessKeyID:     a.cfg.Media.AccessKeyID,
			SecretAccessKey: a.cfg.Media.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		p, err := media.NewLocalProvider(a.cfg.MediaDir())
		if err != nil {
			return nil, err
		}
		provider = p
	}
	log.Info().Str("backend", a.cfg.Media.Backend).Msg("media storage ready")
	return media.NewLibrary(provider, a.concerts), nil
}

// forwardEvents publishes bus events to RabbitMQ when AMQP_URL is set. The
// returned func stops forwarding.
func (a *application) forwardEvents() (func(), error) {
	if a.cfg.Events.AMQPURL == "" {
		return func() {}, nil
	}
	fwd, err := events.DialAMQP(a.cfg.Events.AMQPURL, a.cfg.Events.Queue)
	if err != nil {
		return nil, fmt.Errorf("connect to amqp: %w", err)
	}
	fwd.Attach(a.bus)
	log.Info().Str("queue", a.cfg.Events.Queue).Msg("forwarding concert events to amqp")
	return func() {
		if err := fwd.Close(); err != nil {
			log.Warn().Err(err).Msg("close amqp forwarder")
		}
	}, nil
}

func (a *application) Close() error {
	return a.db.Close()
}
