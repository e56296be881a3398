// Package musicapi looks up performer artwork on public music services.
package musicapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/metrics"
)

// ErrNotFound is returned when a service knows no image for the artist.
var ErrNotFound = errors.New("artist image not found")

// ArtistImageProvider finds a representative image for an artist.
type ArtistImageProvider interface {
	Name() string
	ArtistImage(ctx context.Context, artist string) (string, error)
}

// Config holds settings for the artwork clients.
type Config struct {
	AudioDBURL string

	// Spotify is only queried when both credentials are set.
	SpotifyClientID     string
	SpotifyClientSecret string

	RequestTimeout time.Duration
}

// ChainProvider asks each provider in turn and returns the first image found.
// Errors are logged and never surfaced; an empty string means no image.
type ChainProvider struct {
	providers []ArtistImageProvider
}

// NewChain builds a ChainProvider from the given providers, skipping nils.
func NewChain(providers ...ArtistImageProvider) *ChainProvider {
	c := &ChainProvider{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// NewFromConfig wires AudioDB first and Spotify as fallback when configured.
func NewFromConfig(cfg Config) *ChainProvider {
	providers := []ArtistImageProvider{NewAudioDBClient(cfg.AudioDBURL, cfg.RequestTimeout)}
	if cfg.SpotifyClientID != "" && cfg.SpotifyClientSecret != "" {
		providers = append(providers, NewSpotifyClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.RequestTimeout))
	}
	return NewChain(providers...)
}

// ArtistImage returns an image URL or "" when no provider has one.
func (c *ChainProvider) ArtistImage(ctx context.Context, artist string) string {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return ""
	}
	for _, p := range c.providers {
		img, err := p.ArtistImage(ctx, artist)
		switch {
		case err == nil && img != "":
			metrics.RemoteLookups.WithLabelValues(p.Name(), "ok").Inc()
			return img
		case err == nil, errors.Is(err, ErrNotFound):
			metrics.RemoteLookups.WithLabelValues(p.Name(), "miss").Inc()
		default:
			metrics.RemoteLookups.WithLabelValues(p.Name(), "error").Inc()
			log.Warn().Err(err).Str("provider", p.Name()).Str("artist", artist).Msg("artist image lookup failed")
		}
		if ctx.Err() != nil {
			return ""
		}
	}
	return ""
}
