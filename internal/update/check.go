// Package update compares the running version with the published manifest.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"concertjournal/internal/metrics"
	"concertjournal/internal/version"
)

const httpTimeout = 5 * time.Second

// Status is the outcome of an update check.
type Status string

const (
	// StatusDisabled means the check could not produce an answer.
	StatusDisabled  Status = "disabled"
	StatusCurrent   Status = "current"
	StatusAvailable Status = "available"
)

// manifest is the published update.json document.
type manifest struct {
	Version     string `json:"Version"`
	DownloadURL string `json:"DownloadUrl"`
}

// Result describes the running and the published version.
type Result struct {
	Status      Status `json:"status"`
	Current     string `json:"current"`
	Latest      string `json:"latest,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// Checker fetches the manifest. Check never fails; problems yield StatusDisabled.
type Checker struct {
	url     string
	current string
	client  *http.Client
}

// NewChecker builds a Checker for the running version. A nil client gets a
// default one with a short timeout.
func NewChecker(url string, client *http.Client) *Checker {
	if client == nil {
		client = &http.Client{Timeout: httpTimeout}
	}
	return &Checker{url: url, current: version.Version, client: client}
}

// WithCurrent overrides the running version.
func (c *Checker) WithCurrent(v string) *Checker {
	c.current = v
	return c
}

// Check fetches the manifest and compares versions.
func (c *Checker) Check(ctx context.Context) Result {
	result := Result{Status: StatusDisabled, Current: c.current}
	if c.url == "" {
		return result
	}

	m, err := c.fetch(ctx)
	if err != nil {
		metrics.RemoteLookups.WithLabelValues("update", "error").Inc()
		log.Debug().Err(err).Str("url", c.url).Msg("update check failed")
		return result
	}
	metrics.RemoteLookups.WithLabelValues("update", "ok").Inc()

	result.Latest = m.Version
	cmp, ok := CompareVersions(m.Version, c.current)
	if !ok {
		return result
	}
	if cmp > 0 {
		result.Status = StatusAvailable
		result.DownloadURL = m.DownloadURL
		return result
	}
	result.Status = StatusCurrent
	return result
}

func (c *Checker) fetch(ctx context.Context) (*manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "concertjournal/"+c.current)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// CompareVersions compares dotted numeric versions, treating missing
// components as zero. It returns -1, 0 or 1, and false when either side is
// not a numeric version.
func CompareVersions(a, b string) (int, bool) {
	pa, ok := parseVersion(a)
	if !ok {
		return 0, false
	}
	pb, ok := parseVersion(b)
	if !ok {
		return 0, false
	}

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		switch {
		case x > y:
			return 1, true
		case x < y:
			return -1, true
		}
	}
	return 0, true
}

// parseVersion accepts an optional "v" prefix.
func parseVersion(v string) ([]int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return nil, false
	}
	parts := strings.Split(v, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
