package musicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultAudioDBURL = "https://www.theaudiodb.com/api/v1/json/123/search.php"

// AudioDBClient searches TheAudioDB by artist name.
type AudioDBClient struct {
	searchURL  string
	httpClient *http.Client
}

// NewAudioDBClient creates a client for the given search endpoint.
func NewAudioDBClient(searchURL string, timeout time.Duration) *AudioDBClient {
	if searchURL == "" {
		searchURL = defaultAudioDBURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AudioDBClient{
		searchURL:  searchURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type audioDBResponse struct {
	Artists []audioDBArtist `json:"artists"`
}

type audioDBArtist struct {
	Name   string `json:"strArtist"`
	Fanart string `json:"strArtistFanart"`
	Banner string `json:"strArtistBanner"`
	Thumb  string `json:"strArtistThumb"`
}

func (c *AudioDBClient) Name() string { return "audiodb" }

// ArtistImage prefers fanart, then the banner, then the thumbnail.
func (c *AudioDBClient) ArtistImage(ctx context.Context, artist string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?s="+url.QueryEscape(artist), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("audiodb api error: %s - %s", resp.Status, string(body))
	}

	var result audioDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Artists) == 0 {
		return "", ErrNotFound
	}

	a := result.Artists[0]
	for _, img := range []string{a.Fanart, a.Banner, a.Thumb} {
		if img != "" {
			return img, nil
		}
	}
	return "", ErrNotFound
}
