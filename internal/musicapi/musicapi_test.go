package musicapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

type fakeProvider struct {
	name  string
	image string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ArtistImage(context.Context, string) (string, error) {
	f.calls++
	return f.image, f.err
}

func TestChainFallsThrough(t *testing.T) {
	first := &fakeProvider{name: "a", err: errors.New("timeout")}
	second := &fakeProvider{name: "b", err: ErrNotFound}
	third := &fakeProvider{name: "c", image: "https://img/c.jpg"}
	fourth := &fakeProvider{name: "d", image: "https://img/d.jpg"}

	got := NewChain(first, nil, second, third, fourth).ArtistImage(context.Background(), "Band")
	if got != "https://img/c.jpg" {
		t.Fatalf("expected image from third provider, got %q", got)
	}
	if fourth.calls != 0 {
		t.Fatalf("providers after a hit must not be called")
	}
}

func TestChainEmpty(t *testing.T) {
	p := &fakeProvider{name: "a", err: errors.New("down")}
	if got := NewChain(p).ArtistImage(context.Background(), "Band"); got != "" {
		t.Fatalf("expected empty image, got %q", got)
	}
	if got := NewChain(p).ArtistImage(context.Background(), "  "); got != "" || p.calls != 1 {
		t.Fatalf("blank artist must not be looked up")
	}
}

func TestAudioDBImagePreference(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
		err  error
	}{
		{"fanart", `{"artists":[{"strArtist":"X","strArtistFanart":"f.jpg","strArtistBanner":"b.jpg"}]}`, "f.jpg", nil},
		{"banner fallback", `{"artists":[{"strArtist":"X","strArtistFanart":"","strArtistBanner":"b.jpg"}]}`, "b.jpg", nil},
		{"no artists", `{"artists":null}`, "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("s") != "Sigur Rós" {
					t.Errorf("unexpected query %q", r.URL.RawQuery)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewAudioDBClient(srv.URL, 0).ArtistImage(context.Background(), "Sigur Rós")
			if got != tt.want || !errors.Is(err, tt.err) {
				t.Fatalf("got %q, %v; want %q, %v", got, err, tt.want, tt.err)
			}
		})
	}
}

func TestAudioDBServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewAudioDBClient(srv.URL, 0).ArtistImage(context.Background(), "X")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestSpotifyArtistImage(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"artists":{"items":[
			{"id":"1","name":"Röyksopp Tribute","images":[{"url":"wrong.jpg"}]},
			{"id":"2","name":"röyksopp","images":[{"url":"big.jpg","width":640},{"url":"small.jpg","width":64}]}
		]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewSpotifyClient("id", "secret", 0)
	c.tokenURL = srv.URL + "/token"
	c.apiURL = srv.URL + "/v1/"

	for i := 0; i < 2; i++ {
		got, err := c.ArtistImage(context.Background(), "Röyksopp")
		if err != nil {
			t.Fatalf("ArtistImage: %v", err)
		}
		if got != "big.jpg" {
			t.Fatalf("expected exact-name match's largest image, got %q", got)
		}
	}
	if tokenCalls.Load() != 1 {
		t.Fatalf("token should be cached, fetched %d times", tokenCalls.Load())
	}
}

func TestNewFromConfigSkipsSpotifyWithoutCredentials(t *testing.T) {
	if n := len(NewFromConfig(Config{}).providers); n != 1 {
		t.Fatalf("expected only audiodb, got %d providers", n)
	}
	if n := len(NewFromConfig(Config{SpotifyClientID: "a", SpotifyClientSecret: "b"}).providers); n != 2 {
		t.Fatalf("expected audiodb and spotify, got %d providers", n)
	}
}
