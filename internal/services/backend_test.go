package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
)

func TestBackendClient(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Empty BaseURL", func(t *testing.T) {
			c := NewBackendClient("", nil)
			if c.baseURL != "http://localhost:3000" {
				t.Errorf("expected default baseURL, got %s", c.baseURL)
			}
			if c.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
		})

		t.Run("Trims Trailing Slash", func(t *testing.T) {
			c := NewBackendClient("http://example.com/", nil)
			if c.baseURL != "http://example.com" {
				t.Errorf("expected trimmed baseURL, got %s", c.baseURL)
			}
		})
	})

	t.Run("FetchPlaylist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/spotify/playlist" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type, got %s", r.Header.Get("Content-Type"))
			}

			var req models.FetchRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.ClientID == "bad" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(models.ErrorResponse{Error: "invalid Spotify credentials"})
				return
			}
			json.NewEncoder(w).Encode(models.FetchResponse{Tracks: []models.Track{{ID: "t1", Name: "Song"}}})
		}))
		defer server.Close()

		c := NewBackendClient(server.URL, nil)

		tracks, err := c.FetchPlaylist(context.Background(), models.FetchRequest{PlaylistURL: "x", ClientID: "id", ClientSecret: "s"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "t1" {
			t.Errorf("unexpected tracks %+v", tracks)
		}

		_, err = c.FetchPlaylist(context.Background(), models.FetchRequest{PlaylistURL: "x", ClientID: "bad", ClientSecret: "s"})
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("Transfer", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req models.TransferRequest
			json.NewDecoder(r.Body).Decode(&req)
			if len(req.SelectedTrackIDs) == 0 {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(models.ErrorResponse{Error: "no tracks selected"})
				return
			}
			json.NewEncoder(w).Encode(models.TransferResult{PlaylistName: req.PlaylistName, Total: len(req.SelectedTrackIDs)})
		}))
		defer server.Close()

		c := NewBackendClient(server.URL, nil)

		result, err := c.Transfer(context.Background(), models.TransferRequest{PlaylistName: "Mix", SelectedTrackIDs: []string{"a", "b"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.PlaylistName != "Mix" || result.Total != 2 {
			t.Errorf("unexpected result %+v", result)
		}

		_, err = c.Transfer(context.Background(), models.TransferRequest{PlaylistName: "Mix"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Health", func(t *testing.T) {
		var healthy atomic.Bool
		healthy.Store(true)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !healthy.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		c := NewBackendClient(server.URL, nil)
		if err := c.Health(context.Background()); err != nil {
			t.Errorf("expected healthy server, got %v", err)
		}

		healthy.Store(false)
		if err := c.Health(context.Background()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Non-JSON Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain text"))
		}))
		defer server.Close()

		_, err := NewBackendClient(server.URL, nil).FetchPlaylist(context.Background(), models.FetchRequest{})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
