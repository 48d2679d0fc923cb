// HTTP client for a running s2d server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
)

// BackendClient talks to the JSON API served by the s2d server.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient creates a client for the server at baseURL.
func NewBackendClient(baseURL string, client *http.Client) *BackendClient {
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a failing response into an error carrying the server's message.
func (r *APIResponse) Err() error {
	if r.OK() {
		return nil
	}

	var body models.ErrorResponse
	msg := strings.TrimSpace(string(r.Body))
	if err := json.Unmarshal(r.Body, &body); err == nil && body.Error != "" {
		msg = body.Error
	}

	var sentinel error
	switch r.StatusCode {
	case http.StatusBadRequest:
		sentinel = shared.ErrInvalidInput
	case http.StatusUnauthorized:
		sentinel = shared.ErrInvalidCredentials
	case http.StatusNotFound:
		sentinel = shared.ErrPlaylistNotFound
	case http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	default:
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: %d %s", sentinel, r.StatusCode, msg)
}

func (b *BackendClient) do(req *http.Request) (*APIResponse, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Get performs a GET request to the specified path and returns the raw response.
func (b *BackendClient) Get(ctx context.Context, path string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return b.do(req)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (b *BackendClient) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func (b *BackendClient) postJSON(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := b.Post(ctx, path, data)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if !resp.IsJSON {
		return fmt.Errorf("%w: non-JSON response from %s", shared.ErrAPIRequest, path)
	}
	return json.Unmarshal(resp.Body, out)
}

// FetchPlaylist asks the server to fetch and cache a Spotify playlist.
func (b *BackendClient) FetchPlaylist(ctx context.Context, req models.FetchRequest) ([]models.Track, error) {
	var out models.FetchResponse
	if err := b.postJSON(ctx, "/api/spotify/playlist", req, &out); err != nil {
		return nil, err
	}
	return out.Tracks, nil
}

// Transfer submits a selection of previously fetched tracks.
func (b *BackendClient) Transfer(ctx context.Context, req models.TransferRequest) (*models.TransferResult, error) {
	var out models.TransferResult
	if err := b.postJSON(ctx, "/api/spotify/transfer", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns nil when the server answers its health check.
func (b *BackendClient) Health(ctx context.Context) error {
	resp, err := b.Get(ctx, "/health")
	if err != nil {
		return err
	}
	if !resp.OK() {
		return errors.Join(shared.ErrServiceUnavailable, resp.Err())
	}
	return nil
}
