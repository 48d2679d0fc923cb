package server

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the Deezer authorization code flow.
// Implements the Handler interface for registration with a Router.
//
// Every state it issues is accepted once, so a replayed callback is rejected.
type OAuthHandler struct {
	service    services.OAuthService
	mu         sync.Mutex
	states     map[string]struct{}
	resultChan chan OAuthResult
}

// NewOAuthHandler creates an OAuth handler for service.
//
// states pre-registers state tokens, for flows where the caller builds the
// authorization URL itself. They should be cryptographically random for CSRF protection.
func NewOAuthHandler(service services.OAuthService, states ...string) *OAuthHandler {
	h := &OAuthHandler{
		service:    service,
		states:     make(map[string]struct{}, len(states)),
		resultChan: make(chan OAuthResult, 1),
	}
	for _, s := range states {
		h.states[s] = struct{}{}
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /auth/deezer", "GET /callback"}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/deezer":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// AuthURL issues a new state and returns the authorization URL carrying it.
func (h *OAuthHandler) AuthURL() (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.states[state] = struct{}{}
	h.mu.Unlock()

	return h.service.GetAuthURL(state), nil
}

// consume reports whether state was issued and not yet used.
func (h *OAuthHandler) consume(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.states[state]; !ok || state == "" {
		return false
	}
	delete(h.states, state)
	return true
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	u, err := h.AuthURL()
	if err != nil {
		http.Error(w, "Failed to start authorization", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

// callback validates the state parameter, exchanges the authorization code
// and publishes the result.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if !h.consume(query.Get("state")) {
		h.Send(OAuthResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		// Deezer reports a denied login as error_reason
		reason := query.Get("error_reason")
		if reason == "" {
			reason = query.Get("error")
		}
		h.Send(OAuthResult{err: fmt.Errorf("%w: %s", shared.ErrAuthFailed, reason)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.service.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// Send publishes result without blocking. Only the first unread result is kept.
func (h *OAuthHandler) Send(result OAuthResult) {
	select {
	case h.resultChan <- result:
	default:
	}
}

// Result returns the channel receiving completed flows.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Deezer Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #A238FF; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Deezer Connected</h1>
        <p>Transfers will now create playlists. You can close this window.</p>
    </div>
</body>
</html>
`
