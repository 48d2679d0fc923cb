package server

import (
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
)

const defaultListLimit = 20

// TransferLister reads recorded transfers. Implemented by repositories.TransferRepository.
type TransferLister interface {
	Get(id string) (*models.TransferJob, error)
	List(criteria map[string]any) ([]*models.TransferJob, error)
}

// APIOpts wires the JSON API to its collaborators.
type APIOpts struct {
	Sources   services.SourceFactory // Builds a Spotify client from the form's credentials
	Cache     tasks.TrackCache       // Fetched tracks, used to resolve transfers
	Engine    *tasks.TransferEngine
	Transfers TransferLister // Optional transfer history
	Logger    *log.Logger
}

// APIHandler serves the JSON API consumed by the web page and the remote CLI commands.
type APIHandler struct {
	sources   services.SourceFactory
	cache     tasks.TrackCache
	engine    *tasks.TransferEngine
	transfers TransferLister
	logger    *log.Logger
	mux       *http.ServeMux
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(opts APIOpts) *APIHandler {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	h := &APIHandler{
		sources:   opts.Sources,
		cache:     opts.Cache,
		engine:    opts.Engine,
		transfers: opts.Transfers,
		logger:    shared.WithLogger(logger, "component", "api"),
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /api/spotify/playlist", h.fetchPlaylist)
	h.mux.HandleFunc("POST /api/spotify/transfer", h.transfer)
	h.mux.HandleFunc("GET /api/transfers", h.listTransfers)
	h.mux.HandleFunc("GET /api/transfers/{id}", h.getTransfer)
	h.mux.HandleFunc("GET /health", h.health)
	return h
}

// Routes returns the API patterns.
func (h *APIHandler) Routes() []string {
	return []string{
		"POST /api/spotify/playlist",
		"POST /api/spotify/transfer",
		"GET /api/transfers",
		"GET /api/transfers/{id}",
		"GET /health",
	}
}

func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// fail writes err as a JSON error with its mapped status.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeError(w, status, err.Error())
}

func (h *APIHandler) fetchPlaylist(w http.ResponseWriter, r *http.Request) {
	var req models.FetchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	req = req.Trim()
	if !req.Complete() {
		writeError(w, http.StatusBadRequest, "playlistUrl, clientId and clientSecret are required")
		return
	}

	src, err := h.sources(req.ClientID, req.ClientSecret)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tracks, err := tasks.FetchPlaylist(r.Context(), src, h.cache, req.PlaylistURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}

	h.logger.Info("fetched playlist", "url", req.PlaylistURL, "tracks", len(tracks))
	writeJSON(w, http.StatusOK, models.FetchResponse{Tracks: tracks})
}

func (h *APIHandler) transfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := tasks.Validate(req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.engine.Run(r.Context(), req, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transferList struct {
	Transfers []models.TransferSummary `json:"transfers"`
}

func (h *APIHandler) listTransfers(w http.ResponseWriter, r *http.Request) {
	out := transferList{Transfers: []models.TransferSummary{}}
	if h.transfers == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	criteria := map[string]any{"limit": defaultListLimit}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.TransferStatus(status).Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(status))
			return
		}
		criteria["status"] = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		criteria["limit"] = limit
	}

	jobs, err := h.transfers.List(criteria)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, job := range jobs {
		out.Transfers = append(out.Transfers, job.Summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) getTransfer(w http.ResponseWriter, r *http.Request) {
	if h.transfers == nil {
		h.fail(w, r, shared.ErrTransferNotFound)
		return
	}

	job, err := h.transfers.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.Summary())
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
