// Package httpapi exposes the dashboard endpoints: the history feed and the
// destination image catalogue. Every route requires basic auth against the
// stored user credentials.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"fareanomaly-service/internal/domain/repository"
	"fareanomaly-service/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Handler serves the dashboard API
type Handler struct {
	history repository.HistoryRepository
	images  repository.ImageRepository
	users   repository.UserRepository
	logger  logger.Logger
}

// NewHandler creates a new dashboard API handler
func NewHandler(
	history repository.HistoryRepository,
	images repository.ImageRepository,
	users repository.UserRepository,
	logger logger.Logger,
) *Handler {
	return &Handler{
		history: history,
		images:  images,
		users:   users,
		logger:  logger,
	}
}

// Register mounts the dashboard routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /history", h.requireAuth(h.getHistory))
	mux.HandleFunc("GET /images", h.requireAuth(h.getImages))
	mux.HandleFunc("POST /images", h.requireAuth(h.saveImage))
	mux.HandleFunc("DELETE /images/{name}", h.requireAuth(h.deleteImage))
}

// requireAuth checks basic auth credentials against the user store. The
// stored password is a bcrypt hash.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="dashboard"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		creds, err := h.users.GetCredentials(r.Context(), username)
		if err != nil {
			h.logger.Warn("Rejected dashboard login", "username", username, "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(creds.Password), []byte(password)); err != nil {
			h.logger.Warn("Rejected dashboard login", "username", username)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultHistoryLimit)
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	skip := queryInt(r, "skip", 0)
	if skip < 0 {
		skip = 0
	}

	entries, err := h.history.GetRecent(r.Context(), limit, skip)
	if err != nil {
		h.logger.Error("Failed to fetch history feed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) getImages(w http.ResponseWriter, r *http.Request) {
	records, err := h.images.GetAll(r.Context())
	if err != nil {
		h.logger.Error("Failed to list image records", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) saveImage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The destination city code is the file name prefix, so a name without
	// a separator has no route to attach to.
	name := strings.TrimSpace(req.Name)
	if name == "" || !strings.Contains(name, "_") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	record, err := h.images.Save(r.Context(), name)
	if err != nil {
		h.logger.Error("Failed to save image record", "name", name, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) deleteImage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.images.Delete(r.Context(), name); err != nil {
		h.logger.Error("Failed to delete image record", "name", name, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
