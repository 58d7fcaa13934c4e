package segmenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Handler exposes a Service over HTTP.
type Handler struct {
	service  *Service
	workers  int
	maxBatch int
	logger   *slog.Logger
}

func NewHandler(service *Service, workers, maxBatch int) *Handler {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	return &Handler{
		service:  service,
		workers:  workers,
		maxBatch: maxBatch,
		logger:   slog.Default().With("component", "segment-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/segment", h.Segment)
	mux.HandleFunc("POST /api/v1/segment", h.SegmentBatch)
	mux.HandleFunc("GET /api/v1/lexicon", h.Lexicon)
	mux.HandleFunc("GET /api/v1/model", h.Model)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Segment(w http.ResponseWriter, r *http.Request) {
	word := r.URL.Query().Get("word")
	if word == "" {
		h.fail(w, r, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'word' is required"))
		return
	}
	result, err := h.service.Segment(r.Context(), word)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Words []string `json:"words"`
}

type batchResponse struct {
	Results []Result `json:"results"`
}

func (h *Handler) SegmentBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON {\"words\": [...]}")
		return
	}
	if len(req.Words) == 0 {
		h.writeError(w, http.StatusBadRequest, "words must not be empty")
		return
	}
	if len(req.Words) > h.maxBatch {
		h.fail(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "at most %d words per request", h.maxBatch))
		return
	}
	results, err := h.service.SegmentAll(r.Context(), req.Words, h.workers)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("batch segmented", "words", len(results))
	h.writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

func (h *Handler) Lexicon(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	items, size := h.service.Lexicon(limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"size":          size,
		"constructions": items,
	})
}

func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Info())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	c := h.service.opts.Cache
	if c == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := c.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  c.BreakerState(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	c := h.service.opts.Cache
	if c == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := c.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "deleted": deleted})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("segmentation failed", "error", err)
		h.writeError(w, status, "segmentation failed")
		return
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.writeError(w, status, appErr.Message)
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
