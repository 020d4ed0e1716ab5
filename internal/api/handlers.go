package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/events"
	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/store"
)

// maxBodyBytes bounds request payloads.
const maxBodyBytes = 1 << 20

// Handler serves the DQI routes.
type Handler struct {
	scorer    Scorer
	store     store.Store
	publisher events.Publisher
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeStoreError maps store failures to 404 or 500.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeRaw(r *http.Request) (model.RawProperty, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return model.ParseRawProperty(data)
}

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			zap.L().Warn("api: health check store ping failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "unreachable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ScoreRaw scores a payload posted directly. ?persist=true also stores the analysis.
func (h *Handler) ScoreRaw(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	persist, _ := strconv.ParseBool(r.URL.Query().Get("persist"))
	h.score(w, r, raw, persist)
}

// ScoreStored scores the stored payload of a property and persists the analysis.
func (h *Handler) ScoreStored(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.GetProperty(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	raw := rec.Raw
	if raw == nil {
		raw = model.RawProperty{}
	}
	if _, ok := raw["propertyId"]; !ok {
		raw["propertyId"] = id
	}
	h.score(w, r, raw, true)
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request, raw model.RawProperty, persist bool) {
	ctx := r.Context()

	a, err := h.scorer.ComputeFromRaw(ctx, raw)
	if err != nil {
		var mfe *model.MissingFieldError
		if errors.As(err, &mfe) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: mfe.Error(), Field: mfe.Field})
			return
		}
		zap.L().Error("api: score property", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusOK
	if persist && h.store != nil {
		saved, err := h.store.SaveAnalysis(ctx, a)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		a = saved
		status = http.StatusCreated
	}

	if err := h.publisher.PublishAnalysis(ctx, a); err != nil {
		zap.L().Warn("api: publish analysis", zap.String("property_id", a.PropertyID), zap.Error(err))
	}

	writeJSON(w, status, a)
}

// PutProperty stores or replaces a property payload.
func (h *Handler) PutProperty(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeRaw(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := h.store.PutProperty(r.Context(), chi.URLParam(r, "id"), raw)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetProperty returns a stored property payload.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetAnalysis returns one stored analysis.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// ListAnalyses returns a property's analyses, newest first.
// Query parameters: rating, limit, offset.
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AnalysisFilter{
		PropertyID: chi.URLParam(r, "id"),
		Rating:     model.Rating(q.Get("rating")),
	}
	var err error
	if s := q.Get("limit"); s != "" {
		if filter.Limit, err = strconv.Atoi(s); err != nil || filter.Limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if s := q.Get("offset"); s != "" {
		if filter.Offset, err = strconv.Atoi(s); err != nil || filter.Offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
	}

	list, err := h.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
