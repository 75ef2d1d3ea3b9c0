package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mosync/dispatch"
	"mosync/engine"
	"mosync/mocache"
	"mosync/store"
)

const moListLimit = 1000

func (h *Handlers) apiMOStats(w http.ResponseWriter, r *http.Request) {
	in, err := h.engine.Cache().Inspect(r.Context())
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, in)
}

func (h *Handlers) apiMOList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("production_type")
	if category == "" {
		category = q.Get("productionType")
	}
	query := mocache.Query{Category: category, Limit: moListLimit}
	if v, _ := strconv.ParseBool(q.Get("in_window")); v {
		query.Since = h.engine.Cache().Cutoff()
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n < moListLimit {
			query.Limit = n
		}
	}

	entries, err := h.engine.Cache().ListWhere(r.Context(), query)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []mocache.Entry{}
	}
	if category == "" {
		category = mocache.CategoryAll
	}
	h.jsonOK(w, map[string]any{
		"count":           len(entries),
		"production_type": category,
		"data":            entries,
	})
}

func (h *Handlers) apiGetMO(w http.ResponseWriter, r *http.Request) {
	entry, err := h.engine.Cache().Get(r.Context(), moParam(r))
	if errors.Is(err, store.ErrNotFound) {
		h.jsonError(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, entry)
}

type statusRequest struct {
	Status    string   `json:"status"`
	SKU       string   `json:"sku"`
	TargetQty *float64 `json:"target_qty"`
}

// apiRecordStatus stores the status and forwards it. A delivery failure is
// reported in the body with 202; the status is kept for the result sync.
func (h *Handlers) apiRecordStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))

	out, err := h.engine.RecordStatus(r.Context(), engine.StatusUpdate{
		MONumber:  moParam(r),
		Status:    req.Status,
		SKU:       req.SKU,
		TargetQty: req.TargetQty,
	})
	var derr *dispatch.DeliveryError
	switch {
	case err == nil:
		h.jsonOK(w, map[string]any{"outcome": out})
	case errors.Is(err, engine.ErrInvalidStatus):
		h.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &derr):
		h.jsonStatus(w, http.StatusAccepted, map[string]any{"outcome": out, "error": derr.Error(), "category": derr.Category})
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) apiBreaker(w http.ResponseWriter, r *http.Request) {
	b := h.engine.Breaker()
	h.jsonOK(w, map[string]any{
		"config":   b.Config(),
		"snapshot": b.Snapshot(),
	})
}

func (h *Handlers) apiJobs(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Scheduler().Jobs())
}

func (h *Handlers) apiJobRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := h.engine.DB().ListJobRuns(r.Context(), limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, runs)
}

func (h *Handlers) apiHealthCheck(w http.ResponseWriter, r *http.Request) {
	msgOK := false
	if c := h.engine.MsgClient(); c != nil {
		msgOK = c.IsConnected()
	}
	h.jsonOK(w, map[string]any{
		"status":    "ok",
		"erp":       h.engine.ERPConnected(),
		"messaging": msgOK,
		"breaker":   h.engine.Breaker().State(),
		"time":      time.Now().UTC(),
	})
}

// moParam returns the decoded {mo} path segment; MO numbers contain slashes.
func moParam(r *http.Request) string {
	raw := chi.URLParam(r, "mo")
	if mo, err := url.PathUnescape(raw); err == nil {
		return mo
	}
	return raw
}

func (h *Handlers) jsonOK(w http.ResponseWriter, data any) {
	h.jsonStatus(w, http.StatusOK, data)
}

func (h *Handlers) jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) jsonError(w http.ResponseWriter, msg string, code int) {
	h.jsonStatus(w, code, map[string]string{"error": msg})
}
