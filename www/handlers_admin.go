package www

import (
	"encoding/json"
	"errors"
	"net/http"

	"mosync/engine"
	"mosync/scheduler"
)

// runJob triggers a scheduled job immediately and reports its result.
func (h *Handlers) runJob(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.engine.Scheduler().RunNow(r.Context(), name)
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			h.jsonError(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, scheduler.ErrJobRunning):
			h.jsonError(w, name+" is already running", http.StatusConflict)
			return
		}

		data := map[string]any{
			"job":         res.Job,
			"run_id":      res.RunID,
			"success":     res.Err == nil,
			"detail":      res.Detail,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			data["error"] = res.Err.Error()
			h.jsonStatus(w, http.StatusBadGateway, data)
			return
		}
		h.jsonOK(w, data)
	}
}

func (h *Handlers) apiGetConfig(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Settings())
}

// apiUpdateConfig merges the body over the current settings, so omitted
// fields keep their values.
func (h *Handlers) apiUpdateConfig(w http.ResponseWriter, r *http.Request) {
	s := h.engine.Settings()
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		h.jsonError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.engine.UpdateSettings(s); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, engine.ErrInvalidSettings) {
			code = http.StatusBadRequest
		}
		h.jsonError(w, err.Error(), code)
		return
	}
	h.jsonOK(w, h.engine.Settings())
}
