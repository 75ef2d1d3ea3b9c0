package www

import (
	"context"
	"net/http"
	"time"
)

func (h *Handlers) apiERPPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	start := time.Now()
	err := h.engine.ERPClient().Ping(ctx)
	data := map[string]any{
		"base_url":    h.engine.ERPClient().BaseURL(),
		"ok":          err == nil,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		data["error"] = err.Error()
		h.jsonStatus(w, http.StatusBadGateway, data)
		return
	}
	h.jsonOK(w, data)
}
