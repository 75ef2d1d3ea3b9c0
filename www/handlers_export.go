package www

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"mosync/mocache"
	"mosync/report"
)

func (h *Handlers) apiMOExport(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.Cache().ListWhere(r.Context(), mocache.Query{Category: r.URL.Query().Get("production_type")})
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	var buf bytes.Buffer
	if err := report.WriteCacheXLSX(&buf, entries, now); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="mo-cache-%s.xlsx"`, now.Format("20060102-1504")))
	w.Write(buf.Bytes())
}
