package www

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mosync/engine"
)

type Handlers struct {
	engine *engine.Engine
}

// NewRouter builds the HTTP API.
func NewRouter(eng *engine.Engine) http.Handler {
	h := &Handlers{engine: eng}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealthCheck)
		r.Get("/mo-stats", h.apiMOStats)
		r.Get("/mo-list", h.apiMOList)
		r.Get("/mo-export.xlsx", h.apiMOExport)
		r.Get("/mo/{mo}", h.apiGetMO)
		r.Post("/mo/{mo}/status", h.apiRecordStatus)
		r.Get("/breaker", h.apiBreaker)
		r.Get("/jobs", h.apiJobs)
		r.Get("/jobs/runs", h.apiJobRuns)
		r.Get("/erp/ping", h.apiERPPing)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Minute))
			r.Post("/sync-mo", h.runJob(engine.JobSync))
			r.Post("/cleanup-mo", h.runJob(engine.JobReap))
			r.Post("/notify-mo", h.runJob(engine.JobNotify))
			r.Post("/sync-results", h.runJob(engine.JobResults))
			r.Get("/config", h.apiGetConfig)
			r.Put("/config", h.apiUpdateConfig)
		})
	})

	return r
}
