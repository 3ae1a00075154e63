package http

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"traffic-advisor-ai/internal/handlers"
	"traffic-advisor-ai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DraftService  service.DraftService
	Retriever     service.Retriever
	KnowledgeBase handlers.KnowledgeBase
	DB            handlers.Pinger // optional
	// StaticFS holds index.html and the assets served under /static/.
	StaticFS fs.FS
	// DraftRateLimit is the sustained drafts per second; 0 disables limiting.
	DraftRateLimit float64
	DraftRateBurst int
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	draftHandler := handlers.NewDraftHandler(deps.DraftService)
	retrieveHandler := handlers.NewRetrieveHandler(deps.Retriever)
	kbHandler := handlers.NewKBHandler(deps.KnowledgeBase)
	healthHandler := handlers.NewHealthHandler(deps.KnowledgeBase, deps.DB)

	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(deps.DraftRateLimit, deps.DraftRateBurst)).
			Method(http.MethodPost, "/draft", draftHandler)
		r.Get("/drafts/{id}", draftHandler.GetDraft)
		r.Method(http.MethodPost, "/retrieve", retrieveHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/kb/stats", kbHandler.Stats)
		r.Post("/kb/rebuild", kbHandler.Rebuild)
	})

	if deps.StaticFS != nil {
		r.Get("/", serveIndex(deps.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(deps.StaticFS)))
	}

	return r
}

// serveIndex serves index.html from the static filesystem.
func serveIndex(static fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	}
}
