package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-genstudio/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Submissions  Submitter
	Generations  GenerationReader
	Status       service.StatusChecker
	Callbacks    ExternalIDExtractor
	MaxBodyBytes int64
	Logger       *slog.Logger // Optional
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	h := &GenerationHandlers{
		Submissions: services.Submissions,
		Generations: services.Generations,
		Status:      services.Status,
		Callbacks:   services.Callbacks,
		Logger:      logger,
	}
	registerGenerationRoutes(mux, h)
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	var handler http.Handler = mux
	handler = MaxBody(services.MaxBodyBytes)(handler)
	handler = Logging(logger)(handler)
	return Recover(logger)(handler)
}

func registerGenerationRoutes(mux *http.ServeMux, h *GenerationHandlers) {
	mux.HandleFunc("POST /api/generations", h.Submit)
	mux.HandleFunc("GET /api/generations", h.List)
	mux.HandleFunc("POST /api/generations/callback", h.Callback)
	mux.HandleFunc("POST /api/generations/status/{externalId}", h.CheckStatus)
	mux.HandleFunc("GET /api/generations/{id}", h.Get)
	mux.HandleFunc("DELETE /api/generations/{id}", h.Delete)
	mux.HandleFunc("GET /api/generations/{id}/asset", h.Asset)
	mux.HandleFunc("HEAD /api/generations/{id}/asset", h.Asset)
}
