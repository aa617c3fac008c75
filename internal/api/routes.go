package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/flightsurety/internal/config"
	"github.com/yegors/flightsurety/internal/storage/sqlite"
	"github.com/yegors/flightsurety/internal/surety"
	"github.com/yegors/flightsurety/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(app *surety.App, journal *sqlite.EventStorage, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(app, journal, cfg.Relay(), log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "route not found", Code: surety.CodeNotFound})
	})

	router.Route("/api/v1", func(router chi.Router) {
		router.Get("/health", r.handler.GetHealth)
		router.Get("/status", r.handler.GetStatus)

		// Oracle status request relay
		router.Get("/fetch", r.handler.FetchFlightStatus)

		router.Get("/airlines", r.handler.GetAirlines)
		router.Get("/airlines/{address}", r.handler.GetAirline)

		router.Get("/flights", r.handler.GetFlights)
		router.Get("/flights/{code}", r.handler.GetFlight)
		router.Get("/flights/{code}/events", r.handler.GetFlightEvents)
		router.Get("/flights/{code}/insurance/{passenger}", r.handler.GetInsurance)

		router.Get("/oracles/{address}", r.handler.GetOracle)

		// Event journal
		router.Get("/events", r.handler.GetEvents)
	})

	return router
}
