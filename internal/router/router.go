package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/BerylCAtieno/airline-extractor/internal/engine"
	"github.com/BerylCAtieno/airline-extractor/internal/handlers"
	"github.com/BerylCAtieno/airline-extractor/internal/metrics"
	"github.com/BerylCAtieno/airline-extractor/internal/middleware"
	"github.com/BerylCAtieno/airline-extractor/internal/services"
	"github.com/BerylCAtieno/airline-extractor/internal/utils"
)

type Dependencies struct {
	Service services.ExtractionService
	Engine  *engine.Engine
	Metrics *metrics.Metrics
	Limits  handlers.Limits
	Logger  *utils.Logger
}

func NewRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(deps.Metrics.Instrument)

	extractionHandler := handlers.NewExtractionHandler(deps.Service, deps.Limits, deps.Logger)

	r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", health(deps.Engine)).Methods(http.MethodGet)
	api.HandleFunc("/airlines", extractionHandler.ListAirlines).Methods(http.MethodGet)

	api.HandleFunc("/extractions", extractionHandler.CreateExtraction).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/extractions", extractionHandler.ListExtractions).Methods(http.MethodGet)
	api.HandleFunc("/extractions/{id}", extractionHandler.GetExtraction).Methods(http.MethodGet)
	api.HandleFunc("/extractions/{id}/export", extractionHandler.DownloadExport).Methods(http.MethodGet)

	return r
}

// health also reports whether the extraction runtime has been loaded yet.
func health(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runtime := "pending"
		if eng.Ready() {
			runtime = "ready"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","runtime":"` + runtime + `"}`))
	}
}
