package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/lazypower/momentum/internal/engine"
	"github.com/lazypower/momentum/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the momentum HTTP API server.
type Server struct {
	engine   *engine.Engine
	router   chi.Router
	validate *validator.Validate
	version  string
	started  time.Time
}

// New creates a new Server backed by eng.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{
		engine:   eng,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.Handler())

		r.Post("/users", s.handleCreateUser)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handleAppendTransaction)
			r.Get("/balance/verify", s.handleVerifyBalance)
			r.Post("/checkins", s.handleCheckIn)
			r.Get("/events", s.handleListEvents)
			r.Post("/events", s.handleRecordEvent)
			r.Post("/streak/increment", s.handleIncrementStreak)
			r.Get("/goals", s.handleListGoals)
			r.Post("/goals", s.handleCreateGoal)

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/", s.handleStats)
				r.Get("/discipline", s.handleDiscipline)
				r.Get("/risk", s.handleRisk)
				r.Get("/survival", s.handleSurvival)
				r.Get("/recovery", s.handleRecovery)
				r.Get("/forecast", s.handleForecast)
				r.Get("/productivity", s.handleProductivity)
				r.Get("/energy-history", s.handleEnergyHistory)
				r.Get("/energy-flow", s.handleEnergyFlow)
				r.Get("/trigger-analysis", s.handleTriggerAnalysis)
			})
		})
		r.Patch("/goals/{goalID}", s.handleSetGoalStatus)
		r.Delete("/goals/{goalID}", s.handleDeleteGoal)

		r.Post("/analytics/refresh", s.handleRefresh)
		r.Post("/analytics/reconcile", s.handleReconcile)
		r.Post("/jobs/daily-energy", s.handleDailyEnergy)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.engine.DB.PingContext(r.Context()); err != nil {
		dbOK = false
	}

	var snapshotAt *time.Time
	if snap := s.engine.Snapshot(); snap != nil {
		snapshotAt = &snap.TakenAt
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     s.version,
		"uptime":      time.Since(s.started).Seconds(),
		"db":          dbOK,
		"db_path":     s.engine.DB.Path,
		"snapshot_at": snapshotAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and store errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		ce     *store.ConsistencyError
		verrs  validator.ValidationErrors
		status int
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInvalid), errors.As(err, &verrs), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.As(err, &ce):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		log.Printf("server: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
