package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// analyticsHandler adapts a per-user engine query to an HTTP handler.
func analyticsHandler[T any](query func(ctx context.Context, userID string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := query(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Stats)(w, r)
}

func (s *Server) handleDiscipline(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Score)(w, r)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Predict)(w, r)
}

func (s *Server) handleSurvival(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Curve)(w, r)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Classify)(w, r)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Forecast)(w, r)
}

func (s *Server) handleProductivity(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.Productivity)(w, r)
}

func (s *Server) handleEnergyHistory(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.EnergyHistory)(w, r)
}

func (s *Server) handleTriggerAnalysis(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.TriggerAnalysis)(w, r)
}

func (s *Server) handleEnergyFlow(w http.ResponseWriter, r *http.Request) {
	analyticsHandler(s.engine.EnergyFlow)(w, r)
}
