package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/momentum/internal/store"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	u, created, err := s.engine.EnsureUser(r.Context(), req.Handle, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.engine.DB.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleAppendTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	balance, err := s.engine.AppendTransaction(r.Context(), chi.URLParam(r, "userID"), *req.Amount, req.Source, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"balance": balance})
}

// handleListTransactions returns the ledger, optionally from ?from=YYYY-MM-DD.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.engine.Transactions(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// handleVerifyBalance answers 409 when the cached balance disagrees with the ledger.
func (s *Server) handleVerifyBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.engine.DB.VerifyBalance(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "consistent": true})
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	agg, err := s.engine.CheckIn(r.Context(), chi.URLParam(r, "userID"), store.CheckIn{
		Energy:     req.Energy,
		Mood:       req.Mood,
		Urges:      req.Urges,
		Stress:     req.Stress,
		Focus:      req.Focus,
		Exercised:  req.Exercised,
		Meditated:  req.Meditated,
		ColdShower: req.ColdShower,
		Triggers:   req.Triggers,
		RawMessage: req.RawMessage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg)
}

func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	out, err := s.engine.RecordEvent(r.Context(), chi.URLParam(r, "userID"), req.EventType, req.Context, req.Triggers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, fmt.Errorf("%w: limit %q", errBadRequest, v))
			return
		}
		limit = n
	}

	events, err := s.engine.Events(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleIncrementStreak(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := s.decode(r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	streak, applied, err := s.engine.IncrementDaily(r.Context(), chi.URLParam(r, "userID"), req.Day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_streak": streak,
		"applied":        applied,
	})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	g, err := s.engine.CreateGoal(r.Context(), chi.URLParam(r, "userID"), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleListGoals lists active goals unless ?status= names another status
// or "all".
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "":
		status = store.GoalActive
	case "all":
		status = ""
	}

	goals, err := s.engine.Goals(r.Context(), chi.URLParam(r, "userID"), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	goalID := chi.URLParam(r, "goalID")
	if err := s.engine.DeleteGoal(r.Context(), goalID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"goal_id": goalID, "deleted": true})
}

func (s *Server) handleSetGoalStatus(w http.ResponseWriter, r *http.Request) {
	var req goalStatusRequest
	if err := s.decode(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	goalID := chi.URLParam(r, "goalID")
	if err := s.engine.SetGoalStatus(r.Context(), goalID, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"goal_id": goalID, "status": req.Status})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":    len(snap.Discipline),
		"taken_at": snap.TakenAt,
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	mismatches, err := s.engine.Reconcile(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"consistent": len(mismatches) == 0,
		"mismatches": mismatches,
	})
}

func (s *Server) handleDailyEnergy(w http.ResponseWriter, r *http.Request) {
	var req dayRequest
	if err := s.decode(r, &req, true); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.DistributeDaily(r.Context(), req.Day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
