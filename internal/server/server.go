// Package server exposes the simulator over HTTP: JSON endpoints for
// one-shot simulations, the property catalog and run history, plus a
// websocket variant that streams progress.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/andromeda-ttrpg/gearsim/internal/catalog"
	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/sim"
	"github.com/andromeda-ttrpg/gearsim/internal/store"
)

// Store is the slice of run persistence the server needs. Nil disables
// history.
type Store interface {
	SaveRun(ctx context.Context, run store.Run) (store.Run, error)
	Recent(ctx context.Context, limit int) ([]store.Run, error)
}

type Server struct {
	log      *logrus.Logger
	catalog  *catalog.Catalog
	store    Store
	trialCap int
	workers  int
	router   *mux.Router
}

func New(log *logrus.Logger, cat *catalog.Catalog, st Store, trialCap, workers int) *Server {
	s := &Server{
		log:      log,
		catalog:  cat,
		store:    st,
		trialCap: trialCap,
		workers:  workers,
		router:   mux.NewRouter(),
	}
	s.router.HandleFunc("/api/simulate", s.handleSimulate).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/properties", s.handleProperties).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/runs", s.handleRuns).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/simulate", s.handleWS)
	return s
}

// Handler returns the root handler with CORS applied.
func (s *Server) Handler() http.Handler { return withCORS(s.router) }

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleProperties(w http.ResponseWriter, _ *http.Request) {
	defs := s.catalog.Definitions()
	out := make([]PropertyInfo, 0, len(defs))
	for _, d := range defs {
		info := PropertyInfo{
			Name:        d.Name,
			Kind:        d.Kind.String(),
			Category:    d.Category.String(),
			WeaponTypes: d.WeaponTypes,
		}
		if d.Kind == catalog.Ranked {
			info.DefaultX = d.DefaultX
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, []store.Run{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.log.WithError(err).Error("list runs")
		writeError(w, http.StatusInternalServerError, "run history unavailable")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	params, err := s.buildParams(req)
	if err != nil {
		s.writeSimError(w, err)
		return
	}
	res, err := sim.Run(r.Context(), params)
	if err != nil {
		s.writeSimError(w, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"rank":        req.Rank,
		"simulations": res.Trials,
		"w1_win_rate": res.Weapon1WinRate(),
	}).Info("simulation finished")
	s.persistRun(r.Context(), req, res)
	writeJSON(w, res.Report())
}

// buildParams validates the request and assembles the simulation inputs.
func (s *Server) buildParams(req SimulateRequest) (sim.Params, error) {
	w1, err := s.parseWeapon(req.Weapon1, req.Rank)
	if err != nil {
		return sim.Params{}, fmt.Errorf("weapon1: %w", err)
	}
	w2, err := s.parseWeapon(req.Weapon2, req.Rank)
	if err != nil {
		return sim.Params{}, fmt.Errorf("weapon2: %w", err)
	}
	return sim.Params{
		Rank:            req.Rank,
		Confidence:      req.Confidence,
		Weapon1:         w1,
		Weapon2:         w2,
		InitialDistance: req.InitialDistance,
		TrialCap:        s.trialCap,
		Workers:         s.workers,
	}, nil
}

func (s *Server) parseWeapon(req WeaponRequest, duelRank int) (*loadout.WeaponSpec, error) {
	rank := req.Rank
	if rank == 0 {
		rank = duelRank
	}
	return loadout.Parse(s.catalog, req.WeaponType, req.Damage, req.Properties, rank)
}

func (s *Server) writeSimError(w http.ResponseWriter, err error) {
	var verr *loadout.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusServiceUnavailable, "simulation cancelled")
		return
	}
	s.log.WithError(err).Error("simulation failed")
	writeError(w, http.StatusInternalServerError, "simulation failed")
}

// persistRun records the finished simulation. History is best-effort and
// never fails the request.
func (s *Server) persistRun(ctx context.Context, req SimulateRequest, res *sim.Result) {
	if s.store == nil {
		return
	}
	_, err := s.store.SaveRun(ctx, store.Run{
		Rank:           req.Rank,
		Confidence:     req.Confidence,
		Weapon1:        summarizeWeapon(req.Weapon1),
		Weapon2:        summarizeWeapon(req.Weapon2),
		Weapon1WinRate: res.Weapon1WinRate(),
		Weapon2WinRate: res.Weapon2WinRate(),
		AvgRounds:      res.AvgRounds(),
		Simulations:    res.Trials,
	})
	if err != nil {
		s.log.WithError(err).Warn("save run")
	}
}

func summarizeWeapon(req WeaponRequest) string {
	if len(req.Properties) == 0 {
		return fmt.Sprintf("%s %s", req.WeaponType, req.Damage)
	}
	return fmt.Sprintf("%s %s [%s]", req.WeaponType, req.Damage, strings.Join(req.Properties, ", "))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":  msg,
		"status": code,
	})
}

// simple CORS for GET/POST/OPTIONS
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
