package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/andromeda-ttrpg/gearsim/internal/loadout"
	"github.com/andromeda-ttrpg/gearsim/internal/sim"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// progressEvery throttles websocket progress frames: one per this many
// completed trials, plus the final frame.
const progressEvery = 10_000

// handleWS runs one simulation per connection. The client sends a single
// SimulateRequest; the server streams progress frames and closes after
// the result frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	var req SimulateRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(errorFrame{Type: "error", Message: "invalid request"})
		return
	}
	params, err := s.buildParams(req)
	if err != nil {
		_ = conn.WriteJSON(errorFrame{Type: "error", Message: wsErrorMessage(err)})
		return
	}

	lastSent := 0
	params.OnProgress = func(done, total int) {
		if done-lastSent < progressEvery && done != total {
			return
		}
		lastSent = done
		_ = conn.WriteJSON(progressFrame{Type: "progress", Completed: done, Total: total})
	}

	res, err := sim.Run(r.Context(), params)
	if err != nil {
		s.log.WithError(err).Warn("websocket simulation")
		_ = conn.WriteJSON(errorFrame{Type: "error", Message: wsErrorMessage(err)})
		return
	}
	report := res.Report()
	_ = conn.WriteJSON(resultFrame{
		Type:        "result",
		Result:      report.Result,
		Simulations: report.Simulations,
		Exhausted:   report.Exhausted,
	})
}

func wsErrorMessage(err error) string {
	var verr *loadout.ValidationError
	if errors.As(err, &verr) {
		return err.Error()
	}
	return "simulation failed"
}
