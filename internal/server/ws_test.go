package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/simulate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWSSimulateStreamsResult(t *testing.T) {
	conn := dialWS(t, newTestServer(nil))

	require.NoError(t, conn.WriteJSON(SimulateRequest{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    WeaponRequest{WeaponType: "melee", Damage: "3"},
		Weapon2:    WeaponRequest{WeaponType: "ranged", Damage: "3"},
	}))

	sawProgress := false
	for {
		var frame map[string]json.RawMessage
		require.NoError(t, conn.ReadJSON(&frame))

		var kind string
		require.NoError(t, json.Unmarshal(frame["type"], &kind))
		switch kind {
		case "progress":
			sawProgress = true
		case "result":
			var sims int
			require.NoError(t, json.Unmarshal(frame["simulations"], &sims))
			require.Equal(t, 2_000, sims)
			require.True(t, sawProgress, "result arrived without any progress frame")
			return
		case "error":
			t.Fatalf("error frame: %s", frame["message"])
		default:
			t.Fatalf("unknown frame type %q", kind)
		}
	}
}

func TestWSSimulateReportsValidationError(t *testing.T) {
	conn := dialWS(t, newTestServer(nil))

	require.NoError(t, conn.WriteJSON(SimulateRequest{
		Rank:       1,
		Confidence: 0.99,
		Weapon1:    WeaponRequest{WeaponType: "melee", Damage: "3", Properties: []string{"Frostbite"}},
		Weapon2:    WeaponRequest{WeaponType: "melee", Damage: "3"},
	}))

	var frame errorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "error", frame.Type)
	require.Contains(t, frame.Message, "Frostbite")
}
