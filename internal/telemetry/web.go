package telemetry

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/flightcore/internal/flight"
)

var upgrader = websocket.Upgrader{
	// Telemetry is read-only; any origin may watch.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewWebHandler serves the controller's telemetry snapshot as JSON at
// /api/state and as a websocket stream at /ws.
func NewWebHandler(ctrl *flight.Controller) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		snap := ctrl.TakeSnapshot()
		if !snap.HavePose {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			log.Printf("telemetry: json encode error: %v", err)
		}
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("telemetry: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(ctrl.TakeSnapshot()); err != nil {
				return
			}
		}
	})

	return mux
}

// ServeWeb blocks serving the telemetry endpoints on addr.
func ServeWeb(addr string, ctrl *flight.Controller) error {
	log.Printf("telemetry: web server listening on %s", addr)
	return http.ListenAndServe(addr, NewWebHandler(ctrl))
}
