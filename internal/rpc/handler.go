package rpc

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeJamon/goDCA/internal/metrics"
)

// HandlerConfig selects what NewHandler mounts.
type HandlerConfig struct {
	RPC       *Server
	WebSocket *WebSocketServer

	// MetricsPath serves Gatherer when both are set.
	MetricsPath string
	Gatherer    prometheus.Gatherer
}

// NewHandler routes JSON-RPC on / and /rpc, WebSocket on /ws, a health
// probe on /health and optionally the metrics endpoint.
func NewHandler(cfg HandlerConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", cfg.RPC)
	mux.Handle("/rpc", cfg.RPC)
	if cfg.WebSocket != nil {
		mux.Handle("/ws", cfg.WebSocket)
	}
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"sequence": cfg.RPC.services.Engine.Sequence(),
		})
	})
	if cfg.MetricsPath != "" && cfg.Gatherer != nil {
		mux.Handle(cfg.MetricsPath, metrics.Handler(cfg.Gatherer))
	}
	return mux
}
