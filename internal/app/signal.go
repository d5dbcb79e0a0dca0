package app

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/junsooki/HDMIView/internal/signaling"
)

// NewSignalMux serves the WebSocket relay on /ws and the host list as JSON
// on /hosts.
func NewSignalMux(srv *signaling.Server, log *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	mux.HandleFunc("/hosts", func(w http.ResponseWriter, r *http.Request) {
		hosts := srv.Hosts()
		if hosts == nil {
			hosts = []signaling.HostInfo{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hosts); err != nil {
			log.Warn("write host list", zap.Error(err))
		}
	})
	return mux
}
