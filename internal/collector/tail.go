package collector

import (
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// TailHandler upgrades the request to a WebSocket and streams every
// received event to the client as JSON text frames. Slow clients have
// events dropped by the broker rather than stalling ingestion.
func TailHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("tail upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		go func() {
			defer conn.Close()

			id, ch := broker.Subscribe()
			defer broker.Unsubscribe(id)
			slog.Info("tail client connected", "remote", r.RemoteAddr, "clients", broker.ClientCount())

			// Reader side only watches for the client going away.
			closed := make(chan struct{})
			go func() {
				defer close(closed)
				for {
					if _, _, err := wsutil.ReadClientData(conn); err != nil {
						return
					}
				}
			}()

			for {
				select {
				case <-closed:
					slog.Info("tail client disconnected", "remote", r.RemoteAddr)
					return
				case payload, ok := <-ch:
					if !ok {
						return
					}
					if err := wsutil.WriteServerText(conn, []byte(payload)); err != nil {
						slog.Debug("tail write failed", "remote", r.RemoteAddr, "error", err)
						return
					}
				}
			}
		}()
	}
}
