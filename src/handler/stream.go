package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes the composite state snapshot to a websocket client on
// a fixed interval, the live-broadcast boundary the dashboard consumes. A
// write failure just ends the session; the pipeline is untouched.
func StreamHandler(svc *StateService, interval time.Duration) http.HandlerFunc {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WithError(err).Warn("Failed to upgrade state stream connection")
			return
		}
		defer conn.Close()

		logger.WithField("remote", conn.RemoteAddr().String()).Info("State stream client connected")

		if err := conn.WriteJSON(svc.Snapshot(r.Context())); err != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if err := conn.WriteJSON(svc.Snapshot(r.Context())); err != nil {
					logger.WithField("remote", conn.RemoteAddr().String()).
						Debug("State stream client disconnected")
					return
				}
			}
		}
	}
}
