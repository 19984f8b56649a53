package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// Handle upgrades the request and subscribes the connection to nestID.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request, nestID int64) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Warn("websocket accept", "error", err, "nest_id", nestID)
		return
	}
	defer conn.CloseNow()

	h.logger.Debug("feed subscriber connected", "nest_id", nestID)
	NewClient(h, conn, nestID).Run(r.Context())
}
