package signaling

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/niggl1/interfoneapp/internal/auth"
)

// Handler upgrades HTTP requests to signaling connections.
type Handler struct {
	log      *slog.Logger
	relay    *Relay
	tokens   *auth.Manager
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, relay *Relay, tokens *auth.Manager, allowedOrigins []string) *Handler {
	if log == nil {
		log = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		log:    log,
		relay:  relay,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(req *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// Serve handles GET /ws. A valid bearer token (header or ?token=) yields a
// user connection; anything else falls back to a visitor identity so the
// street panel can always connect.
func (h *Handler) Serve(c *gin.Context) {
	identity := auth.ResolveHandshake(h.tokens, c, time.Now())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := NewClient(uuid.NewString(), identity, conn, h.log)
	h.relay.Connect(client)

	go client.writePump()
	go client.readPump(h.relay)
}
