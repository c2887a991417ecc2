package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"tetrad-server/auth"
	"tetrad-server/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MatchSource is what the hub needs from the matchmaker: permission to bind
// a user's connection to a seat of a live match.
type MatchSource interface {
	Attach(matchID, userID, rejoinToken string) (*game.Match, int, error)
}

// Hub maintains the set of active clients and routes disconnects into the
// owning match's action channel.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Matches    MatchSource
	Validate   auth.TokenValidator
}

// NewHub creates a new Hub.
func NewHub(matches MatchSource, validate auth.TokenValidator) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Matches:    matches,
		Validate:   validate,
	}
}

// Run starts the hub's main loop. Should be run as a goroutine. When ctx is
// cancelled (server shutdown), Run returns and no longer accepts
// registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("hub stopping", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "user", client.UserID, "total", len(h.Clients))

				// Start the reconnection window instead of ending the match.
				// The send channel identifies the connection: an evicted
				// duplicate unregistering later must not open a grace window
				// for the live one.
				if client.Match != nil && !client.Match.Finished() {
					select {
					case client.Match.Actions <- game.Action{
						Type: game.ActionPlayerDisconnected,
						Seat: client.Seat,
						Send: client.Send,
					}:
					default:
					}
				}
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
		Seat: -1,
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
