package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"tetrad-server/game"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and the match it
// is attached to.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	Match  *game.Match
	Seat   int // 0 or 1 within the match; -1 before join_game
}

// ReadPump pumps messages from the websocket connection into the match.
// It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read", "tag", "ws", "err", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection. It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if message == nil {
				// Server-initiated close: this session was evicted by a
				// newer connection for the same seat.
				c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session evicted"))
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "join_game":
		c.handleJoinGame(envelope.Raw)
	case "action":
		c.handleAction(envelope.Raw)
	case "animations_complete":
		c.handleAnimationsComplete()
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

// handleJoinGame authenticates the connection and binds it to its seat. A
// second connection for the same seat evicts the first; a rejoin within the
// grace window cancels the pending forfeit.
func (c *Client) handleJoinGame(raw json.RawMessage) {
	var msg JoinGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid join_game message.")
		return
	}

	userID, err := c.Hub.Validate(msg.Token)
	if err != nil {
		c.sendError("Authentication failed.")
		return
	}

	m, seat, err := c.Hub.Matches.Attach(msg.MatchID, userID, msg.RejoinToken)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	c.UserID = userID
	c.Match = m
	c.Seat = seat

	c.sendAction(game.Action{
		Type: game.ActionAttach,
		Seat: seat,
		Send: c.Send,
	})
}

// sendAction queues an action for the match loop, giving up if the loop has
// already exited so a finished match can never wedge the read pump.
func (c *Client) sendAction(a game.Action) {
	select {
	case c.Match.Actions <- a:
	case <-c.Match.Done:
		c.sendError("Match has already ended.")
	}
}

func (c *Client) handleAction(raw json.RawMessage) {
	if c.Match == nil {
		c.sendError("You are not in a match.")
		return
	}

	var msg ActionMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid action message.")
		return
	}

	// Send identifies this connection so the match can drop actions still
	// flushing out of an evicted session's read loop.
	switch msg.ActionType {
	case "place_card":
		if msg.Position == nil {
			c.sendError("place_card requires a position.")
			return
		}
		c.sendAction(game.Action{
			Type:           game.ActionPlaceCard,
			Seat:           c.Seat,
			CardInstanceID: msg.CardInstanceID,
			Pos:            game.Position{X: msg.Position.X, Y: msg.Position.Y},
			Send:           c.Send,
		})
	case "end_turn":
		c.sendAction(game.Action{Type: game.ActionEndTurn, Seat: c.Seat, Send: c.Send})
	case "surrender":
		c.sendAction(game.Action{Type: game.ActionSurrender, Seat: c.Seat, Send: c.Send})
	default:
		c.sendError("Unknown action type: " + msg.ActionType)
	}
}

func (c *Client) handleAnimationsComplete() {
	if c.Match == nil {
		return
	}
	// Advisory; the match ignores it but the envelope stays valid protocol.
	select {
	case c.Match.Actions <- game.Action{Type: game.ActionAnimationsComplete, Seat: c.Seat}:
	default:
	}
}

func (c *Client) sendError(message string) {
	msg := ErrorMsg{Type: "error", Message: message}
	data, _ := json.Marshal(msg)
	select {
	case c.Send <- data:
	default:
	}
}
