package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tetrad-server/ability"
	"tetrad-server/ai"
	"tetrad-server/api"
	"tetrad-server/auth"
	"tetrad-server/collection"
	"tetrad-server/config"
	"tetrad-server/game"
	"tetrad-server/matchmaking"
	"tetrad-server/ws"
)

// setupTestServer wires the full server stack against the demo collection
// and the dev token validator (tokens are user ids).
func setupTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, func()) {
	t.Helper()

	demo := collection.NewDemo()
	registry := ability.NewRegistry()
	ability.RegisterBuiltins(registry)
	engine := game.NewEngine(demo, registry, cfg.MaxHandSize)
	mover := ai.New(cfg.AIDifficulty)
	validate := auth.NewValidator("")

	mm := matchmaking.New(cfg, engine, demo, nil, nil, nil, mover)
	hub := ws.NewHub(mm, validate)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	handler := api.NewHandler(mm, nil, validate)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/queue/join", handler.QueueJoin)
	mux.HandleFunc("/api/queue/status", handler.QueueStatus)
	mux.HandleFunc("/api/queue/leave", handler.QueueLeave)
	mux.HandleFunc("/api/match/", handler.MatchState)

	server := httptest.NewServer(mux)
	return server, server.Close
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.TurnDurationsSec = []int{10}
	cfg.GraceSec = 1
	return cfg
}

// postJSON issues an authenticated POST and decodes the JSON response.
func postJSON(t *testing.T, server *httptest.Server, path, token string, body any) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// queueBoth enqueues two users and returns the match id.
func queueBoth(t *testing.T, server *httptest.Server) string {
	t.Helper()
	code, _ := postJSON(t, server, "/api/queue/join", "alice", map[string]string{"deckRef": "deck-a"})
	if code != http.StatusOK {
		t.Fatalf("alice join: status %d", code)
	}
	code, res := postJSON(t, server, "/api/queue/join", "bob", map[string]string{"deckRef": "deck-b"})
	if code != http.StatusOK {
		t.Fatalf("bob join: status %d", code)
	}
	matchID, _ := res["matchId"].(string)
	if matchID == "" {
		t.Fatalf("expected matchId in pairing response, got %v", res)
	}
	return matchID
}

// connectWS creates a WebSocket connection to the test server.
func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return conn
}

// readMsg reads a JSON message from the WebSocket and returns it as a map.
func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v\ndata: %s", err, string(data))
	}
	return msg
}

// awaitMsg drains messages until one of the given type arrives.
func awaitMsg(t *testing.T, conn *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMsg(t, conn)
		if msg["type"] == typ {
			return msg
		}
	}
	t.Fatalf("never received %q", typ)
	return nil
}

// sendMsg sends a JSON message over the WebSocket.
func sendMsg(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

// joinMatch performs the join_game handshake for one user.
func joinMatch(t *testing.T, conn *websocket.Conn, matchID, token string) map[string]interface{} {
	t.Helper()
	sendMsg(t, conn, map[string]string{"type": "join_game", "matchId": matchID, "token": token})
	return awaitMsg(t, conn, "joined")
}

func TestIntegration_QueueRequiresAuth(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	code, _ := postJSON(t, server, "/api/queue/join", "", map[string]string{"deckRef": "deck-a"})
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", code)
	}
}

func TestIntegration_QueuePairing(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	code, res := postJSON(t, server, "/api/queue/join", "alice", map[string]string{"deckRef": "deck-a"})
	if code != http.StatusOK || res["status"] != "queued" {
		t.Fatalf("expected queued, got %d %v", code, res)
	}

	// Double-join conflicts.
	code, _ = postJSON(t, server, "/api/queue/join", "alice", map[string]string{"deckRef": "deck-a"})
	if code != http.StatusConflict {
		t.Fatalf("expected 409 for double join, got %d", code)
	}

	code, res = postJSON(t, server, "/api/queue/join", "bob", map[string]string{"deckRef": "deck-b"})
	if code != http.StatusOK || res["status"] != "matched" {
		t.Fatalf("expected matched, got %d %v", code, res)
	}
}

func TestIntegration_FullMatchFlow(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	matchID := queueBoth(t, server)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)
	defer conn2.Close()

	joined1 := joinMatch(t, conn1, matchID, "alice")
	if joined1["playerSlot"] != float64(0) {
		t.Fatalf("expected alice in slot 0, got %v", joined1["playerSlot"])
	}
	if joined1["rejoinToken"] == "" {
		t.Fatal("expected a rejoin token")
	}

	joined2 := joinMatch(t, conn2, matchID, "bob")
	if joined2["playerSlot"] != float64(1) {
		t.Fatalf("expected bob in slot 1, got %v", joined2["playerSlot"])
	}

	// Both joined: the match activates and announces the first turn.
	st1 := awaitMsg(t, conn1, "start_turn")
	st2 := awaitMsg(t, conn2, "start_turn")
	if st1["currentPlayerId"] != "alice" || st2["currentPlayerId"] != "alice" {
		t.Fatalf("expected alice to open, got %v / %v", st1["currentPlayerId"], st2["currentPlayerId"])
	}

	// Alice plays the first card of her hand.
	gameState := joined1["gameState"].(map[string]interface{})
	hand := gameState["hand"].([]interface{})
	if len(hand) != 5 {
		t.Fatalf("expected an opening hand of 5, got %d", len(hand))
	}
	cardID := hand[0].(map[string]interface{})["instanceId"].(string)

	sendMsg(t, conn1, map[string]interface{}{
		"type": "action", "matchId": matchID, "actionType": "place_card",
		"cardInstanceId": cardID, "position": map[string]int{"x": 1, "y": 1},
	})

	ev1 := awaitMsg(t, conn1, "events")
	awaitMsg(t, conn2, "events")
	applied := ev1["appliedEvents"].([]interface{})
	if len(applied) == 0 {
		t.Fatal("expected applied events for the placement")
	}
	first := applied[0].(map[string]interface{})
	if first["type"] != "placed" {
		t.Fatalf("expected a placed event first, got %v", first["type"])
	}

	next1 := awaitMsg(t, conn1, "start_turn")
	if next1["currentPlayerId"] != "bob" {
		t.Fatalf("expected the turn to pass to bob, got %v", next1["currentPlayerId"])
	}

	// Playing out of turn is rejected to the actor only.
	sendMsg(t, conn1, map[string]interface{}{
		"type": "action", "matchId": matchID, "actionType": "place_card",
		"cardInstanceId": cardID, "position": map[string]int{"x": 0, "y": 0},
	})
	awaitMsg(t, conn1, "error")

	// Bob surrenders; both sides see the result.
	sendMsg(t, conn2, map[string]interface{}{"type": "action", "matchId": matchID, "actionType": "surrender"})
	end1 := awaitMsg(t, conn1, "game_end")
	end2 := awaitMsg(t, conn2, "game_end")
	if end1["winnerId"] != "alice" || end2["winnerId"] != "alice" {
		t.Fatalf("expected alice to win by surrender, got %v / %v", end1["winnerId"], end2["winnerId"])
	}
	if end1["reason"] != "surrender" {
		t.Fatalf("expected reason surrender, got %v", end1["reason"])
	}
}

func TestIntegration_JoinUnknownMatch(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]string{"type": "join_game", "matchId": "no-such-match", "token": "alice"})
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for unknown match, got %v", msg["type"])
	}
}

func TestIntegration_NonParticipantRejected(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	matchID := queueBoth(t, server)
	conn := connectWS(t, server)
	defer conn.Close()

	sendMsg(t, conn, map[string]string{"type": "join_game", "matchId": matchID, "token": "mallory"})
	msg := readMsg(t, conn)
	if msg["type"] != "error" {
		t.Fatalf("expected error for non-participant, got %v", msg["type"])
	}
}

func TestIntegration_DisconnectForfeitsAfterGrace(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	matchID := queueBoth(t, server)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)

	joinMatch(t, conn1, matchID, "alice")
	joinMatch(t, conn2, matchID, "bob")
	awaitMsg(t, conn1, "start_turn")

	conn2.Close()

	notice := awaitMsg(t, conn1, "opponent_reconnecting")
	if notice["graceDeadlineUnixMs"] == nil {
		t.Fatal("expected a grace deadline")
	}

	// GraceSec is 1; the forfeit should land well within the read deadline.
	end := awaitMsg(t, conn1, "game_end")
	if end["winnerId"] != "alice" || end["reason"] != "disconnect" {
		t.Fatalf("expected alice to win by disconnect, got %v", end)
	}
}

func TestIntegration_RejoinWithinGrace(t *testing.T) {
	cfg := testConfig()
	cfg.GraceSec = 5
	server, cleanup := setupTestServer(t, cfg)
	defer cleanup()

	matchID := queueBoth(t, server)

	conn1 := connectWS(t, server)
	defer conn1.Close()
	conn2 := connectWS(t, server)

	joinMatch(t, conn1, matchID, "alice")
	joined := joinMatch(t, conn2, matchID, "bob")
	rejoinToken := joined["rejoinToken"].(string)
	awaitMsg(t, conn1, "start_turn")

	conn2.Close()
	awaitMsg(t, conn1, "opponent_reconnecting")

	fresh := connectWS(t, server)
	defer fresh.Close()
	sendMsg(t, fresh, map[string]string{
		"type": "join_game", "matchId": matchID, "token": "bob", "rejoinToken": rejoinToken,
	})
	awaitMsg(t, fresh, "joined")
	awaitMsg(t, conn1, "opponent_reconnected")
}

func TestIntegration_MatchStateEndpoint(t *testing.T) {
	server, cleanup := setupTestServer(t, testConfig())
	defer cleanup()

	matchID := queueBoth(t, server)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/match/"+matchID, nil)
	req.Header.Set("Authorization", "Bearer alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get match state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view["matchId"] != matchID {
		t.Fatalf("expected matchId %s, got %v", matchID, view["matchId"])
	}
	board := view["board"].([]interface{})
	if len(board) != 16 {
		t.Fatalf("expected 16 board cells, got %d", len(board))
	}

	// A non-participant cannot read the state.
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/api/match/"+matchID, nil)
	req.Header.Set("Authorization", "Bearer mallory")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get match state: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-participant, got %d", resp2.StatusCode)
	}
}
