package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"tetrad-server/ability"
	"tetrad-server/ai"
	"tetrad-server/api"
	"tetrad-server/auth"
	"tetrad-server/collection"
	"tetrad-server/config"
	"tetrad-server/game"
	"tetrad-server/loghandler"
	"tetrad-server/matchmaking"
	"tetrad-server/storage"
	"tetrad-server/ws"
)

// logRewards is the default rewards sink: it just records match outcomes.
// A progression service would replace it.
type logRewards struct{}

func (logRewards) MatchEnded(matchID string, final *game.GameState, reason string) {
	slog.Info("match ended", "tag", "rewards", "match", matchID,
		"winner", final.WinnerID(), "reason", reason,
		"p1Score", final.Player1.Score, "p2Score", final.Player2.Score)
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables")
	}

	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	cfg := config.Load()
	ctx := context.Background()

	if cfg.AuthBaseURL == "" {
		slog.Warn("AUTH_BASE_URL not set; tokens are treated as opaque user ids (dev mode)")
	}
	slog.Info("configuration loaded", "tag", "main",
		"maxHandSize", cfg.MaxHandSize,
		"turnDurations", cfg.TurnDurationsSec, "graceSec", cfg.GraceSec,
		"aiDifficulty", cfg.AIDifficulty, "wsPort", cfg.WSPort)

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connecting to database", "tag", "main", "err", err)
		os.Exit(1)
	}
	if store == nil {
		slog.Warn("DATABASE_URL not set; match state will not be persisted")
	}

	var cards interface {
		game.Resolver
		matchmaking.DeckSource
	}
	colStore, err := collection.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connecting to card collection", "tag", "main", "err", err)
		os.Exit(1)
	}
	if colStore != nil {
		cards = colStore
	} else {
		slog.Warn("using built-in demo card collection")
		cards = collection.NewDemo()
	}

	registry := ability.NewRegistry()
	ability.RegisterBuiltins(registry)

	engine := game.NewEngine(cards, registry, cfg.MaxHandSize)
	mover := ai.New(cfg.AIDifficulty)
	validate := auth.NewValidator(cfg.AuthBaseURL)

	// storage.Store may be a typed nil; keep the interfaces nil in that case.
	var stateStore game.StateStore
	var history matchmaking.HistorySink
	if store != nil {
		stateStore = store
		history = store
	}
	mm := matchmaking.New(cfg, engine, cards, stateStore, history, logRewards{}, mover)

	hub := ws.NewHub(mm, validate)
	go hub.Run(ctx)

	handler := api.NewHandler(mm, store, validate)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/queue/join", handler.QueueJoin)
	mux.HandleFunc("/api/queue/status", handler.QueueStatus)
	mux.HandleFunc("/api/queue/leave", handler.QueueLeave)
	mux.HandleFunc("/api/match/", handler.MatchState)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	slog.Info("server listening", "tag", "main", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}
