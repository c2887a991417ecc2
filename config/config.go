package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all configurable server parameters.
type Config struct {
	MaxHandSize int `json:"max_hand_size"`

	// TurnDurationsSec is the escalating list of allowed turn durations.
	// A player's turn uses the entry indexed by their consecutive-timeout
	// strike count, capped at the last (shortest) entry.
	TurnDurationsSec []int `json:"turn_durations_sec"`

	// GraceSec is the reconnection window after a mid-match disconnect.
	GraceSec int `json:"grace_sec"`

	// AIDifficulty is the opponent heuristic profile used for
	// timeout-forced moves: "hard", "medium" or "easy".
	AIDifficulty string `json:"ai_difficulty"`

	WSPort int `json:"ws_port"`

	// AuthBaseURL is the base URL of the external auth service whose JWKS
	// endpoint validates client tokens. Empty disables token validation
	// (dev mode: tokens are treated as opaque user ids).
	AuthBaseURL string `json:"auth_base_url"`

	// DatabaseURL is the Postgres connection string. Empty disables
	// persistence and the card collection falls back to the demo catalog.
	DatabaseURL string `json:"database_url"`
}

// Defaults returns a Config with the standard rule-set values.
func Defaults() *Config {
	return &Config{
		MaxHandSize:      5,
		TurnDurationsSec: []int{30, 15, 10, 5},
		GraceSec:         15,
		AIDifficulty:     "hard",
		WSPort:           8080,
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.MaxHandSize, "MAX_HAND_SIZE")
	overrideIntList(&cfg.TurnDurationsSec, "TURN_DURATIONS_SEC")
	overrideInt(&cfg.GraceSec, "GRACE_SEC")
	overrideString(&cfg.AIDifficulty, "AI_DIFFICULTY")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")

	if len(cfg.TurnDurationsSec) == 0 {
		cfg.TurnDurationsSec = Defaults().TurnDurationsSec
	}

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

// overrideIntList parses a comma-separated list, e.g. "30,15,10,5".
func overrideIntList(field *[]int, envKey string) {
	val := os.Getenv(envKey)
	if val == "" {
		return
	}
	parts := strings.Split(val, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
			return
		}
		out = append(out, n)
	}
	*field = out
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
