package config

import (
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.MaxHandSize != 5 {
		t.Errorf("MaxHandSize: got %d, want 5", cfg.MaxHandSize)
	}
	want := []int{30, 15, 10, 5}
	if len(cfg.TurnDurationsSec) != len(want) {
		t.Fatalf("TurnDurationsSec: got %v, want %v", cfg.TurnDurationsSec, want)
	}
	for i, d := range want {
		if cfg.TurnDurationsSec[i] != d {
			t.Errorf("TurnDurationsSec[%d]: got %d, want %d", i, cfg.TurnDurationsSec[i], d)
		}
	}
	if cfg.GraceSec != 15 {
		t.Errorf("GraceSec: got %d, want 15", cfg.GraceSec)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MAX_HAND_SIZE", "6")
	t.Setenv("TURN_DURATIONS_SEC", "20,10,5")
	t.Setenv("GRACE_SEC", "30")
	t.Setenv("AI_DIFFICULTY", "easy")

	cfg := Load()
	if cfg.MaxHandSize != 6 {
		t.Errorf("MaxHandSize override: got %d, want 6", cfg.MaxHandSize)
	}
	if len(cfg.TurnDurationsSec) != 3 || cfg.TurnDurationsSec[0] != 20 || cfg.TurnDurationsSec[2] != 5 {
		t.Errorf("TurnDurationsSec override: got %v, want [20 10 5]", cfg.TurnDurationsSec)
	}
	if cfg.GraceSec != 30 {
		t.Errorf("GraceSec override: got %d, want 30", cfg.GraceSec)
	}
	if cfg.AIDifficulty != "easy" {
		t.Errorf("AIDifficulty override: got %q, want easy", cfg.AIDifficulty)
	}
}

func TestEnvOverrideInvalidListIgnored(t *testing.T) {
	t.Setenv("TURN_DURATIONS_SEC", "30,abc")
	cfg := Load()
	want := Defaults().TurnDurationsSec
	if len(cfg.TurnDurationsSec) != len(want) {
		t.Errorf("invalid list should keep defaults: got %v", cfg.TurnDurationsSec)
	}
}
