package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadContestSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
redis:
  ttl: 30m
contest:
  team_name: Knights Who Say Ni
  rounds: 8
  questions_speed: 25
  teams: 14
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}
	s := cfg.ContestSettings()
	if s.TeamName != "Knights Who Say Ni" || s.Rounds != 8 || s.QuestionsSpeed != 25 {
		t.Fatalf("unexpected settings %+v", s)
	}
	if s.Teams != 14 {
		t.Fatalf("expected 14 teams, got %d", s.Teams)
	}
	if s.QuestionsNormal != defaultQuestionsNormal {
		t.Fatalf("expected default normal count, got %d", s.QuestionsNormal)
	}
	if d := TTLDuration(cfg.Redis.TTL, time.Minute); d != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", d)
	}
	if d := TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback ttl, got %v", d)
	}
}
