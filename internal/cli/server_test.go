package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"trivia-tracker/internal/config"
)

func TestBuildServiceWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	cfg.Contest.TeamName = "Team"
	cfg.Contest.Rounds = 2

	ctx := context.Background()
	service, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()

	if err := service.SetDiscrepancyText(ctx, 2, "check q7"); err != nil {
		t.Fatalf("command: %v", err)
	}
	if !mr.Exists("trivia:Team:snapshots") {
		t.Fatalf("expected round cached in redis")
	}
	if _, err := service.Connect(ctx, "alice"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !mr.Exists("trivia:Team:terminals") {
		t.Fatalf("expected terminal roster in redis")
	}
}

func TestBuildServiceInMemory(t *testing.T) {
	ctx := context.Background()
	service, cleanup, err := buildService(ctx, config.Config{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()

	if got := service.Trivia().NRounds(); got != 50 {
		t.Fatalf("expected default 50 rounds, got %d", got)
	}
	if n, err := service.Restore(ctx); err != nil || n != 0 {
		t.Fatalf("expected empty restore, got n=%d err=%v", n, err)
	}
}
