package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-tracker/internal/domain"
)

func TestTerminalRegistrySetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewTerminalRegistry(client, "team", time.Minute)

	at := time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)
	if err := registry.Register(ctx, domain.Terminal{ID: "t1", User: "alice", ConnectedAt: at}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !mr.Exists("trivia:team:terminals") {
		t.Fatalf("expected redis key to be set")
	}
	list, err := registry.List(ctx)
	if err != nil || len(list) != 1 || list[0].User != "alice" {
		t.Fatalf("unexpected roster %+v err=%v", list, err)
	}

	registry.Unregister(ctx, "t1")
	if mr.Exists("trivia:team:terminals") {
		t.Fatalf("expected redis key to be removed")
	}
}
