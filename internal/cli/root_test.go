package cli

import (
	"context"
	"errors"
	"testing"

	"trivia-tracker/internal/config"
)

func TestRootFlagsFollowEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/trivia.yaml")
	t.Setenv("PORT", "7070")

	root := newRootCmd()
	if got := root.PersistentFlags().Lookup("config").DefValue; got != "/etc/trivia.yaml" {
		t.Fatalf("expected config from env, got %q", got)
	}
	if got := root.PersistentFlags().Lookup("port").DefValue; got != "7070" {
		t.Fatalf("expected port from env, got %q", got)
	}
	if _, _, err := root.Find([]string{"migrate"}); err != nil {
		t.Fatalf("migrate command missing: %v", err)
	}
}

func TestMigrateRequiresArchive(t *testing.T) {
	ctx := context.Background()
	if err := migrateArchive(ctx, config.Config{}); !errors.Is(err, errNoArchive) {
		t.Fatalf("expected errNoArchive, got %v", err)
	}
	if err := rollbackArchive(ctx, config.Config{}); !errors.Is(err, errNoArchive) {
		t.Fatalf("expected errNoArchive, got %v", err)
	}
}

func TestContestSettingsCarriesTeams(t *testing.T) {
	var cfg config.Config
	cfg.Contest.TeamName = "Team"
	cfg.Contest.Teams = 9

	s := contestSettings(cfg)
	if s.TeamName != "Team" || s.Teams != 9 || s.Rounds != 50 {
		t.Fatalf("unexpected settings %+v", s)
	}
}
