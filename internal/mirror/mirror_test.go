package mirror_test

import (
	"context"
	"testing"

	"trivia-tracker/internal/app"
	"trivia-tracker/internal/domain"
	"trivia-tracker/internal/infra/memory"
	"trivia-tracker/internal/mirror"
)

func TestMirrorConvergesAfterMissedPolls(t *testing.T) {
	ctx := context.Background()
	service := app.NewContestService(
		app.NewTrivia(app.Settings{TeamName: "Team", Rounds: 4, QuestionsNormal: 3, QuestionsSpeed: 5}),
		memory.NewRoundStore(),
		memory.NewTerminalRegistry(),
	)
	m := mirror.New()

	m.Apply(service.Poll(ctx, m.Versions()))
	if got := len(m.Versions()); got != 4 {
		t.Fatalf("expected cursor for 4 rounds, got %d", got)
	}
	if _, ok := m.Round(2); !ok {
		t.Fatalf("expected every round received on first poll")
	}

	// Several mutations across rounds without polling in between.
	_ = service.OpenQuestion(ctx, 2, 1, 3, "q")
	_ = service.ProposeAnswer(ctx, 2, 1, "answer", "alice", 1)
	_ = service.SetStandings(ctx, 4, []domain.Standing{{Team: "A"}, {Team: "B"}, {Team: "Team"}})
	service.AdvanceRound(ctx)

	result := service.Poll(ctx, m.Versions())
	if len(result.Rounds) != 2 {
		t.Fatalf("expected rounds 2 and 4, got %d rounds", len(result.Rounds))
	}
	m.Apply(result)

	r2, _ := m.Round(2)
	if len(r2.Answers) != 1 || !r2.Questions[0].Open {
		t.Fatalf("mirror missed round 2 changes: %+v", r2)
	}
	if m.NTeams() != 3 || m.CurrentRound() != 2 || m.TeamName() != "Team" {
		t.Fatalf("unexpected root state teams=%d current=%d team=%q", m.NTeams(), m.CurrentRound(), m.TeamName())
	}
	if got := service.Poll(ctx, m.Versions()); len(got.Rounds) != 0 {
		t.Fatalf("expected converged mirror, got %d changed rounds", len(got.Rounds))
	}
}

func TestMirrorAdoptsSnapshotVersion(t *testing.T) {
	m := mirror.New()
	m.Apply(domain.Sync{NRounds: 2, Rounds: []domain.RoundSnapshot{{Number: 2, Version: 7}, {Number: 5, Version: 1}}})

	versions := m.Versions()
	if len(versions) != 2 || versions[0] != -1 || versions[1] != 7 {
		t.Fatalf("unexpected versions %v", versions)
	}
	if _, ok := m.Round(1); ok {
		t.Fatalf("round 1 was never received")
	}
}

func TestMirrorPrefersLargerTeamCount(t *testing.T) {
	m := mirror.New()
	m.Apply(domain.Sync{NRounds: 1, NTeams: 10})
	if got := m.NTeams(); got != 10 {
		t.Fatalf("expected configured 10 teams, got %d", got)
	}
	standings := make([]domain.Standing, 12)
	m.Apply(domain.Sync{NRounds: 1, NTeams: 10, Rounds: []domain.RoundSnapshot{{Number: 1, Version: 1, Standings: standings}}})
	if got := m.NTeams(); got != 12 {
		t.Fatalf("expected standings to raise team count to 12, got %d", got)
	}
}
