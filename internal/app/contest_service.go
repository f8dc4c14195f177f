package app

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"trivia-tracker/internal/domain"
)

// RoundStore abstracts where round snapshots are kept between runs
// (in-memory, Redis, Postgres).
type RoundStore interface {
	SaveRound(ctx context.Context, team string, snap domain.RoundSnapshot) error
	LoadRounds(ctx context.Context, team string) ([]domain.RoundSnapshot, error)
}

// TerminalRegistry tracks the terminals connected to the contest.
type TerminalRegistry interface {
	Register(ctx context.Context, terminal domain.Terminal) error
	Unregister(ctx context.Context, id string)
	List(ctx context.Context) ([]domain.Terminal, error)
}

// ContestService is the command surface of a contest. Commands are
// addressed by round number and produce no result beyond an error; their
// effects are observed through Poll.
type ContestService struct {
	trivia    *Trivia
	store     RoundStore
	terminals TerminalRegistry
	now       func() time.Time
	polls     singleflight.Group
}

func NewContestService(trivia *Trivia, store RoundStore, terminals TerminalRegistry) *ContestService {
	return &ContestService{trivia: trivia, store: store, terminals: terminals, now: time.Now}
}

// Trivia exposes the underlying aggregate for read-only queries.
func (s *ContestService) Trivia() *Trivia {
	return s.trivia
}

// Restore loads archived snapshots for the team into the contest.
func (s *ContestService) Restore(ctx context.Context) (int, error) {
	snaps, err := s.store.LoadRounds(ctx, s.trivia.Settings().TeamName)
	if err != nil {
		return 0, err
	}
	return s.trivia.Restore(snaps), nil
}

// ProposeAnswer enqueues a candidate answer for a question.
func (s *ContestService) ProposeAnswer(ctx context.Context, round, question int, text, submitter string, confidence int) error {
	return s.apply(ctx, round, func(r *Round) error {
		_, err := r.ProposeAnswer(question, text, submitter, confidence)
		return err
	})
}

// CallIn marks an answer as being called in.
func (s *ContestService) CallIn(ctx context.Context, round, queue int, caller string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.CallIn(queue, caller) })
}

func (s *ContestService) MarkCorrect(ctx context.Context, round, queue int, caller string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.MarkCorrect(queue, caller) })
}

func (s *ContestService) MarkIncorrect(ctx context.Context, round, queue int, caller string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.MarkIncorrect(queue, caller) })
}

func (s *ContestService) MarkPartial(ctx context.Context, round, queue int, caller string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.MarkPartial(queue, caller) })
}

func (s *ContestService) MarkUncalled(ctx context.Context, round, queue int) error {
	return s.apply(ctx, round, func(r *Round) error { return r.MarkUncalled(queue) })
}

func (s *ContestService) MarkDuplicate(ctx context.Context, round, queue int) error {
	return s.apply(ctx, round, func(r *Round) error { return r.MarkDuplicate(queue) })
}

func (s *ContestService) SetOperator(ctx context.Context, round, queue int, operator string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.SetOperator(queue, operator) })
}

func (s *ContestService) OpenQuestion(ctx context.Context, round, question, value int, text string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.OpenQuestion(question, value, text) })
}

func (s *ContestService) CloseQuestion(ctx context.Context, round, question int, answerText string) error {
	return s.apply(ctx, round, func(r *Round) error { return r.CloseQuestion(question, answerText) })
}

func (s *ContestService) ReopenQuestion(ctx context.Context, round, question int) error {
	return s.apply(ctx, round, func(r *Round) error { return r.ReopenQuestion(question) })
}

func (s *ContestService) ResetQuestion(ctx context.Context, round, question int) error {
	return s.apply(ctx, round, func(r *Round) error { return r.ResetQuestion(question) })
}

func (s *ContestService) RemapQuestion(ctx context.Context, round, from, to int) error {
	return s.apply(ctx, round, func(r *Round) error { return r.RemapQuestion(from, to) })
}

func (s *ContestService) SetSpeed(ctx context.Context, round int, speed bool) error {
	return s.apply(ctx, round, func(r *Round) error {
		r.SetSpeed(speed)
		return nil
	})
}

func (s *ContestService) SetAnnounced(ctx context.Context, round, points, place int) error {
	return s.apply(ctx, round, func(r *Round) error {
		r.SetAnnounced(points, place)
		return nil
	})
}

// SetStandings records every team's announced score for the round; this
// team's entry becomes the round's announced score.
func (s *ContestService) SetStandings(ctx context.Context, round int, standings []domain.Standing) error {
	team := s.trivia.Settings().TeamName
	return s.apply(ctx, round, func(r *Round) error {
		r.SetStandings(team, standings)
		return nil
	})
}

func (s *ContestService) SetDiscrepancyText(ctx context.Context, round int, text string) error {
	return s.apply(ctx, round, func(r *Round) error {
		r.SetDiscrepancyText(text)
		return nil
	})
}

// AdvanceRound moves the contest to the next round and logs the score of the
// round being left.
func (s *ContestService) AdvanceRound(_ context.Context) int {
	if r, err := s.trivia.Round(s.trivia.CurrentRound()); err == nil {
		log.Printf("leaving round %d: earned %d of %d", r.Number(), r.Earned(), r.Value())
	}
	return s.trivia.AdvanceRound()
}

// Poll returns the rounds whose version differs from known. Concurrent polls
// with the same cursor against the same server versions share one
// computation, so callers must treat the result as read-only.
func (s *ContestService) Poll(_ context.Context, known []int) domain.Sync {
	key := pollKey(known) + "|" + pollKey(s.trivia.Versions()) + "|" + strconv.Itoa(s.trivia.CurrentRound())
	result, _, _ := s.polls.Do(key, func() (interface{}, error) {
		return s.trivia.Poll(known), nil
	})
	return result.(domain.Sync)
}

// Subscribe returns a channel of change hints.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *ContestService) Subscribe(_ context.Context) (<-chan domain.RoundChange, func()) {
	return s.trivia.Subscribe()
}

// Connect registers a terminal for user and returns it.
func (s *ContestService) Connect(ctx context.Context, user string) (domain.Terminal, error) {
	terminal := domain.Terminal{
		ID:          uuid.NewString(),
		User:        user,
		ConnectedAt: s.now(),
	}
	if err := s.terminals.Register(ctx, terminal); err != nil {
		return domain.Terminal{}, err
	}
	return terminal, nil
}

// Disconnect drops a terminal from the roster.
func (s *ContestService) Disconnect(ctx context.Context, id string) {
	s.terminals.Unregister(ctx, id)
}

// Terminals lists the connected terminals.
func (s *ContestService) Terminals(ctx context.Context) ([]domain.Terminal, error) {
	return s.terminals.List(ctx)
}

// apply runs one mutation against a round, then archives the round and
// publishes a change hint. Archiving is best effort: the in-memory round is
// authoritative once the mutation commits.
func (s *ContestService) apply(ctx context.Context, round int, mutate func(*Round) error) error {
	r, err := s.trivia.Round(round)
	if err != nil {
		return err
	}
	if err := mutate(r); err != nil {
		return err
	}
	snap := r.Snapshot()
	if err := s.store.SaveRound(ctx, s.trivia.Settings().TeamName, snap); err != nil {
		log.Printf("archive round %d v%d: %v", snap.Number, snap.Version, err)
	}
	s.trivia.publish(domain.RoundChange{Round: snap.Number, Version: snap.Version})
	return nil
}

func pollKey(known []int) string {
	var b strings.Builder
	for i, v := range known {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String()
}
