package app

import (
	"strings"
	"sync"
	"time"

	"trivia-tracker/internal/domain"
)

// Round is the unit of locking and of synchronization. Every exported
// mutator takes the round lock, validates, mutates and bumps the version
// exactly once; a rejected call leaves both state and version untouched.
type Round struct {
	number int
	now    func() time.Time

	mu              sync.RWMutex
	version         int
	speed           bool
	normal          []domain.Question
	speedSet        []domain.Question
	answers         []domain.Answer
	announced       bool
	announcedPoints int
	place           int
	standings       []domain.Standing
	discrepancy     string
}

func newRound(number, nNormal, nSpeed int, now func() time.Time) *Round {
	return &Round{
		number:   number,
		now:      now,
		normal:   domain.NewQuestions(nNormal),
		speedSet: domain.NewQuestions(nSpeed),
	}
}

// Number is the round's fixed position in the contest.
func (r *Round) Number() int {
	return r.number
}

// Version returns the current sync cursor.
func (r *Round) Version() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// ProposeAnswer appends a new answer and returns its queue location. A
// proposal matching a live answer to the same question enters the queue as
// a duplicate.
func (r *Round) ProposeAnswer(questionNumber int, text, submitter string, confidence int) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrEmptyAnswer
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.questionLocked(questionNumber); err != nil {
		return 0, err
	}
	answer := domain.Answer{
		QueueLocation:  len(r.answers) + 1,
		QuestionNumber: questionNumber,
		Speed:          r.speed,
		Text:           text,
		Confidence:     confidence,
		Submitter:      submitter,
		Timestamp:      r.now(),
		Status:         domain.StatusNotCalledIn,
	}
	for i := range r.answers {
		if answer.SameAnswer(r.answers[i]) {
			answer.Status = domain.StatusDuplicate
			r.answers[i].Agree(submitter)
			break
		}
	}
	r.answers = append(r.answers, answer)
	r.commitLocked()
	return answer.QueueLocation, nil
}

// CallIn marks an uncalled answer as being called in by caller.
func (r *Round) CallIn(queueIndex int, caller string) error {
	return r.transition(queueIndex, domain.StatusCalling, caller)
}

// MarkCorrect grades the answer correct and closes its question with the
// answer's text and submitter.
func (r *Round) MarkCorrect(queueIndex int, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	answer, err := r.answerLocked(queueIndex)
	if err != nil {
		return err
	}
	if !domain.CanTransition(answer.Status, domain.StatusCorrect) {
		return domain.ErrInvalidTransition
	}
	question, err := r.slotLocked(answer.Speed, answer.QuestionNumber)
	if err != nil {
		return err
	}
	if question.DecidedBy != 0 && question.DecidedBy != answer.QueueLocation {
		return domain.ErrQuestionDecided
	}
	answer.Status = domain.StatusCorrect
	if caller != "" {
		answer.Caller = caller
	}
	question.MarkCorrect(answer.Text, answer.Submitter, answer.Operator, answer.QueueLocation)
	r.commitLocked()
	return nil
}

// MarkIncorrect grades the answer incorrect.
func (r *Round) MarkIncorrect(queueIndex int, caller string) error {
	return r.transition(queueIndex, domain.StatusIncorrect, caller)
}

// MarkPartial grades the answer partially correct.
func (r *Round) MarkPartial(queueIndex int, caller string) error {
	return r.transition(queueIndex, domain.StatusPartial, caller)
}

// MarkUncalled reverts the answer to its initial status.
func (r *Round) MarkUncalled(queueIndex int) error {
	return r.transition(queueIndex, domain.StatusNotCalledIn, "")
}

// MarkDuplicate forces the answer to duplicate and tags every live sibling
// with the same normalized text as agreed by its submitter.
func (r *Round) MarkDuplicate(queueIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	answer, err := r.answerLocked(queueIndex)
	if err != nil {
		return err
	}
	r.setStatusLocked(answer, domain.StatusDuplicate)
	for i := range r.answers {
		sibling := &r.answers[i]
		if sibling.QueueLocation == answer.QueueLocation {
			continue
		}
		if answer.SameAnswer(*sibling) {
			sibling.Agree(answer.Submitter)
		}
	}
	r.commitLocked()
	return nil
}

// SetOperator records who is handling the answer.
func (r *Round) SetOperator(queueIndex int, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	answer, err := r.answerLocked(queueIndex)
	if err != nil {
		return err
	}
	answer.Operator = operator
	if q := r.decidedByLocked(answer.QueueLocation); q != nil {
		q.Operator = operator
	}
	r.commitLocked()
	return nil
}

func (r *Round) transition(queueIndex int, to domain.AnswerStatus, caller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	answer, err := r.answerLocked(queueIndex)
	if err != nil {
		return err
	}
	if !domain.CanTransition(answer.Status, to) {
		return domain.ErrInvalidTransition
	}
	if caller != "" {
		answer.Caller = caller
	}
	r.setStatusLocked(answer, to)
	r.commitLocked()
	return nil
}

// setStatusLocked moves the answer to status and, when the answer was the one
// deciding its question, reopens that question in the same critical section.
func (r *Round) setStatusLocked(answer *domain.Answer, status domain.AnswerStatus) {
	if answer.Status == domain.StatusCorrect && status != domain.StatusCorrect {
		if q := r.decidedByLocked(answer.QueueLocation); q != nil {
			q.Reopen()
		}
	}
	answer.Status = status
}

// OpenQuestion opens a question with its value and text.
func (r *Round) OpenQuestion(questionNumber, value int, text string) error {
	return r.mutateQuestion(questionNumber, func(q *domain.Question) {
		q.OpenWith(value, text)
	})
}

// CloseQuestion stops accepting answers for the question.
func (r *Round) CloseQuestion(questionNumber int, answerText string) error {
	return r.mutateQuestion(questionNumber, func(q *domain.Question) {
		q.Close(answerText)
	})
}

// ReopenQuestion puts a closed question back in play, detaching any
// deciding answer.
func (r *Round) ReopenQuestion(questionNumber int) error {
	return r.mutateQuestion(questionNumber, func(q *domain.Question) {
		q.Reopen()
	})
}

func (r *Round) mutateQuestion(questionNumber int, fn func(*domain.Question)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.questionLocked(questionNumber)
	if err != nil {
		return err
	}
	fn(q)
	r.commitLocked()
	return nil
}

// ResetQuestion returns the active set's question to unopened, evicts its
// answers and compacts the queue locations of the answers after them.
// Answers to the same number in the other set are kept.
func (r *Round) ResetQuestion(questionNumber int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, err := r.questionLocked(questionNumber)
	if err != nil {
		return err
	}
	q.Reset()

	relocated := make(map[int]int, len(r.answers))
	kept := r.answers[:0]
	for _, a := range r.answers {
		if a.QuestionNumber == questionNumber && a.Speed == r.speed {
			continue
		}
		relocated[a.QueueLocation] = len(kept) + 1
		a.QueueLocation = len(kept) + 1
		kept = append(kept, a)
	}
	for i := len(kept); i < len(r.answers); i++ {
		r.answers[i] = domain.Answer{}
	}
	r.answers = kept

	for _, set := range [][]domain.Question{r.normal, r.speedSet} {
		for i := range set {
			if set[i].DecidedBy != 0 {
				set[i].DecidedBy = relocated[set[i].DecidedBy]
			}
		}
	}
	r.commitLocked()
	return nil
}

// RemapQuestion moves a question's full state and answer history from one
// slot to another, clearing the source slot.
func (r *Round) RemapQuestion(from, to int) error {
	if from == to {
		return domain.ErrInvalidRemap
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	src, err := r.questionLocked(from)
	if err != nil {
		return err
	}
	dst, err := r.questionLocked(to)
	if err != nil {
		return err
	}
	*dst = *src
	dst.Number = to
	src.Reset()
	for i := range r.answers {
		if r.answers[i].QuestionNumber == from && r.answers[i].Speed == r.speed {
			r.answers[i].QuestionNumber = to
		}
	}
	r.commitLocked()
	return nil
}

// SetSpeed switches the active question set. Both sets keep their contents.
func (r *Round) SetSpeed(speed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speed = speed
	r.commitLocked()
}

// SetAnnounced records the externally announced score and place.
func (r *Round) SetAnnounced(points, place int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.announced = true
	r.announcedPoints = points
	r.place = place
	r.commitLocked()
}

// SetStandings records every team's announced score. The entry for team, if
// present, also becomes this round's announced score and place.
func (r *Round) SetStandings(team string, standings []domain.Standing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.standings = append([]domain.Standing(nil), standings...)
	for _, s := range standings {
		if s.Team == team {
			r.announced = true
			r.announcedPoints = s.Points
			r.place = s.Place
			break
		}
	}
	r.commitLocked()
}

// SetDiscrepancyText stores operator notes about a score mismatch.
func (r *Round) SetDiscrepancyText(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discrepancy = text
	r.commitLocked()
}

// NQuestions is the size of the active question set.
func (r *Round) NQuestions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeLocked())
}

// NextToOpen returns the lowest never-opened question number, or the last
// question number once all have been opened.
func (r *Round) NextToOpen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.NextToOpen(r.activeLocked())
}

// RoundOver reports whether every active question has been opened and closed.
func (r *Round) RoundOver() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return domain.RoundOver(r.activeLocked())
}

// Earned sums the value of the correct questions.
func (r *Round) Earned() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.earnedLocked()
}

// Value sums the value of every opened question.
func (r *Round) Value() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, q := range r.activeLocked() {
		if q.BeenOpen {
			total += q.Value
		}
	}
	return total
}

// IsMismatch reports whether the announced score differs from the earned one.
func (r *Round) IsMismatch() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.announced && r.announcedPoints != r.earnedLocked()
}

// Snapshot returns a deep copy of the round.
func (r *Round) Snapshot() domain.RoundSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// snapshotIfChanged returns a snapshot when the round's version differs from known.
func (r *Round) snapshotIfChanged(known int) (domain.RoundSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.version == known {
		return domain.RoundSnapshot{}, false
	}
	return r.snapshotLocked(), true
}

// Restore replaces the round's state, version included, with snap. Question
// sets keep their configured sizes and answers with an unknown status come
// back uncalled.
func (r *Round) Restore(snap domain.RoundSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version = snap.Version
	r.speed = snap.Speed
	normal, speed := snap.Questions, snap.Inactive
	if snap.Speed {
		normal, speed = speed, normal
	}
	restoreQuestions(r.normal, normal)
	restoreQuestions(r.speedSet, speed)
	r.answers = copyAnswers(snap.Answers)
	for i := range r.answers {
		if !r.answers[i].Status.Valid() {
			r.answers[i].Status = domain.StatusNotCalledIn
		}
	}
	r.announced = snap.Announced
	r.announcedPoints = snap.AnnouncedPoints
	r.place = snap.Place
	r.standings = append([]domain.Standing(nil), snap.Standings...)
	r.discrepancy = snap.DiscrepancyText
}

func restoreQuestions(dst, src []domain.Question) {
	for i := range dst {
		dst[i] = domain.Question{Number: i + 1}
		if i < len(src) {
			dst[i] = src[i]
			dst[i].Number = i + 1
		}
	}
}

func (r *Round) snapshotLocked() domain.RoundSnapshot {
	active, inactive := r.normal, r.speedSet
	if r.speed {
		active, inactive = inactive, active
	}
	return domain.RoundSnapshot{
		Number:          r.number,
		Version:         r.version,
		Speed:           r.speed,
		Questions:       append([]domain.Question(nil), active...),
		Inactive:        append([]domain.Question(nil), inactive...),
		Answers:         copyAnswers(r.answers),
		Announced:       r.announced,
		AnnouncedPoints: r.announcedPoints,
		Place:           r.place,
		Standings:       append([]domain.Standing(nil), r.standings...),
		DiscrepancyText: r.discrepancy,
	}
}

func copyAnswers(src []domain.Answer) []domain.Answer {
	out := make([]domain.Answer, len(src))
	for i, a := range src {
		a.Agreed = append([]string(nil), a.Agreed...)
		out[i] = a
	}
	return out
}

func (r *Round) commitLocked() {
	r.version++
}

func (r *Round) activeLocked() []domain.Question {
	if r.speed {
		return r.speedSet
	}
	return r.normal
}

func (r *Round) earnedLocked() int {
	total := 0
	for _, q := range r.activeLocked() {
		total += q.Earned()
	}
	return total
}

func (r *Round) questionLocked(number int) (*domain.Question, error) {
	return r.slotLocked(r.speed, number)
}

// slotLocked addresses a question in the normal or speed set regardless of
// which one is active.
func (r *Round) slotLocked(speed bool, number int) (*domain.Question, error) {
	set := r.normal
	if speed {
		set = r.speedSet
	}
	if number < 1 || number > len(set) {
		return nil, domain.ErrQuestionNotFound
	}
	return &set[number-1], nil
}

func (r *Round) answerLocked(queueIndex int) (*domain.Answer, error) {
	if queueIndex < 1 || queueIndex > len(r.answers) {
		return nil, domain.ErrAnswerNotFound
	}
	return &r.answers[queueIndex-1], nil
}

// decidedByLocked finds the question, in either set, decided by the answer at location.
func (r *Round) decidedByLocked(location int) *domain.Question {
	for _, set := range [][]domain.Question{r.normal, r.speedSet} {
		for i := range set {
			if set[i].DecidedBy == location {
				return &set[i]
			}
		}
	}
	return nil
}
