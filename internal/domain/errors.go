package domain

import "errors"

var (
	// ErrRoundNotFound is returned for a round number outside 1..nRounds.
	ErrRoundNotFound = errors.New("round not found")
	// ErrQuestionNotFound is returned for a question number outside the active set.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAnswerNotFound is returned for a queue index outside the answer queue.
	ErrAnswerNotFound = errors.New("answer not found in queue")
	// ErrInvalidTransition is returned when an answer cannot move to the requested status.
	ErrInvalidTransition = errors.New("invalid answer status transition")
	// ErrQuestionDecided is returned when a different answer already decided the question.
	ErrQuestionDecided = errors.New("question already decided by another answer")
	// ErrInvalidRemap is returned when a question is remapped onto itself.
	ErrInvalidRemap = errors.New("invalid question remap")
	// ErrEmptyAnswer is returned when a proposal has no text.
	ErrEmptyAnswer = errors.New("answer text is empty")
)
