package domain

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// NormalizeAnswerText strips all whitespace and case-folds text so that
// "42 Steps" and "42steps" compare equal.
func NormalizeAnswerText(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	// Casers keep state between calls and must not be shared across goroutines.
	return cases.Fold().String(stripped)
}

// SameQuestion reports whether both answers address the same slot of the
// same question set.
func (a Answer) SameQuestion(other Answer) bool {
	return a.QuestionNumber == other.QuestionNumber && a.Speed == other.Speed
}

// SameAnswer reports whether other is a live answer to the same question with
// matching normalized text.
func (a Answer) SameAnswer(other Answer) bool {
	if !a.SameQuestion(other) || other.Status == StatusDuplicate {
		return false
	}
	return NormalizeAnswerText(a.Text) == NormalizeAnswerText(other.Text)
}

// CanTransition reports whether an answer in status from may move to to.
//
// Calling in is only possible for an uncalled answer. Grading is possible
// while calling and when regrading an already graded answer. Reverting to
// uncalled and forcing duplicate are always allowed.
func CanTransition(from, to AnswerStatus) bool {
	switch to {
	case StatusNotCalledIn, StatusDuplicate:
		return true
	case StatusCalling:
		return from == StatusNotCalledIn
	case StatusCorrect, StatusIncorrect, StatusPartial:
		return from == StatusCalling || from.Graded()
	}
	return false
}

// Graded reports whether the status is one of the adjudicated outcomes.
func (s AnswerStatus) Graded() bool {
	return s == StatusCorrect || s == StatusIncorrect || s == StatusPartial
}

// Valid reports whether s is a known status.
func (s AnswerStatus) Valid() bool {
	switch s {
	case StatusNotCalledIn, StatusCalling, StatusIncorrect, StatusPartial, StatusCorrect, StatusDuplicate:
		return true
	}
	return false
}

// Agree tags the answer with user. The tag carries no scoring effect.
func (a *Answer) Agree(user string) {
	if user == "" {
		return
	}
	i := sort.SearchStrings(a.Agreed, user)
	if i < len(a.Agreed) && a.Agreed[i] == user {
		return
	}
	a.Agreed = append(a.Agreed, "")
	copy(a.Agreed[i+1:], a.Agreed[i:])
	a.Agreed[i] = user
}
