package domain

import "time"

// AnswerStatus is the grading state of a proposed answer.
type AnswerStatus string

const (
	StatusNotCalledIn AnswerStatus = "NOT_CALLED_IN"
	StatusCalling     AnswerStatus = "CALLING"
	StatusIncorrect   AnswerStatus = "INCORRECT"
	StatusPartial     AnswerStatus = "PARTIAL"
	StatusCorrect     AnswerStatus = "CORRECT"
	StatusDuplicate   AnswerStatus = "DUPLICATE"
)

// Answer is one candidate answer in a round's queue.
type Answer struct {
	QueueLocation  int          `json:"queueLocation"`
	QuestionNumber int          `json:"questionNumber"`
	// Speed records which question set QuestionNumber addresses.
	Speed          bool         `json:"speed,omitempty"`
	Text           string       `json:"text"`
	Confidence     int          `json:"confidence"`
	Submitter      string       `json:"submitter"`
	Timestamp      time.Time    `json:"timestamp"`
	Caller         string       `json:"caller,omitempty"`
	Operator       string       `json:"operator,omitempty"`
	Status         AnswerStatus `json:"status"`
	// Agreed holds the users whose duplicate proposals matched this answer.
	Agreed []string `json:"agreed,omitempty"`
}

// Question is a single question slot within a round.
type Question struct {
	Number     int    `json:"number"`
	Value      int    `json:"value"`
	Text       string `json:"text,omitempty"`
	AnswerText string `json:"answerText,omitempty"`
	Submitter  string `json:"submitter,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Open       bool   `json:"open"`
	BeenOpen   bool   `json:"beenOpen"`
	Correct    bool   `json:"correct"`
	// DecidedBy is the queue location of the answer that marked this question
	// correct, or zero.
	DecidedBy int `json:"decidedBy,omitempty"`
}

// Standing is one team's externally announced score for a round.
type Standing struct {
	Team   string `json:"team"`
	Points int    `json:"points"`
	Place  int    `json:"place"`
}

// RoundSnapshot is a consistent copy of a round at Version.
type RoundSnapshot struct {
	Number          int        `json:"number"`
	Version         int        `json:"version"`
	Speed           bool       `json:"speed"`
	Questions       []Question `json:"questions"`
	Inactive        []Question `json:"inactive,omitempty"`
	Answers         []Answer   `json:"answers"`
	Announced       bool       `json:"announced"`
	AnnouncedPoints int        `json:"announcedPoints"`
	Place           int        `json:"place"`
	Standings       []Standing `json:"standings,omitempty"`
	DiscrepancyText string     `json:"discrepancyText,omitempty"`
}

// Sync is the reply to a poll: contest metadata plus the rounds whose
// version differs from the caller's.
type Sync struct {
	TeamName     string          `json:"teamName"`
	NRounds      int             `json:"nRounds"`
	NTeams       int             `json:"nTeams,omitempty"`
	CurrentRound int             `json:"currentRound"`
	Rounds       []RoundSnapshot `json:"rounds"`
}

// RoundChange is published after every committed mutation. Round is zero
// when only the current-round pointer moved.
type RoundChange struct {
	Round        int `json:"round,omitempty"`
	Version      int `json:"version,omitempty"`
	CurrentRound int `json:"currentRound"`
}

// Terminal is a connected client.
type Terminal struct {
	ID          string    `json:"id"`
	User        string    `json:"user"`
	ConnectedAt time.Time `json:"connectedAt"`
}
