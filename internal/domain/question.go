package domain

// NewQuestions returns n empty question slots numbered 1..n.
func NewQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i].Number = i + 1
	}
	return qs
}

// OpenWith opens the question with the given value and text. Opening a
// decided question clears its outcome.
func (q *Question) OpenWith(value int, text string) {
	q.Value = value
	q.Text = text
	q.Reopen()
}

// Reopen puts the question back in play and drops any previous outcome.
func (q *Question) Reopen() {
	q.MarkIncorrect()
	q.Open = true
	q.BeenOpen = true
}

// Close stops accepting answers. answerText, when set, records the accepted answer.
func (q *Question) Close(answerText string) {
	q.Open = false
	q.BeenOpen = true
	if answerText != "" {
		q.AnswerText = answerText
	}
}

// MarkCorrect closes the question as answered correctly.
func (q *Question) MarkCorrect(answerText, submitter, operator string, decidedBy int) {
	q.Open = false
	q.BeenOpen = true
	q.Correct = true
	q.AnswerText = answerText
	q.Submitter = submitter
	q.Operator = operator
	q.DecidedBy = decidedBy
}

// MarkIncorrect clears the question's outcome without changing whether it is open.
func (q *Question) MarkIncorrect() {
	q.Correct = false
	q.AnswerText = ""
	q.Submitter = ""
	q.Operator = ""
	q.DecidedBy = 0
}

// Reset returns the slot to the unopened state.
func (q *Question) Reset() {
	*q = Question{Number: q.Number}
}

// Finished reports whether the question was opened and is now closed.
func (q Question) Finished() bool {
	return q.BeenOpen && !q.Open
}

// Earned is the question's value if it was answered correctly.
func (q Question) Earned() int {
	if q.Correct {
		return q.Value
	}
	return 0
}

// NextToOpen returns the lowest question number never opened, or the last
// question number when all have been opened.
func NextToOpen(qs []Question) int {
	for _, q := range qs {
		if !q.BeenOpen {
			return q.Number
		}
	}
	return len(qs)
}

// RoundOver reports whether every question has been opened and closed.
func RoundOver(qs []Question) bool {
	for _, q := range qs {
		if !q.Finished() {
			return false
		}
	}
	return true
}
