// Package quiz implements a timed multiple-choice quiz session: a fixed,
// linear sequence of questions with a per-question countdown, answer
// feedback, and a final score.
package quiz

import (
	"errors"
	"fmt"

	"timed_quiz/internal/models"
)

// DefaultQuestionTime is the number of seconds each question starts with.
const DefaultQuestionTime = 30

var (
	ErrNoQuestions      = errors.New("quiz has no questions")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrFinished         = errors.New("quiz already finished")
	ErrOptionOutOfRange = errors.New("option out of range")
	ErrAnswerLocked     = errors.New("question already answered")
	ErrNoSelection      = errors.New("no answer selected")
)

// Session is the state of one run through a question set. It is not safe for
// concurrent use; Runner serialises access for live sessions.
type Session struct {
	questions    []models.Question
	questionTime int

	index     int
	score     int
	selected  int // -1 when nothing is selected
	remaining int
	finished  bool
}

type Option func(*Session)

// WithQuestionTime overrides the per-question countdown in seconds.
func WithQuestionTime(seconds int) Option {
	return func(s *Session) {
		if seconds > 0 {
			s.questionTime = seconds
		}
	}
}

// NewSession validates the question set and returns a session in its initial
// state. The slice is owned by the session afterwards and must not be mutated.
func NewSession(questions []models.Question, opts ...Option) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	for i, q := range questions {
		if len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, i, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("%w: question %d correct answer %d out of range", ErrInvalidQuestion, i, q.CorrectAnswer)
		}
	}

	s := &Session{
		questions:    questions,
		questionTime: DefaultQuestionTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Restart()
	return s, nil
}

// Restart discards all progress and returns to the first question.
func (s *Session) Restart() {
	s.index = 0
	s.score = 0
	s.selected = -1
	s.remaining = s.questionTime
	s.finished = false
}

// Select records the player's answer for the current question. The first
// selection locks the question: later selections are rejected, so the score
// moves at most once per question.
func (s *Session) Select(option int) (correct bool, err error) {
	if s.finished {
		return false, ErrFinished
	}
	q := s.questions[s.index]
	if option < 0 || option >= len(q.Options) {
		return false, fmt.Errorf("%w: %d", ErrOptionOutOfRange, option)
	}
	if s.selected >= 0 {
		return false, ErrAnswerLocked
	}

	s.selected = option
	if option == q.CorrectAnswer {
		s.score++
		return true, nil
	}
	return false, nil
}

// Next is the player's explicit advance; it needs a selected answer.
func (s *Session) Next() error {
	if s.finished {
		return ErrFinished
	}
	if s.selected < 0 {
		return ErrNoSelection
	}
	s.advance()
	return nil
}

// Tick counts one second off the current question. When the countdown hits
// zero the session advances and Tick reports true. Ticks after the results are
// shown are ignored.
func (s *Session) Tick() (advanced bool) {
	if s.finished {
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return false
	}
	s.advance()
	return true
}

func (s *Session) advance() {
	if s.index >= len(s.questions)-1 {
		s.finished = true
		s.remaining = 0
		return
	}
	s.index++
	s.selected = -1
	s.remaining = s.questionTime
}

func (s *Session) Index() int { return s.index }
func (s *Session) Score() int { return s.score }
func (s *Session) Total() int { return len(s.questions) }
func (s *Session) Remaining() int { return s.remaining }
func (s *Session) Finished() bool { return s.finished }
func (s *Session) QuestionTime() int { return s.questionTime }
func (s *Session) Selected() (int, bool) { return s.selected, s.selected >= 0 }

// Current returns the question on screen; ok is false once results are shown.
func (s *Session) Current() (q models.Question, ok bool) {
	if s.finished {
		return models.Question{}, false
	}
	return s.questions[s.index], true
}

// Result summarises the score so far. Percent is rounded half up.
func (s *Session) Result() models.Result {
	total := len(s.questions)
	return models.Result{
		Score:   s.score,
		Total:   total,
		Percent: Percent(s.score, total),
	}
}

// Percent returns round(100*score/total) with halves rounded up.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}
