// Package session runs timed, single-user quiz attempts.
//
// A Session is a small state machine (not_started -> in_progress -> submitted)
// over an immutable snapshot of the quiz taken at Start. All methods lock the
// session, so user commands and timer ticks never interleave on one instance.
package session

import (
	"sync"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
)

// Record is the finalized outcome handed to the result recorder.
type Record struct {
	QuizID         int64     `json:"quiz_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      int       `json:"time_taken"` // seconds
	CompletedAt    time.Time `json:"completed_at"`
	AutoSubmitted  bool      `json:"auto_submitted"`
}

type Session struct {
	mu sync.Mutex

	id     string
	userID int64
	now    func() time.Time

	status    Status
	quiz      quiz.Quiz
	index     int
	answers   []quiz.Option
	remaining int
	startedAt time.Time
	record    Record
}

func New(id string, userID int64) *Session {
	return &Session{id: id, userID: userID, now: time.Now, status: StatusNotStarted}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() int64  { return s.userID }
func (s *Session) Status() Status { s.mu.Lock(); defer s.mu.Unlock(); return s.status }

// Start snapshots q and begins the countdown at TimeLimit minutes.
func (s *Session) Start(q quiz.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusNotStarted {
		return apperr.ErrInvalidState
	}
	if len(q.Questions) == 0 {
		return apperr.ErrEmptyQuiz
	}
	s.quiz = q.Clone()
	s.index = 0
	s.answers = make([]quiz.Option, len(q.Questions))
	s.remaining = q.TimeLimitSeconds()
	s.startedAt = s.now()
	s.status = StatusInProgress
	return nil
}

// SelectAnswer overwrites the answer for the current question.
func (s *Session) SelectAnswer(opt quiz.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return apperr.ErrInvalidState
	}
	if !opt.Valid() {
		return apperr.Invalid("option", "must be one of A, B, C, D")
	}
	s.answers[s.index] = opt
	return nil
}

// GoNext moves forward, staying on the last question at the end.
func (s *Session) GoNext() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return apperr.ErrInvalidState
	}
	if s.index < len(s.answers)-1 {
		s.index++
	}
	return nil
}

// GoPrevious moves back, staying on the first question at the start.
func (s *Session) GoPrevious() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return apperr.ErrInvalidState
	}
	if s.index > 0 {
		s.index--
	}
	return nil
}

// Tick consumes one second. It reports true exactly once: on the tick that
// runs the clock out and submits the session.
func (s *Session) Tick() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return s.record, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return Record{}, false
	}
	s.finalize(true)
	return s.record, true
}

// Submit scores the attempt. A second call returns the first record with
// first=false instead of failing, so retried requests are harmless.
func (s *Session) Submit() (rec Record, first bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case StatusSubmitted:
		return s.record, false, nil
	case StatusInProgress:
		s.finalize(false)
		return s.record, true, nil
	default:
		return Record{}, false, apperr.ErrInvalidState
	}
}

func (s *Session) finalize(auto bool) {
	elapsed := s.quiz.TimeLimitSeconds() - s.remaining
	if elapsed < 0 {
		elapsed = 0
	}
	// lengths always match: answers is sized from the same snapshot
	score, _ := grading.Score(s.quiz.Questions, s.answers)
	s.record = Record{
		QuizID:         s.quiz.ID,
		Score:          score,
		TotalQuestions: len(s.quiz.Questions),
		TimeTaken:      elapsed,
		CompletedAt:    s.now(),
		AutoSubmitted:  auto,
	}
	s.status = StatusSubmitted
}
