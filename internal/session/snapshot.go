package session

import (
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type OptionView struct {
	Label quiz.Option `json:"label"`
	Text  string      `json:"text"`
}

// QuestionView is the current question without its answer key.
type QuestionView struct {
	Index    int          `json:"index"`
	Text     string       `json:"question_text"`
	Options  []OptionView `json:"options"`
	Selected quiz.Option  `json:"selected,omitempty"`
}

// Snapshot is a read-only copy of session state, safe to serialize.
type Snapshot struct {
	ID          string        `json:"id"`
	QuizID      int64         `json:"quiz_id"`
	QuizTitle   string        `json:"quiz_title"`
	Status      Status        `json:"status"`
	Index       int           `json:"index"`
	Total       int           `json:"total_questions"`
	Answered    int           `json:"answered"`
	Answers     []quiz.Option `json:"answers"`
	Remaining   int           `json:"remaining_seconds"`
	TimeLimit   int           `json:"time_limit"`
	StartedAt   time.Time     `json:"started_at"`
	Question    *QuestionView `json:"question,omitempty"`
	Record      *Record       `json:"result,omitempty"`
	IsLast      bool          `json:"is_last"`
	IsFirst     bool          `json:"is_first"`
	ResultID    int64         `json:"result_id,omitempty"`
	RecordError string        `json:"record_error,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		QuizID:    s.quiz.ID,
		QuizTitle: s.quiz.Title,
		Status:    s.status,
		Index:     s.index,
		Total:     len(s.quiz.Questions),
		Answers:   append([]quiz.Option(nil), s.answers...),
		Remaining: s.remaining,
		TimeLimit: s.quiz.TimeLimit,
		StartedAt: s.startedAt,
		IsFirst:   s.index == 0,
		IsLast:    s.index == len(s.quiz.Questions)-1,
	}
	for _, a := range s.answers {
		if a != quiz.OptionNone {
			snap.Answered++
		}
	}
	if s.status == StatusSubmitted {
		rec := s.record
		snap.Record = &rec
		return snap
	}
	if s.status == StatusInProgress {
		q := s.quiz.Questions[s.index]
		view := &QuestionView{Index: s.index, Text: q.Text, Selected: s.answers[s.index]}
		for _, label := range quiz.Options {
			view.Options = append(view.Options, OptionView{Label: label, Text: q.OptionText(label)})
		}
		snap.Question = view
	}
	return snap
}
