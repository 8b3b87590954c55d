package quiz

import "time"

// Option is a choice label. The zero value means unanswered.
type Option string

const (
	OptionNone Option = ""
	OptionA    Option = "A"
	OptionB    Option = "B"
	OptionC    Option = "C"
	OptionD    Option = "D"
)

// Options lists the valid labels in display order.
var Options = [...]Option{OptionA, OptionB, OptionC, OptionD}

func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

type Question struct {
	ID            int64  `json:"id,omitempty"`
	QuizID        int64  `json:"quiz_id,omitempty"`
	Text          string `json:"question_text"`
	OptionA       string `json:"option_A"`
	OptionB       string `json:"option_B"`
	OptionC       string `json:"option_C"`
	OptionD       string `json:"option_D"`
	CorrectAnswer Option `json:"correct_answer,omitempty"`
}

// OptionText returns the text shown for label o.
func (q Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

type Quiz struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	TimeLimit     int        `json:"time_limit"` // minutes
	CreatedBy     int64      `json:"created_by"`
	CreatorName   string     `json:"creator_name,omitempty"`
	QuestionCount int        `json:"question_count,omitempty"` // admin listing only
	CreatedAt     time.Time  `json:"created_at"`
	Questions     []Question `json:"questions,omitempty"`
}

// TimeLimitSeconds is the session budget for this quiz.
func (q Quiz) TimeLimitSeconds() int { return q.TimeLimit * 60 }

// Clone returns a copy that shares no memory with q.
func (q Quiz) Clone() Quiz {
	c := q
	if q.Questions != nil {
		c.Questions = make([]Question, len(q.Questions))
		copy(c.Questions, q.Questions)
	}
	return c
}

// StudentView strips the answer key.
func (q Quiz) StudentView() Quiz {
	c := q.Clone()
	for i := range c.Questions {
		c.Questions[i].CorrectAnswer = OptionNone
	}
	return c
}

// QuizInput is the authoring payload for create and replace.
type QuizInput struct {
	Title       string          `json:"title" validate:"min=3"`
	Description string          `json:"description"`
	TimeLimit   int             `json:"time_limit" validate:"gte=1"`
	CreatedBy   int64           `json:"-"`
	Questions   []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

type QuestionInput struct {
	Text          string `json:"question_text" validate:"required"`
	OptionA       string `json:"option_A" validate:"required"`
	OptionB       string `json:"option_B" validate:"required"`
	OptionC       string `json:"option_C" validate:"required"`
	OptionD       string `json:"option_D" validate:"required"`
	CorrectAnswer string `json:"correct_answer" validate:"oneof=A B C D"`
}
