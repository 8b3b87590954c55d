package grading

import (
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

var ErrLengthMismatch = errors.New("grading: answers and questions differ in length")

// Score pairs answers with questions by position and counts exact matches.
// Unanswered slots never match. The result is in [0, len(questions)].
func Score(questions []quiz.Question, answers []quiz.Option) (int, error) {
	if len(answers) != len(questions) {
		return 0, fmt.Errorf("%w: %d answers for %d questions", ErrLengthMismatch, len(answers), len(questions))
	}
	score := 0
	for i, q := range questions {
		if answers[i] != quiz.OptionNone && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score, nil
}

// Keys returns the answer key in question order.
func Keys(questions []quiz.Question) []quiz.Option {
	out := make([]quiz.Option, len(questions))
	for i, q := range questions {
		out[i] = q.CorrectAnswer
	}
	return out
}
