package grading_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func questions(keys ...quiz.Option) []quiz.Question {
	out := make([]quiz.Question, len(keys))
	for i, k := range keys {
		out[i] = quiz.Question{Text: "q", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectAnswer: k}
	}
	return out
}

func TestScoreMixedAnswers(t *testing.T) {
	qs := questions(quiz.OptionA, quiz.OptionB, quiz.OptionC, quiz.OptionD)
	answers := []quiz.Option{quiz.OptionA, quiz.OptionB, quiz.Option("X"), quiz.OptionD}

	got, err := grading.Score(qs, answers)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestScoreUnansweredNeverMatches(t *testing.T) {
	qs := questions(quiz.OptionA, quiz.OptionNone)
	got, err := grading.Score(qs, []quiz.Option{quiz.OptionNone, quiz.OptionNone})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestScoreIsPositional(t *testing.T) {
	qs := questions(quiz.OptionA, quiz.OptionB)
	got, err := grading.Score(qs, []quiz.Option{quiz.OptionB, quiz.OptionA})
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestScoreLengthMismatch(t *testing.T) {
	_, err := grading.Score(questions(quiz.OptionA), nil)
	assert.ErrorIs(t, err, grading.ErrLengthMismatch)
}

func TestScoreBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	labels := []quiz.Option{quiz.OptionNone, quiz.OptionA, quiz.OptionB, quiz.OptionC, quiz.OptionD}

	for run := 0; run < 200; run++ {
		n := 1 + rng.Intn(20)
		keys := make([]quiz.Option, n)
		answers := make([]quiz.Option, n)
		want := 0
		for i := 0; i < n; i++ {
			keys[i] = quiz.Options[rng.Intn(len(quiz.Options))]
			answers[i] = labels[rng.Intn(len(labels))]
			if answers[i] == keys[i] {
				want++
			}
		}
		qs := questions(keys...)
		got, err := grading.Score(qs, answers)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, n)

		again, _ := grading.Score(qs, answers)
		assert.Equal(t, got, again, "deterministic")
	}
}

func TestKeysFollowQuestionOrder(t *testing.T) {
	assert.Equal(t, []quiz.Option{quiz.OptionD, quiz.OptionA}, grading.Keys(questions(quiz.OptionD, quiz.OptionA)))
}
