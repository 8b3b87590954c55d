package quiz

import "context"

// Store is the question-set persistence contract. Create and Replace are
// all-or-nothing: no caller ever observes a quiz without its questions or a
// half-replaced question set.
type Store interface {
	CreateQuiz(ctx context.Context, in QuizInput) (int64, error)
	ReplaceQuiz(ctx context.Context, id int64, in QuizInput) error
	DeleteQuiz(ctx context.Context, id int64) error
	GetQuiz(ctx context.Context, id int64) (Quiz, error)
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	ListQuizzesAdmin(ctx context.Context) ([]Quiz, error)
}
