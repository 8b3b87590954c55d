package auth

import (
	"context"
	"strconv"
)

type ctxKey string

const ctxKeySub ctxKey = "sub"

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySub); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// UserIDFromContext parses the subject as a numeric user id.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, err := strconv.ParseInt(SubjectFromContext(ctx), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
