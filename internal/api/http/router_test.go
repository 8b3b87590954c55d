package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db/dbtest"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/results"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

const (
	adminEmail = "admin@example.test"
	adminPass  = "admin-pass"
)

// idleTicker never fires; HTTP tests drive sessions by commands only.
type idleTicker struct{ c chan time.Time }

func (t idleTicker) C() <-chan time.Time { return t.c }
func (t idleTicker) Stop()               {}

type env struct {
	t   *testing.T
	srv *httptest.Server
	mgr *session.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	h := dbtest.Open(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := syncx.NewEventRepo(h, "test")
	store := quiz.NewSQLStore(h, events)
	rec := results.NewSQLRecorder(h, events)
	users := auth.NewUserRepo(h).WithCost(bcrypt.MinCost)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = users.EnsureAdmin(context.Background(), "admin", adminEmail, string(hash))
	require.NoError(t, err)

	mgr := session.NewManager(store, rec, session.Options{
		NewTicker: func(time.Duration) session.Ticker { return idleTicker{c: make(chan time.Time)} },
		Logger:    log,
	})
	t.Cleanup(mgr.Close)

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		DB:              h,
		Quizzes:         store,
		Results:         rec,
		Sessions:        mgr,
		Users:           users,
		Events:          events,
		Auth:            auth.NewAuthService("test-secret", time.Hour),
		Log:             log,
		EnableLocalAuth: true,
	}))
	t.Cleanup(srv.Close)
	return &env{t: t, srv: srv, mgr: mgr}
}

// do sends a JSON request and decodes the JSON response into out when non-nil.
func (e *env) do(method, path, token string, body any, out any) int {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type tokenResp struct {
	Token string    `json:"token"`
	User  auth.User `json:"user"`
}

func (e *env) login(email, password string) string {
	e.t.Helper()
	var tr tokenResp
	code := e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password}, &tr)
	require.Equal(e.t, http.StatusOK, code)
	require.NotEmpty(e.t, tr.Token)
	return tr.Token
}

func (e *env) signup(username string) string {
	e.t.Helper()
	var tr tokenResp
	code := e.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username, "email": username + "@example.test", "password": "secret1",
	}, &tr)
	require.Equal(e.t, http.StatusCreated, code)
	return tr.Token
}

func sampleQuiz() quiz.QuizInput {
	return quiz.QuizInput{
		Title:     "Capitals",
		TimeLimit: 1,
		Questions: []quiz.QuestionInput{
			{Text: "France?", OptionA: "Paris", OptionB: "Lyon", OptionC: "Nice", OptionD: "Lille", CorrectAnswer: "A"},
			{Text: "Italy?", OptionA: "Milan", OptionB: "Rome", OptionC: "Turin", OptionD: "Pisa", CorrectAnswer: "B"},
		},
	}
}

func (e *env) createQuiz(adminTok string) int64 {
	e.t.Helper()
	var created struct {
		ID int64 `json:"id"`
	}
	code := e.do(http.MethodPost, "/quizzes", adminTok, sampleQuiz(), &created)
	require.Equal(e.t, http.StatusCreated, code)
	require.NotZero(e.t, created.ID)
	return created.ID
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestHealth(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/healthz", "", nil, nil))
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/readyz", "", nil, nil))
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)
	tok := e.signup("alice")

	var check struct {
		Authenticated bool      `json:"authenticated"`
		User          auth.User `json:"user"`
	}
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/auth/check", tok, nil, &check))
	assert.True(t, check.Authenticated)
	assert.Equal(t, "alice", check.User.Username)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/auth/check", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/auth/check", "garbage", nil, nil))

	var body struct {
		Message string           `json:"message"`
		Errors  []map[string]any `json:"errors"`
	}
	code := e.do(http.MethodPost, "/auth/signup", "", map[string]string{"username": "al", "email": "nope", "password": "1"}, &body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Len(t, body.Errors, 3)

	var dup struct {
		Message string `json:"message"`
	}
	code = e.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "alice", "email": "other@example.test", "password": "secret1",
	}, &dup)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already exists", dup.Message)

	code = e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.test", "password": "wrong!"}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestQuizAuthoringIsAdminOnly(t *testing.T) {
	e := newEnv(t)
	admin := e.login(adminEmail, adminPass)
	user := e.signup("bob")

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/quizzes", user, sampleQuiz(), nil))
	id := e.createQuiz(admin)

	var list []quiz.Quiz
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/quizzes", "", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Capitals", list[0].Title)

	var asUser quiz.Quiz
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/quizzes/"+itoa(id), user, nil, &asUser))
	require.Len(t, asUser.Questions, 2)
	for _, q := range asUser.Questions {
		assert.Equal(t, quiz.OptionNone, q.CorrectAnswer)
	}

	var asAdmin quiz.Quiz
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/quizzes/"+itoa(id), admin, nil, &asAdmin))
	assert.Equal(t, quiz.OptionA, asAdmin.Questions[0].CorrectAnswer)

	var adminList []quiz.Quiz
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/admin/quizzes", admin, nil, &adminList))
	assert.Equal(t, 2, adminList[0].QuestionCount)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/admin/quizzes", user, nil, nil))

	bad := sampleQuiz()
	bad.Title = "ab"
	var verr struct {
		Errors []map[string]string `json:"errors"`
	}
	require.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/quizzes/"+itoa(id), admin, bad, &verr))
	require.NotEmpty(t, verr.Errors)
	assert.Equal(t, "title", verr.Errors[0]["field"])

	upd := sampleQuiz()
	upd.Title = "Capitals v2"
	upd.Questions = upd.Questions[:1]
	assert.Equal(t, http.StatusOK, e.do(http.MethodPut, "/quizzes/"+itoa(id), admin, upd, nil))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/quizzes/9999", admin, upd, nil))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/quizzes/"+itoa(id), user, nil, nil))
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/quizzes/"+itoa(id), admin, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/quizzes/"+itoa(id), admin, nil, nil))
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t)
	admin := e.login(adminEmail, adminPass)
	user := e.signup("carol")
	other := e.signup("dave")
	qid := e.createQuiz(admin)

	var snap session.Snapshot
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/sessions", user, map[string]int64{"quiz_id": qid}, &snap))
	assert.Equal(t, session.StatusInProgress, snap.Status)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 60, snap.Remaining)
	require.NotNil(t, snap.Question)
	assert.Equal(t, "France?", snap.Question.Text)
	sid := snap.ID

	// Sessions are private to their owner.
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/sessions/"+sid, other, nil, nil))

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/sessions/"+sid+"/answer", user, map[string]string{"option": "E"}, nil))
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/answer", user, map[string]string{"option": "A"}, &snap))
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/next", user, nil, &snap))
	assert.Equal(t, 1, snap.Index)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/answer", user, map[string]string{"option": "C"}, &snap))
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/previous", user, nil, &snap))
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, []quiz.Option{quiz.OptionA, quiz.OptionC}, snap.Answers)

	var out session.Outcome
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/submit", user, nil, &out))
	assert.Equal(t, 1, out.Record.Score)
	assert.Equal(t, 2, out.Record.TotalQuestions)
	assert.NotZero(t, out.ResultID)

	var again session.Outcome
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+sid+"/submit", user, nil, &again))
	assert.Equal(t, out.ResultID, again.ResultID)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/sessions/"+sid+"/next", user, nil, nil))

	var mine []results.Result
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/results", user, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Capitals", mine[0].QuizTitle)

	var theirs []results.Result
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/results", other, nil, &theirs))
	assert.Empty(t, theirs)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/results/stats/"+itoa(qid), user, nil, nil))
	var stats struct {
		Quiz      quiz.Quiz     `json:"quiz"`
		AnswerKey []quiz.Option `json:"answer_key"`
		Stats     results.Stats `json:"stats"`
	}
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/results/stats/"+itoa(qid), admin, nil, &stats))
	assert.Equal(t, []quiz.Option{quiz.OptionA, quiz.OptionB}, stats.AnswerKey)
	assert.Equal(t, quiz.OptionNone, stats.Quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, 1, stats.Stats.AttemptCount)
	require.Len(t, stats.Stats.RecentAttempts, 1)
	assert.Equal(t, "carol", stats.Stats.RecentAttempts[0].Username)

	var page struct {
		Events []syncx.Event `json:"events"`
		Next   int64         `json:"next"`
	}
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/admin/events", admin, nil, &page))
	require.Len(t, page.Events, 2)
	assert.Equal(t, syncx.TypeQuizCreated, page.Events[0].Type)
	assert.Equal(t, syncx.TypeResultRecorded, page.Events[1].Type)
	assert.Equal(t, page.Events[1].Seq, page.Next)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodGet, "/admin/events", user, nil, nil))
}

func TestStartErrors(t *testing.T) {
	e := newEnv(t)
	user := e.signup("erin")

	var body struct {
		Message string `json:"message"`
	}
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/sessions", user, map[string]int64{"quiz_id": 404}, &body))
	assert.Equal(t, "not found", body.Message, "error chain stays out of the response")
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/sessions", user, map[string]int64{}, nil))
	assert.Equal(t, 0, e.mgr.Len())
}

func TestAbandon(t *testing.T) {
	e := newEnv(t)
	admin := e.login(adminEmail, adminPass)
	user := e.signup("frank")
	qid := e.createQuiz(admin)

	var snap session.Snapshot
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/sessions", user, map[string]int64{"quiz_id": qid}, &snap))
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/sessions/"+snap.ID, user, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/sessions/"+snap.ID, user, nil, nil))

	var mine []results.Result
	require.Equal(t, http.StatusOK, e.do(http.MethodGet, "/results", user, nil, &mine))
	assert.Empty(t, mine)
}
