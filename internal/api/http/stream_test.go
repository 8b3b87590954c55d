package http_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

type streamMsg struct {
	Type    string            `json:"type"`
	Payload *session.Snapshot `json:"payload"`
}

func readMsg(t *testing.T, conn *websocket.Conn) streamMsg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var m streamMsg
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestStreamPushesSnapshots(t *testing.T) {
	e := newEnv(t)
	admin := e.login(adminEmail, adminPass)
	user := e.signup("gina")
	qid := e.createQuiz(admin)

	var snap session.Snapshot
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/sessions", user, map[string]int64{"quiz_id": qid}, &snap))

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/sessions/" + snap.ID + "/stream?access_token=" + user
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	first := readMsg(t, conn)
	assert.Equal(t, "snapshot", first.Type)
	require.NotNil(t, first.Payload)
	assert.Equal(t, snap.ID, first.Payload.ID)

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/sessions/"+snap.ID+"/answer", user, map[string]string{"option": "B"}, nil))
	next := readMsg(t, conn)
	require.NotNil(t, next.Payload)
	assert.Equal(t, quiz.OptionB, next.Payload.Answers[0])

	require.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/sessions/"+snap.ID, user, nil, nil))
	assert.Equal(t, "closed", readMsg(t, conn).Type)
}

func TestStreamRejectsForeignSession(t *testing.T) {
	e := newEnv(t)
	admin := e.login(adminEmail, adminPass)
	owner := e.signup("hank")
	other := e.signup("ivy")
	qid := e.createQuiz(admin)

	var snap session.Snapshot
	require.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/sessions", owner, map[string]int64{"quiz_id": qid}, &snap))

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/sessions/" + snap.ID + "/stream?access_token=" + other
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
