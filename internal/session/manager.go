package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/apperr"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// QuizSource loads the quiz a session snapshots at start.
type QuizSource interface {
	GetQuiz(ctx context.Context, id int64) (quiz.Quiz, error)
}

// Recorder persists a finalized record.
type Recorder interface {
	RecordResult(ctx context.Context, userID int64, rec Record) (int64, error)
}

type Options struct {
	TickInterval time.Duration // default 1s
	Retention    time.Duration // how long submitted sessions stay readable; default 10m
	ReapEvery    time.Duration // default 30s
	NewTicker    TickerFunc
	NewID        func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

func (o *Options) setDefaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Retention <= 0 {
		o.Retention = 10 * time.Minute
	}
	if o.ReapEvery <= 0 {
		o.ReapEvery = 30 * time.Second
	}
	if o.NewTicker == nil {
		o.NewTicker = NewRealTicker
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Outcome is what a submission returns to the caller.
type Outcome struct {
	Record   Record `json:"result"`
	ResultID int64  `json:"result_id"`
}

type entry struct {
	s      *Session
	cancel context.CancelFunc

	recMu    sync.Mutex
	resultID int64
	recErr   error
	doneAt   time.Time

	subMu sync.Mutex
	subs  map[chan Snapshot]struct{}
}

// Manager owns the in-flight sessions of the process and drives their ticks.
// Sessions share nothing; the manager lock only guards the registry.
type Manager struct {
	quizzes  QuizSource
	recorder Recorder
	opts     Options
	log      *slog.Logger

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	byID   map[string]*entry
	closed bool
}

func NewManager(quizzes QuizSource, recorder Recorder, opts Options) *Manager {
	opts.setDefaults()
	ctx, stop := context.WithCancel(context.Background())
	return &Manager{
		quizzes:  quizzes,
		recorder: recorder,
		opts:     opts,
		log:      opts.Logger.With(slog.String("component", "session.Manager")),
		ctx:      ctx,
		stop:     stop,
		byID:     map[string]*entry{},
	}
}

// Start snapshots the quiz, registers a session for userID and starts its clock.
func (m *Manager) Start(ctx context.Context, userID, quizID int64) (Snapshot, error) {
	const op = "session.Manager.Start"

	q, err := m.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	s := New(m.opts.NewID(), userID)
	s.now = m.opts.Now
	if err := s.Start(q); err != nil {
		return Snapshot{}, fmt.Errorf("%s: quiz %d: %w", op, quizID, err)
	}

	tctx, cancel := context.WithCancel(m.ctx)
	e := &entry{s: s, cancel: cancel, subs: map[chan Snapshot]struct{}{}}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return Snapshot{}, fmt.Errorf("%s: manager closed: %w", op, apperr.ErrInvalidState)
	}
	m.byID[s.ID()] = e
	m.wg.Add(1)
	m.mu.Unlock()

	go m.drive(tctx, e)

	m.log.Info("session started",
		slog.String("session_id", s.ID()),
		slog.Int64("user_id", userID),
		slog.Int64("quiz_id", quizID),
		slog.Int("questions", len(q.Questions)),
		slog.Int("time_limit_sec", q.TimeLimitSeconds()),
	)
	return m.snapshot(e), nil
}

func (m *Manager) Get(userID int64, id string) (Snapshot, error) {
	e, err := m.lookup(userID, id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(e), nil
}

func (m *Manager) Answer(userID int64, id string, opt quiz.Option) (Snapshot, error) {
	return m.command(userID, id, func(s *Session) error { return s.SelectAnswer(opt) })
}

func (m *Manager) Next(userID int64, id string) (Snapshot, error) {
	return m.command(userID, id, (*Session).GoNext)
}

func (m *Manager) Previous(userID int64, id string) (Snapshot, error) {
	return m.command(userID, id, (*Session).GoPrevious)
}

func (m *Manager) command(userID int64, id string, fn func(*Session) error) (Snapshot, error) {
	e, err := m.lookup(userID, id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := fn(e.s); err != nil {
		return Snapshot{}, fmt.Errorf("session %s: %w", id, err)
	}
	snap := m.snapshot(e)
	e.publish(snap)
	return snap, nil
}

// Submit finalizes the session and records its result once. Repeated calls
// return the same outcome; if recording failed earlier it is retried here.
func (m *Manager) Submit(ctx context.Context, userID int64, id string) (Outcome, error) {
	e, err := m.lookup(userID, id)
	if err != nil {
		return Outcome{}, err
	}
	rec, _, err := e.s.Submit()
	if err != nil {
		return Outcome{}, fmt.Errorf("session %s: %w", id, err)
	}
	e.cancel()

	resultID, err := m.record(ctx, e, rec)
	e.publish(m.snapshot(e))
	if err != nil {
		return Outcome{Record: rec}, err
	}
	return Outcome{Record: rec, ResultID: resultID}, nil
}

// Abandon stops the clock and forgets the session without recording anything.
func (m *Manager) Abandon(userID int64, id string) error {
	e, err := m.lookup(userID, id)
	if err != nil {
		return err
	}
	m.remove(id, e)
	m.log.Info("session abandoned", slog.String("session_id", id), slog.Int64("user_id", userID))
	return nil
}

// Subscribe streams a snapshot after every tick and command. The channel is
// closed when the session is removed; cancel detaches early.
func (m *Manager) Subscribe(userID int64, id string) (<-chan Snapshot, func(), error) {
	e, err := m.lookup(userID, id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan Snapshot, 1)
	ch <- m.snapshot(e)

	e.subMu.Lock()
	if e.subs == nil {
		e.subMu.Unlock()
		return nil, nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	e.subs[ch] = struct{}{}
	e.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

// Len reports the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Run reaps finished sessions until ctx is done, then closes the manager.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.opts.ReapEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case <-t.C:
			if n := m.Reap(); n > 0 {
				m.log.Debug("sessions reaped", slog.Int("count", n))
			}
		}
	}
}

// Reap drops submitted sessions past retention. In-progress sessions are never
// reaped: their clock always ends them with an auto-submit.
func (m *Manager) Reap() int {
	now := m.opts.Now()
	m.mu.Lock()
	var victims []string
	for id, e := range m.byID {
		e.recMu.Lock()
		done := e.doneAt
		e.recMu.Unlock()

		if !done.IsZero() && now.Sub(done) >= m.opts.Retention {
			victims = append(victims, id)
		}
	}
	m.mu.Unlock()

	for _, id := range victims {
		m.mu.Lock()
		e := m.byID[id]
		m.mu.Unlock()
		if e != nil {
			m.remove(id, e)
		}
	}
	return len(victims)
}

// Close stops every clock and waits for the tick goroutines to exit.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.stop()
	m.wg.Wait()
}

func (m *Manager) drive(ctx context.Context, e *entry) {
	defer m.wg.Done()

	t := m.opts.NewTicker(m.opts.TickInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			rec, fired := e.s.Tick()
			if fired {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
				_, _ = m.record(rctx, e, rec)
				cancel()
				e.publish(m.snapshot(e))
				m.log.Info("session auto-submitted",
					slog.String("session_id", e.s.ID()),
					slog.Int("score", rec.Score),
					slog.Int("total", rec.TotalQuestions),
				)
				return
			}
			if e.s.Status() != StatusInProgress {
				return
			}
			e.publish(m.snapshot(e))
		}
	}
}

func (m *Manager) record(ctx context.Context, e *entry, rec Record) (int64, error) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	if e.doneAt.IsZero() {
		e.doneAt = m.opts.Now()
	}
	if e.resultID != 0 {
		return e.resultID, nil
	}
	id, err := m.recorder.RecordResult(ctx, e.s.UserID(), rec)
	if err != nil {
		e.recErr = err
		m.log.Error("record result failed",
			slog.String("session_id", e.s.ID()),
			slog.String("error", err.Error()),
		)
		return 0, err
	}
	e.resultID, e.recErr = id, nil
	return id, nil
}

func (m *Manager) lookup(userID int64, id string) (*entry, error) {
	m.mu.Lock()
	e, ok := m.byID[id]
	m.mu.Unlock()
	if !ok || e.s.UserID() != userID {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return e, nil
}

func (m *Manager) remove(id string, e *entry) {
	m.mu.Lock()
	if m.byID[id] == e {
		delete(m.byID, id)
	}
	m.mu.Unlock()

	e.cancel()
	e.subMu.Lock()
	for ch := range e.subs {
		close(ch)
	}
	e.subs = nil
	e.subMu.Unlock()
}

func (m *Manager) snapshot(e *entry) Snapshot {
	snap := e.s.Snapshot()
	e.recMu.Lock()
	snap.ResultID = e.resultID
	if e.recErr != nil {
		snap.RecordError = e.recErr.Error()
	}
	e.recMu.Unlock()
	return snap
}

// publish hands snap to every subscriber, replacing a stale undelivered one.
func (e *entry) publish(snap Snapshot) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
