package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

const (
	TypeQuizCreated    = "QuizCreated"
	TypeQuizReplaced   = "QuizReplaced"
	TypeQuizDeleted    = "QuizDeleted"
	TypeResultRecorded = "ResultRecorded"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(h *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: h, siteID: siteID}
}

// Append writes one event through ex, normally the caller's transaction, so the
// event commits or rolls back with the change it describes.
func (r *EventRepo) Append(ctx context.Context, ex db.Execer, typ, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("syncx: marshal %s: %w", typ, err)
	}
	_, err = ex.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, event_key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(data), time.Now().Unix())
	return err
}

// Since lists events with seq > after in ascending order.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, event_key, data, created_at
		 FROM event_log WHERE seq > $1 ORDER BY seq ASC LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
