// internal/api/http/events_handlers.go
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

// EventsHandler pages through the event log: GET /admin/events?after=<seq>&limit=<n>.
func EventsHandler(events *syncx.EventRepo, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)

		list, err := events.Since(r.Context(), after, limit)
		if err != nil {
			writeError(w, log, r, err)
			return
		}
		next := after
		if n := len(list); n > 0 {
			next = list[n-1].Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": list, "next": next})
	}
}
