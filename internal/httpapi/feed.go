package httpapi

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kidsquiz/quiz-server/internal/attempt"
)

// feedBuffer is the per-subscriber queue depth. A subscriber that falls this
// far behind starts losing events rather than blocking the publisher.
const feedBuffer = 16

// Feed fans finished attempts out to websocket subscribers. The scoring
// engine publishes into it; admin dashboards subscribe.
type Feed struct {
	mu   sync.RWMutex
	subs map[chan attempt.Attempt]struct{}
	log  *slog.Logger
}

// NewFeed creates an empty feed.
func NewFeed(log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{subs: make(map[chan attempt.Attempt]struct{}), log: log}
}

// Publish delivers a finished attempt to every subscriber without blocking.
func (f *Feed) Publish(a attempt.Attempt) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subs {
		select {
		case ch <- a:
		default:
			f.log.Warn("feed subscriber lagging, dropping event", "attempt_id", a.ID)
		}
	}
}

func (f *Feed) subscribe() chan attempt.Attempt {
	ch := make(chan attempt.Attempt, feedBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) unsubscribe(ch chan attempt.Attempt) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// handleAttemptFeed upgrades to a websocket and streams finished attempts as
// JSON until the client goes away. Admin only.
func (s *Server) handleAttemptFeed(w http.ResponseWriter, r *http.Request) {
	if err := identity(r).RequireAdmin("watch attempt feed"); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ch := s.feed.subscribe()
	defer s.feed.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case a := <-ch:
			if err := wsjson.Write(ctx, conn, a); err != nil {
				return
			}
		}
	}
}
