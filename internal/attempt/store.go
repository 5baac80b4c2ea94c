// Package attempt records quiz runs and scores them. The score stored on an
// attempt is always derived server-side from the recorded selections; a
// client-sent score is never trusted.
package attempt

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

// Selection is one answered question: the option the user picked. A zero
// SelectedOptionID means the question was left unanswered.
type Selection struct {
	QuestionID       int64 `json:"question_id"`
	SelectedOptionID int64 `json:"selected_option_id"`
}

// Attempt is one recorded run of a user through a quiz. Score is a 0-100
// percentage rounded to the nearest integer. CompletedAt is nil while the
// attempt is in progress.
type Attempt struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"user_id"`
	QuizID         int64       `json:"quiz_id"`
	StartedAt      time.Time   `json:"started_at"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
	Score          int         `json:"score"`
	CorrectCount   int         `json:"correct_count"`
	TotalQuestions int         `json:"total_questions"`
	Selections     []Selection `json:"selections,omitempty"`
}

// Statistics aggregates attempt activity for the admin dashboard.
type Statistics struct {
	TotalUsers     int          `json:"total_users"`
	AdminUsers     int          `json:"admin_users"`
	TotalAttempts  int          `json:"total_attempts"`
	AverageScore   float64      `json:"average_score"`
	AverageSeconds float64      `json:"average_seconds"`
	ActiveUsers    []ActiveUser `json:"active_users"`
}

// ActiveUser is one row of the most-active-users leaderboard.
type ActiveUser struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	AttemptCount int    `json:"attempt_count"`
}

// Store persists quiz attempts.
type Store interface {
	// Create opens an in-progress attempt.
	Create(ctx context.Context, userID, quizID int64, startedAt time.Time) (Attempt, error)
	// Get returns an attempt with its selections.
	Get(ctx context.Context, id int64) (*Attempt, error)
	// Finalize writes score, selections and completion time. It fails with
	// ConflictError if the attempt was already finalized.
	Finalize(ctx context.Context, a *Attempt) error
	// ListByUserQuiz returns a user's attempts on a quiz, newest first.
	ListByUserQuiz(ctx context.Context, userID, quizID int64) ([]Attempt, error)
	// ListAll returns every attempt, newest first.
	ListAll(ctx context.Context) ([]Attempt, error)
	Statistics(ctx context.Context) (Statistics, error)
}

// MemoryStore is an in-memory Store implementation for tests. Its statistics
// cover attempts only; user counts come from the users table and stay zero
// here.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	attempts map[int64]*Attempt
}

// NewMemoryStore creates an empty in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{attempts: make(map[int64]*Attempt)}
}

func (s *MemoryStore) Create(_ context.Context, userID, quizID int64, startedAt time.Time) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	a := &Attempt{
		ID:        s.nextID,
		UserID:    userID,
		QuizID:    quizID,
		StartedAt: startedAt,
	}
	s.attempts[a.ID] = a
	return *a, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[id]
	if !ok {
		return nil, domain.NotFound("attempt", id)
	}
	copied := *a
	copied.Selections = append([]Selection(nil), a.Selections...)
	return &copied, nil
}

func (s *MemoryStore) Finalize(_ context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.attempts[a.ID]
	if !ok {
		return domain.NotFound("attempt", a.ID)
	}
	if stored.CompletedAt != nil {
		return domain.Conflict("attempt %d already submitted", a.ID)
	}
	stored.CompletedAt = a.CompletedAt
	stored.Score = a.Score
	stored.CorrectCount = a.CorrectCount
	stored.TotalQuestions = a.TotalQuestions
	stored.Selections = append([]Selection(nil), a.Selections...)
	return nil
}

func (s *MemoryStore) ListByUserQuiz(_ context.Context, userID, quizID int64) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Attempt
	for _, a := range s.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *MemoryStore) Statistics(_ context.Context) (Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Statistics{}
	var scoreSum, secondsSum float64
	var completed int
	counts := map[int64]int{}
	for _, a := range s.attempts {
		if a.CompletedAt == nil {
			continue
		}
		completed++
		scoreSum += float64(a.Score)
		secondsSum += a.CompletedAt.Sub(a.StartedAt).Seconds()
		counts[a.UserID]++
	}
	stats.TotalAttempts = completed
	if completed > 0 {
		stats.AverageScore = scoreSum / float64(completed)
		stats.AverageSeconds = secondsSum / float64(completed)
	}
	for userID, n := range counts {
		stats.ActiveUsers = append(stats.ActiveUsers, ActiveUser{UserID: userID, AttemptCount: n})
	}
	sort.Slice(stats.ActiveUsers, func(i, j int) bool {
		if stats.ActiveUsers[i].AttemptCount != stats.ActiveUsers[j].AttemptCount {
			return stats.ActiveUsers[i].AttemptCount > stats.ActiveUsers[j].AttemptCount
		}
		return stats.ActiveUsers[i].UserID < stats.ActiveUsers[j].UserID
	})
	if len(stats.ActiveUsers) > 5 {
		stats.ActiveUsers = stats.ActiveUsers[:5]
	}
	return stats, nil
}
