package attempt

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/kidsquiz/quiz-server/internal/domain"
	"github.com/kidsquiz/quiz-server/internal/hierarchy"
)

// defaultGrace pads the quiz time limit on submission. Network latency between
// the client-side timer expiring and the request arriving should not void an
// otherwise on-time run.
const defaultGrace = 30 * time.Second

// QuizSource is the slice of the hierarchy store the engine needs.
// GetQuiz enforces visibility for the acting user; GetQuizContent does not,
// so an attempt started while a quiz was visible can still be graded after
// an admin hides it.
type QuizSource interface {
	GetQuiz(ctx context.Context, actor domain.Identity, id int64) (hierarchy.Quiz, error)
	GetQuizContent(ctx context.Context, id int64) (*hierarchy.QuizContent, error)
}

// BreakdownRow is the per-question review shown after submission.
type BreakdownRow struct {
	QuestionID    int64  `json:"question_id"`
	Question      string `json:"question"`
	Selected      string `json:"selected,omitempty"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// Result is a finalized attempt together with its question breakdown.
type Result struct {
	Attempt   Attempt        `json:"attempt"`
	Breakdown []BreakdownRow `json:"breakdown"`
}

// EngineConfig configures an Engine. Quizzes and Attempts are required.
type EngineConfig struct {
	Quizzes  QuizSource
	Attempts Store
	// Grace is added to each quiz's time limit when checking submissions.
	// Zero means defaultGrace.
	Grace time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
	// Notify, when set, is called with every finalized attempt.
	Notify func(Attempt)
	Logger *slog.Logger
}

// Engine runs attempts: it opens them against visible quizzes, enforces the
// time limit at submission and derives the score from the stored answer key.
type Engine struct {
	quizzes  QuizSource
	attempts Store
	grace    time.Duration
	now      func() time.Time
	notify   func(Attempt)
	log      *slog.Logger
}

// NewEngine creates an Engine from cfg, filling in defaults.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		quizzes:  cfg.Quizzes,
		attempts: cfg.Attempts,
		grace:    cfg.Grace,
		now:      cfg.Now,
		notify:   cfg.Notify,
		log:      cfg.Logger,
	}
	if e.grace == 0 {
		e.grace = defaultGrace
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Start opens an attempt on a quiz for the acting user. Hidden quizzes are
// not startable by non-admins; GetQuiz already reports them as not found.
func (e *Engine) Start(ctx context.Context, actor domain.Identity, quizID int64) (Attempt, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, actor, quizID)
	if err != nil {
		return Attempt{}, err
	}

	a, err := e.attempts.Create(ctx, actor.UserID, quiz.ID, e.now().UTC())
	if err != nil {
		return Attempt{}, err
	}
	e.log.Info("attempt started", "attempt_id", a.ID, "quiz_id", quiz.ID, "user_id", actor.UserID)
	return a, nil
}

// Submit grades the selections against the quiz's answer key and finalizes
// the attempt. Submissions arriving after the time limit plus grace are
// rejected and the attempt stays open. Only the attempt's owner (or an admin)
// may submit it, and an attempt can be submitted once.
func (e *Engine) Submit(ctx context.Context, actor domain.Identity, attemptID int64, selections []Selection) (*Result, error) {
	a, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.UserID && !actor.IsAdmin {
		return nil, &domain.AuthorizationError{Op: "submit attempt"}
	}
	if a.CompletedAt != nil {
		return nil, domain.Conflict("attempt %d already submitted", a.ID)
	}

	content, err := e.quizzes.GetQuizContent(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	if content.TimeLimit > 0 {
		allowed := time.Duration(content.TimeLimit)*time.Minute + e.grace
		if elapsed := now.Sub(a.StartedAt); elapsed > allowed {
			return nil, domain.Invalid("time limit of %d minutes exceeded", content.TimeLimit)
		}
	}

	correct, breakdown := grade(content, selections)
	a.CompletedAt = &now
	a.CorrectCount = correct
	a.TotalQuestions = len(content.Questions)
	a.Score = percent(correct, len(content.Questions))
	a.Selections = normalizeSelections(content, selections)

	if err := e.attempts.Finalize(ctx, a); err != nil {
		return nil, err
	}
	e.log.Info("attempt submitted",
		"attempt_id", a.ID,
		"quiz_id", a.QuizID,
		"user_id", a.UserID,
		"score", a.Score,
	)
	if e.notify != nil {
		e.notify(*a)
	}
	return &Result{Attempt: *a, Breakdown: breakdown}, nil
}

// Review rebuilds the breakdown for a finished attempt from its stored
// selections. The owner and admins may review; everyone else gets not found
// rather than confirmation that the attempt exists.
func (e *Engine) Review(ctx context.Context, actor domain.Identity, attemptID int64) (*Result, error) {
	a, err := e.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.UserID && !actor.IsAdmin {
		return nil, domain.NotFound("attempt", attemptID)
	}
	if a.CompletedAt == nil {
		return nil, domain.Conflict("attempt %d not yet submitted", a.ID)
	}

	content, err := e.quizzes.GetQuizContent(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	_, breakdown := grade(content, a.Selections)
	return &Result{Attempt: *a, Breakdown: breakdown}, nil
}

// History lists the acting user's finished attempts on a quiz, newest first.
// Admins may pass another user's id through forUser; non-admins always see
// their own.
func (e *Engine) History(ctx context.Context, actor domain.Identity, quizID, forUser int64) ([]Attempt, error) {
	userID := actor.UserID
	if forUser != 0 && forUser != actor.UserID {
		if !actor.IsAdmin {
			return nil, &domain.AuthorizationError{Op: "list another user's attempts"}
		}
		userID = forUser
	}

	all, err := e.attempts.ListByUserQuiz(ctx, userID, quizID)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, a := range all {
		if a.CompletedAt != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

// grade walks the quiz questions in order and checks each stored selection
// against the option flagged correct. Selections for unknown questions are
// ignored; questions without a selection count as wrong.
func grade(content *hierarchy.QuizContent, selections []Selection) (int, []BreakdownRow) {
	chosen := make(map[int64]int64, len(selections))
	for _, sel := range selections {
		chosen[sel.QuestionID] = sel.SelectedOptionID
	}

	correct := 0
	rows := make([]BreakdownRow, 0, len(content.Questions))
	for _, q := range content.Questions {
		row := BreakdownRow{
			QuestionID:  q.ID,
			Question:    q.Text,
			Explanation: q.Explanation,
		}
		selectedID := chosen[q.ID]
		for _, opt := range q.Options {
			if opt.Correct {
				row.CorrectAnswer = opt.Text
				row.Correct = opt.ID == selectedID
			}
			if opt.ID == selectedID {
				row.Selected = opt.Text
			}
		}
		if row.Correct {
			correct++
		}
		rows = append(rows, row)
	}
	return correct, rows
}

// percent rounds correct/total to the nearest whole percentage.
func percent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// normalizeSelections keeps one selection per quiz question, in question
// order, dropping selections that reference other quizzes.
func normalizeSelections(content *hierarchy.QuizContent, selections []Selection) []Selection {
	chosen := make(map[int64]int64, len(selections))
	for _, sel := range selections {
		chosen[sel.QuestionID] = sel.SelectedOptionID
	}
	out := make([]Selection, 0, len(content.Questions))
	for _, q := range content.Questions {
		out = append(out, Selection{QuestionID: q.ID, SelectedOptionID: chosen[q.ID]})
	}
	return out
}
