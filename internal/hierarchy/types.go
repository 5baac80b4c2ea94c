// Package hierarchy persists the Subject → Topic → Class → Level → Quiz →
// Question → AnswerOption tree. Mutations are admin-only; students get
// read-only descent with hidden quizzes filtered out.
package hierarchy

import "time"

// Subject is the root of the hierarchy. Names are globally unique.
type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Topic belongs to a subject. Names are unique per subject.
type Topic struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
}

// Class belongs to a topic.
type Class struct {
	ID      int64  `json:"id"`
	TopicID int64  `json:"topic_id"`
	Name    string `json:"name"`
}

// Level belongs to a class.
type Level struct {
	ID      int64  `json:"id"`
	ClassID int64  `json:"class_id"`
	Name    string `json:"name"`
}

// Quiz belongs to a level. TimeLimit is in minutes. A quiz with Visible set
// to false is hidden from student listings but stays reachable by admins and
// by existing attempt history.
type Quiz struct {
	ID          int64     `json:"id"`
	LevelID     int64     `json:"level_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TimeLimit   int       `json:"time_limit"`
	Visible     bool      `json:"visible"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Question belongs to a quiz. Position fixes the display order.
type Question struct {
	ID          int64  `json:"id"`
	QuizID      int64  `json:"quiz_id"`
	Text        string `json:"text"`
	Position    int    `json:"position"`
	Explanation string `json:"explanation"`
}

// AnswerOption belongs to a question. Exactly one option per question has
// Correct set.
type AnswerOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Text       string `json:"text"`
	Position   int    `json:"position"`
	Correct    bool   `json:"correct"`
}

// QuestionContent is a question with its options in display order.
type QuestionContent struct {
	Question
	Options []AnswerOption `json:"options"`
}

// QuizContent is a quiz with its full question and option tree, as the
// scoring engine consumes it.
type QuizContent struct {
	Quiz
	Questions []QuestionContent `json:"questions"`
}

// QuizDraft carries the editable quiz fields for create and update.
type QuizDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TimeLimit   int    `json:"time_limit"`
}

// QuestionDraft carries a question with its options for create and update.
// Answer is a 0-based index into Options.
type QuestionDraft struct {
	Text        string   `json:"text"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation"`
}
