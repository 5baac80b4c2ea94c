package hierarchy

import (
	"context"

	"github.com/kidsquiz/quiz-server/internal/importer"
)

// ImportDocument materializes a validated document into the in-memory store
// with merge-by-name reuse. The store lock is held for the whole walk, so the
// import is atomic with respect to concurrent readers.
func (s *MemoryStore) ImportDocument(_ context.Context, doc *importer.Document) (*importer.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := importer.NewSummary()

	subjectID := s.findSubjectLocked(doc.Subject.Name)
	if subjectID == 0 {
		sub := &Subject{ID: s.id(), Name: doc.Subject.Name}
		s.subjects[sub.ID] = sub
		subjectID = sub.ID
		summary.AddCreated("subject")
	} else {
		summary.AddReused("subject")
	}

	for _, topicDoc := range doc.Subject.Topics {
		topicID := findByParentAndName(s.topics, func(t *Topic) (int64, string) { return t.SubjectID, t.Name }, subjectID, topicDoc.Name)
		if topicID == 0 {
			t := &Topic{ID: s.id(), SubjectID: subjectID, Name: topicDoc.Name}
			s.topics[t.ID] = t
			topicID = t.ID
			summary.AddCreated("topic")
		} else {
			summary.AddReused("topic")
		}

		for _, classDoc := range topicDoc.Classes {
			classID := findByParentAndName(s.classes, func(c *Class) (int64, string) { return c.TopicID, c.Name }, topicID, classDoc.Name)
			if classID == 0 {
				c := &Class{ID: s.id(), TopicID: topicID, Name: classDoc.Name}
				s.classes[c.ID] = c
				classID = c.ID
				summary.AddCreated("class")
			} else {
				summary.AddReused("class")
			}

			for _, levelDoc := range classDoc.Levels {
				levelID := findByParentAndName(s.levels, func(l *Level) (int64, string) { return l.ClassID, l.Name }, classID, levelDoc.Name)
				if levelID == 0 {
					l := &Level{ID: s.id(), ClassID: classID, Name: levelDoc.Name}
					s.levels[l.ID] = l
					levelID = l.ID
					summary.AddCreated("level")
				} else {
					summary.AddReused("level")
				}

				for _, quizDoc := range levelDoc.Quizzes {
					if err := s.importQuizLocked(levelID, quizDoc, summary); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return summary, nil
}

// importQuizLocked creates the quiz or, when a quiz with the same title
// already exists under the level, replaces its metadata and questions.
func (s *MemoryStore) importQuizLocked(levelID int64, quizDoc importer.QuizDoc, summary *importer.Summary) error {
	var quiz *Quiz
	for _, q := range s.quizzes {
		if q.LevelID == levelID && q.Title == quizDoc.Title {
			quiz = q
			break
		}
	}

	if quiz != nil {
		quiz.Description = quizDoc.Description
		quiz.TimeLimit = quizDoc.TimeLimit
		for _, question := range s.questions {
			if question.QuizID == quiz.ID {
				s.deleteQuestionLocked(question.ID)
			}
		}
		summary.AddReused("quiz")
	} else {
		created, err := s.createQuizLocked(levelID, QuizDraft{
			Title:       quizDoc.Title,
			Description: quizDoc.Description,
			TimeLimit:   quizDoc.TimeLimit,
		})
		if err != nil {
			return err
		}
		quiz = created
		summary.AddCreated("quiz")
	}

	for _, questionDoc := range quizDoc.Questions {
		if _, err := s.addQuestionLocked(quiz.ID, QuestionDraft{
			Text:        questionDoc.Question,
			Options:     questionDoc.Options,
			Answer:      questionDoc.Answer,
			Explanation: questionDoc.Explanation,
		}); err != nil {
			return err
		}
		summary.AddCreated("question")
	}
	return nil
}

func (s *MemoryStore) findSubjectLocked(name string) int64 {
	for _, sub := range s.subjects {
		if sub.Name == name {
			return sub.ID
		}
	}
	return 0
}

// findByParentAndName scans a child map for an entry under parentID with the
// given name. Generic over the child type; each caller supplies a key func
// extracting (parent id, name).
func findByParentAndName[T any](items map[int64]*T, key func(*T) (int64, string), parentID int64, name string) int64 {
	for id, item := range items {
		p, n := key(item)
		if p == parentID && n == name {
			return id
		}
	}
	return 0
}
