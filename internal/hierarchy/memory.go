package hierarchy

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

// MemoryStore is an in-memory Store implementation used in tests and as the
// reference for the Postgres store's semantics.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	subjects  map[int64]*Subject
	topics    map[int64]*Topic
	classes   map[int64]*Class
	levels    map[int64]*Level
	quizzes   map[int64]*Quiz
	questions map[int64]*Question
	options   map[int64]*AnswerOption
}

// NewMemoryStore creates an empty in-memory hierarchy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subjects:  make(map[int64]*Subject),
		topics:    make(map[int64]*Topic),
		classes:   make(map[int64]*Class),
		levels:    make(map[int64]*Level),
		quizzes:   make(map[int64]*Quiz),
		questions: make(map[int64]*Question),
		options:   make(map[int64]*AnswerOption),
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

// --- Subjects ---

func (s *MemoryStore) CreateSubject(_ context.Context, actor domain.Identity, name string) (Subject, error) {
	if err := actor.RequireAdmin("create subject"); err != nil {
		return Subject{}, err
	}
	name, err := validName(name)
	if err != nil {
		return Subject{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subjects {
		if sub.Name == name {
			return Subject{}, domain.Conflict("subject %q already exists", name)
		}
	}
	sub := &Subject{ID: s.id(), Name: name}
	s.subjects[sub.ID] = sub
	return *sub, nil
}

func (s *MemoryStore) ListSubjects(_ context.Context) ([]Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		out = append(out, *sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetSubject(_ context.Context, id int64) (Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subjects[id]
	if !ok {
		return Subject{}, domain.NotFound("subject", id)
	}
	return *sub, nil
}

func (s *MemoryStore) RenameSubject(_ context.Context, actor domain.Identity, id int64, name string) error {
	if err := actor.RequireAdmin("rename subject"); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subjects[id]
	if !ok {
		return domain.NotFound("subject", id)
	}
	for _, other := range s.subjects {
		if other.ID != id && other.Name == name {
			return domain.Conflict("subject %q already exists", name)
		}
	}
	sub.Name = name
	return nil
}

func (s *MemoryStore) DeleteSubject(_ context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete subject"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[id]; !ok {
		return domain.NotFound("subject", id)
	}
	for _, topic := range s.topics {
		if topic.SubjectID == id {
			s.deleteTopicLocked(topic.ID)
		}
	}
	delete(s.subjects, id)
	return nil
}

// --- Topics ---

func (s *MemoryStore) CreateTopic(_ context.Context, actor domain.Identity, subjectID int64, name string) (Topic, error) {
	if err := actor.RequireAdmin("create topic"); err != nil {
		return Topic{}, err
	}
	name, err := validName(name)
	if err != nil {
		return Topic{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subjects[subjectID]; !ok {
		return Topic{}, domain.NotFound("subject", subjectID)
	}
	for _, t := range s.topics {
		if t.SubjectID == subjectID && t.Name == name {
			return Topic{}, domain.Conflict("topic %q already exists in this subject", name)
		}
	}
	topic := &Topic{ID: s.id(), SubjectID: subjectID, Name: name}
	s.topics[topic.ID] = topic
	return *topic, nil
}

func (s *MemoryStore) ListTopics(_ context.Context, subjectID int64) ([]Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.subjects[subjectID]; !ok {
		return nil, domain.NotFound("subject", subjectID)
	}
	var out []Topic
	for _, t := range s.topics {
		if t.SubjectID == subjectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetTopic(_ context.Context, id int64) (Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return Topic{}, domain.NotFound("topic", id)
	}
	return *t, nil
}

func (s *MemoryStore) RenameTopic(_ context.Context, actor domain.Identity, id int64, name string) error {
	if err := actor.RequireAdmin("rename topic"); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[id]
	if !ok {
		return domain.NotFound("topic", id)
	}
	for _, other := range s.topics {
		if other.ID != id && other.SubjectID == t.SubjectID && other.Name == name {
			return domain.Conflict("topic %q already exists in this subject", name)
		}
	}
	t.Name = name
	return nil
}

func (s *MemoryStore) DeleteTopic(_ context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete topic"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[id]; !ok {
		return domain.NotFound("topic", id)
	}
	s.deleteTopicLocked(id)
	return nil
}

func (s *MemoryStore) deleteTopicLocked(id int64) {
	for _, class := range s.classes {
		if class.TopicID == id {
			s.deleteClassLocked(class.ID)
		}
	}
	delete(s.topics, id)
}

// --- Classes ---

func (s *MemoryStore) CreateClass(_ context.Context, actor domain.Identity, topicID int64, name string) (Class, error) {
	if err := actor.RequireAdmin("create class"); err != nil {
		return Class{}, err
	}
	name, err := validName(name)
	if err != nil {
		return Class{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topicID]; !ok {
		return Class{}, domain.NotFound("topic", topicID)
	}
	for _, c := range s.classes {
		if c.TopicID == topicID && c.Name == name {
			return Class{}, domain.Conflict("class %q already exists in this topic", name)
		}
	}
	class := &Class{ID: s.id(), TopicID: topicID, Name: name}
	s.classes[class.ID] = class
	return *class, nil
}

func (s *MemoryStore) ListClasses(_ context.Context, topicID int64) ([]Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.topics[topicID]; !ok {
		return nil, domain.NotFound("topic", topicID)
	}
	var out []Class
	for _, c := range s.classes {
		if c.TopicID == topicID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetClass(_ context.Context, id int64) (Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.classes[id]
	if !ok {
		return Class{}, domain.NotFound("class", id)
	}
	return *c, nil
}

func (s *MemoryStore) RenameClass(_ context.Context, actor domain.Identity, id int64, name string) error {
	if err := actor.RequireAdmin("rename class"); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.classes[id]
	if !ok {
		return domain.NotFound("class", id)
	}
	for _, other := range s.classes {
		if other.ID != id && other.TopicID == c.TopicID && other.Name == name {
			return domain.Conflict("class %q already exists in this topic", name)
		}
	}
	c.Name = name
	return nil
}

func (s *MemoryStore) DeleteClass(_ context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete class"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classes[id]; !ok {
		return domain.NotFound("class", id)
	}
	s.deleteClassLocked(id)
	return nil
}

func (s *MemoryStore) deleteClassLocked(id int64) {
	for _, level := range s.levels {
		if level.ClassID == id {
			s.deleteLevelLocked(level.ID)
		}
	}
	delete(s.classes, id)
}

// --- Levels ---

func (s *MemoryStore) CreateLevel(_ context.Context, actor domain.Identity, classID int64, name string) (Level, error) {
	if err := actor.RequireAdmin("create level"); err != nil {
		return Level{}, err
	}
	name, err := validName(name)
	if err != nil {
		return Level{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.classes[classID]; !ok {
		return Level{}, domain.NotFound("class", classID)
	}
	for _, l := range s.levels {
		if l.ClassID == classID && l.Name == name {
			return Level{}, domain.Conflict("level %q already exists in this class", name)
		}
	}
	level := &Level{ID: s.id(), ClassID: classID, Name: name}
	s.levels[level.ID] = level
	return *level, nil
}

func (s *MemoryStore) ListLevels(_ context.Context, classID int64) ([]Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.classes[classID]; !ok {
		return nil, domain.NotFound("class", classID)
	}
	var out []Level
	for _, l := range s.levels {
		if l.ClassID == classID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetLevel(_ context.Context, id int64) (Level, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.levels[id]
	if !ok {
		return Level{}, domain.NotFound("level", id)
	}
	return *l, nil
}

func (s *MemoryStore) RenameLevel(_ context.Context, actor domain.Identity, id int64, name string) error {
	if err := actor.RequireAdmin("rename level"); err != nil {
		return err
	}
	name, err := validName(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.levels[id]
	if !ok {
		return domain.NotFound("level", id)
	}
	for _, other := range s.levels {
		if other.ID != id && other.ClassID == l.ClassID && other.Name == name {
			return domain.Conflict("level %q already exists in this class", name)
		}
	}
	l.Name = name
	return nil
}

func (s *MemoryStore) DeleteLevel(_ context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete level"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.levels[id]; !ok {
		return domain.NotFound("level", id)
	}
	s.deleteLevelLocked(id)
	return nil
}

func (s *MemoryStore) deleteLevelLocked(id int64) {
	for _, quiz := range s.quizzes {
		if quiz.LevelID == id {
			s.deleteQuizLocked(quiz.ID)
		}
	}
	delete(s.levels, id)
}

// --- Quizzes ---

func (s *MemoryStore) CreateQuiz(_ context.Context, actor domain.Identity, levelID int64, draft QuizDraft) (Quiz, error) {
	if err := actor.RequireAdmin("create quiz"); err != nil {
		return Quiz{}, err
	}
	draft, err := validQuizDraft(draft)
	if err != nil {
		return Quiz{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, err := s.createQuizLocked(levelID, draft)
	if err != nil {
		return Quiz{}, err
	}
	return *quiz, nil
}

func (s *MemoryStore) createQuizLocked(levelID int64, draft QuizDraft) (*Quiz, error) {
	if _, ok := s.levels[levelID]; !ok {
		return nil, domain.NotFound("level", levelID)
	}
	for _, q := range s.quizzes {
		if q.LevelID == levelID && q.Title == draft.Title {
			return nil, domain.Conflict("quiz %q already exists in this level", draft.Title)
		}
	}
	now := time.Now()
	quiz := &Quiz{
		ID:          s.id(),
		LevelID:     levelID,
		Title:       draft.Title,
		Description: draft.Description,
		TimeLimit:   draft.TimeLimit,
		Visible:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.quizzes[quiz.ID] = quiz
	return quiz, nil
}

func (s *MemoryStore) ListQuizzes(_ context.Context, actor domain.Identity, levelID int64) ([]Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.levels[levelID]; !ok {
		return nil, domain.NotFound("level", levelID)
	}
	var out []Quiz
	for _, q := range s.quizzes {
		if q.LevelID != levelID {
			continue
		}
		if !q.Visible && !actor.IsAdmin {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetQuiz(_ context.Context, actor domain.Identity, id int64) (Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok || (!q.Visible && !actor.IsAdmin) {
		return Quiz{}, domain.NotFound("quiz", id)
	}
	return *q, nil
}

func (s *MemoryStore) GetQuizContent(_ context.Context, id int64) (*QuizContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quizzes[id]
	if !ok {
		return nil, domain.NotFound("quiz", id)
	}

	content := &QuizContent{Quiz: *q}
	var questions []*Question
	for _, question := range s.questions {
		if question.QuizID == id {
			questions = append(questions, question)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })

	for _, question := range questions {
		qc := QuestionContent{Question: *question}
		for _, opt := range s.options {
			if opt.QuestionID == question.ID {
				qc.Options = append(qc.Options, *opt)
			}
		}
		sort.Slice(qc.Options, func(i, j int) bool { return qc.Options[i].Position < qc.Options[j].Position })
		content.Questions = append(content.Questions, qc)
	}
	return content, nil
}

func (s *MemoryStore) UpdateQuiz(_ context.Context, actor domain.Identity, id int64, draft QuizDraft) error {
	if err := actor.RequireAdmin("update quiz"); err != nil {
		return err
	}
	draft, err := validQuizDraft(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return domain.NotFound("quiz", id)
	}
	for _, other := range s.quizzes {
		if other.ID != id && other.LevelID == q.LevelID && other.Title == draft.Title {
			return domain.Conflict("quiz %q already exists in this level", draft.Title)
		}
	}
	q.Title = draft.Title
	q.Description = draft.Description
	q.TimeLimit = draft.TimeLimit
	q.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetQuizVisibility(_ context.Context, actor domain.Identity, id int64, visible bool) error {
	if err := actor.RequireAdmin("toggle quiz visibility"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quizzes[id]
	if !ok {
		return domain.NotFound("quiz", id)
	}
	q.Visible = visible
	q.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteQuiz(_ context.Context, actor domain.Identity, id int64) error {
	if err := actor.RequireAdmin("delete quiz"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[id]; !ok {
		return domain.NotFound("quiz", id)
	}
	s.deleteQuizLocked(id)
	return nil
}

func (s *MemoryStore) deleteQuizLocked(id int64) {
	for _, question := range s.questions {
		if question.QuizID == id {
			s.deleteQuestionLocked(question.ID)
		}
	}
	delete(s.quizzes, id)
}

// --- Questions ---

func (s *MemoryStore) AddQuestion(_ context.Context, actor domain.Identity, quizID int64, draft QuestionDraft) (Question, error) {
	if err := actor.RequireAdmin("add question"); err != nil {
		return Question{}, err
	}
	draft, err := validQuestionDraft(draft)
	if err != nil {
		return Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quizzes[quizID]; !ok {
		return Question{}, domain.NotFound("quiz", quizID)
	}
	q, err := s.addQuestionLocked(quizID, draft)
	if err != nil {
		return Question{}, err
	}
	return *q, nil
}

func (s *MemoryStore) addQuestionLocked(quizID int64, draft QuestionDraft) (*Question, error) {
	position := 1
	for _, q := range s.questions {
		if q.QuizID == quizID && q.Position >= position {
			position = q.Position + 1
		}
	}
	question := &Question{
		ID:          s.id(),
		QuizID:      quizID,
		Text:        draft.Text,
		Position:    position,
		Explanation: draft.Explanation,
	}
	s.questions[question.ID] = question
	for i, text := range draft.Options {
		opt := &AnswerOption{
			ID:         s.id(),
			QuestionID: question.ID,
			Text:       text,
			Position:   i + 1,
			Correct:    i == draft.Answer,
		}
		s.options[opt.ID] = opt
	}
	return question, nil
}

func (s *MemoryStore) UpdateQuestion(_ context.Context, actor domain.Identity, questionID int64, draft QuestionDraft) error {
	if err := actor.RequireAdmin("update question"); err != nil {
		return err
	}
	draft, err := validQuestionDraft(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.questions[questionID]
	if !ok {
		return domain.NotFound("question", questionID)
	}
	question.Text = draft.Text
	question.Explanation = draft.Explanation
	for id, opt := range s.options {
		if opt.QuestionID == questionID {
			delete(s.options, id)
		}
	}
	for i, text := range draft.Options {
		opt := &AnswerOption{
			ID:         s.id(),
			QuestionID: questionID,
			Text:       text,
			Position:   i + 1,
			Correct:    i == draft.Answer,
		}
		s.options[opt.ID] = opt
	}
	return nil
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, actor domain.Identity, questionID int64) error {
	if err := actor.RequireAdmin("delete question"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[questionID]; !ok {
		return domain.NotFound("question", questionID)
	}
	s.deleteQuestionLocked(questionID)
	return nil
}

func (s *MemoryStore) deleteQuestionLocked(id int64) {
	for optID, opt := range s.options {
		if opt.QuestionID == id {
			delete(s.options, optID)
		}
	}
	delete(s.questions, id)
}
