// Package importer validates nested quiz documents and materializes them into
// the content hierarchy. A document is parsed into a typed intermediate
// representation and fully validated before a single row is written, so an
// import is always all-or-nothing.
package importer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/unicode/norm"

	"github.com/kidsquiz/quiz-server/internal/domain"
)

// Document is the root of a bulk import: one subject tree.
type Document struct {
	Subject SubjectDoc `json:"subject" yaml:"subject"`
}

// SubjectDoc is a subject with its nested topics.
type SubjectDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Topics []TopicDoc `json:"topics" yaml:"topics"`
}

// TopicDoc is a topic with its nested classes.
type TopicDoc struct {
	Name    string     `json:"name" yaml:"name"`
	Classes []ClassDoc `json:"classes" yaml:"classes"`
}

// ClassDoc is a class with its nested levels.
type ClassDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Levels []LevelDoc `json:"levels" yaml:"levels"`
}

// LevelDoc is a level with its nested quizzes.
type LevelDoc struct {
	Name    string    `json:"name" yaml:"name"`
	Quizzes []QuizDoc `json:"quizzes" yaml:"quizzes"`
}

// QuizDoc is a quiz with its questions. TimeLimit is in minutes.
type QuizDoc struct {
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	TimeLimit   int           `json:"time_limit" yaml:"time_limit"`
	Questions   []QuestionDoc `json:"questions" yaml:"questions"`
}

// QuestionDoc is a question with its options. Answer is a 0-based index into
// Options; exactly that option is flagged correct on import.
type QuestionDoc struct {
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options" yaml:"options"`
	Answer      int      `json:"answer" yaml:"answer"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// documentSchema is the structural contract for import documents. Semantic
// rules the schema cannot express (answer index range, duplicate names) are
// checked by Validate.
const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["subject"],
	"properties": {
		"subject": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"topics": {"type": "array", "items": {"$ref": "#/definitions/topic"}}
			}
		}
	},
	"definitions": {
		"topic": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"classes": {"type": "array", "items": {"$ref": "#/definitions/class"}}
			}
		},
		"class": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"levels": {"type": "array", "items": {"$ref": "#/definitions/level"}}
			}
		},
		"level": {
			"type": "object",
			"required": ["name"],
			"properties": {
				"name": {"type": "string"},
				"quizzes": {"type": "array", "items": {"$ref": "#/definitions/quiz"}}
			}
		},
		"quiz": {
			"type": "object",
			"required": ["title", "time_limit"],
			"properties": {
				"title": {"type": "string"},
				"description": {"type": "string"},
				"time_limit": {"type": "integer"},
				"questions": {"type": "array", "items": {"$ref": "#/definitions/question"}}
			}
		},
		"question": {
			"type": "object",
			"required": ["question", "options", "answer"],
			"properties": {
				"question": {"type": "string"},
				"options": {"type": "array", "items": {"type": "string"}, "minItems": 2},
				"answer": {"type": "integer", "minimum": 0},
				"explanation": {"type": "string"}
			}
		}
	}
}`

// NormalizeName trims surrounding whitespace and applies NFC normalization,
// so visually identical names compare equal during merge-by-name.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Parse decodes and fully validates an import document. It returns a
// ValidationError carrying every problem found, not just the first.
func Parse(data []byte) (*Document, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, domain.Invalid("invalid JSON: %v", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, &domain.ValidationError{Problems: problems}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.Invalid("invalid JSON: %v", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate applies the semantic rules and normalizes all names in place.
// All problems are collected into one ValidationError.
func (d *Document) Validate() error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	d.Subject.Name = NormalizeName(d.Subject.Name)
	if d.Subject.Name == "" {
		report("subject: name is empty")
	}

	seenTopics := map[string]bool{}
	for ti := range d.Subject.Topics {
		topic := &d.Subject.Topics[ti]
		topic.Name = NormalizeName(topic.Name)
		at := fmt.Sprintf("topic %q", topic.Name)
		if topic.Name == "" {
			report("topic %d: name is empty", ti+1)
		} else if seenTopics[topic.Name] {
			report("%s: duplicate topic name under subject %q", at, d.Subject.Name)
		}
		seenTopics[topic.Name] = true

		seenClasses := map[string]bool{}
		for ci := range topic.Classes {
			class := &topic.Classes[ci]
			class.Name = NormalizeName(class.Name)
			if class.Name == "" {
				report("%s: class %d: name is empty", at, ci+1)
			} else if seenClasses[class.Name] {
				report("%s: duplicate class name %q", at, class.Name)
			}
			seenClasses[class.Name] = true

			seenLevels := map[string]bool{}
			for li := range class.Levels {
				level := &class.Levels[li]
				level.Name = NormalizeName(level.Name)
				if level.Name == "" {
					report("%s: class %q: level %d: name is empty", at, class.Name, li+1)
				} else if seenLevels[level.Name] {
					report("%s: class %q: duplicate level name %q", at, class.Name, level.Name)
				}
				seenLevels[level.Name] = true

				seenQuizzes := map[string]bool{}
				for qi := range level.Quizzes {
					quiz := &level.Quizzes[qi]
					quiz.Title = NormalizeName(quiz.Title)
					quizAt := fmt.Sprintf("quiz %q (level %q)", quiz.Title, level.Name)
					if quiz.Title == "" {
						report("level %q: quiz %d: title is empty", level.Name, qi+1)
					} else if seenQuizzes[quiz.Title] {
						report("%s: duplicate quiz title", quizAt)
					}
					seenQuizzes[quiz.Title] = true

					if quiz.TimeLimit <= 0 {
						report("%s: time_limit must be positive, got %d", quizAt, quiz.TimeLimit)
					}

					for xi := range quiz.Questions {
						q := &quiz.Questions[xi]
						q.Question = strings.TrimSpace(q.Question)
						if q.Question == "" {
							report("%s: question %d: text is empty", quizAt, xi+1)
						}
						if len(q.Options) < 2 {
							report("%s: question %d: needs at least 2 options, got %d", quizAt, xi+1, len(q.Options))
						}
						if q.Answer < 0 || q.Answer >= len(q.Options) {
							report("%s: question %d: answer index %d out of range for %d options",
								quizAt, xi+1, q.Answer, len(q.Options))
						}
						for oi, opt := range q.Options {
							if strings.TrimSpace(opt) == "" {
								report("%s: question %d: option %d is empty", quizAt, xi+1, oi+1)
							}
						}
					}
				}
			}
		}
	}

	if len(problems) > 0 {
		return &domain.ValidationError{Problems: problems}
	}
	return nil
}
