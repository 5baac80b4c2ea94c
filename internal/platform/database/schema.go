package database

// schema is the full application DDL. Foreign keys cascade downward through
// the hierarchy, and quiz deletion cascades to attempts (the store keeps no
// tombstones for attempts of a deleted quiz).
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subjects (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS topics (
	id         BIGSERIAL PRIMARY KEY,
	subject_id BIGINT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	UNIQUE (subject_id, name)
);

CREATE TABLE IF NOT EXISTS classes (
	id       BIGSERIAL PRIMARY KEY,
	topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	UNIQUE (topic_id, name)
);

CREATE TABLE IF NOT EXISTS levels (
	id       BIGSERIAL PRIMARY KEY,
	class_id BIGINT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	UNIQUE (class_id, name)
);

CREATE TABLE IF NOT EXISTS quizzes (
	id          BIGSERIAL PRIMARY KEY,
	level_id    BIGINT NOT NULL REFERENCES levels(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	time_limit  INT NOT NULL DEFAULT 30,
	visible     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (level_id, title)
);

CREATE TABLE IF NOT EXISTS questions (
	id          BIGSERIAL PRIMARY KEY,
	quiz_id     BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	position    INT NOT NULL,
	explanation TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_questions_quiz ON questions(quiz_id, position);

CREATE TABLE IF NOT EXISTS answer_options (
	id          BIGSERIAL PRIMARY KEY,
	question_id BIGINT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	text        TEXT NOT NULL,
	position    INT NOT NULL,
	is_correct  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_answer_options_question ON answer_options(question_id, position);

CREATE UNIQUE INDEX IF NOT EXISTS idx_answer_options_correct
	ON answer_options(question_id) WHERE is_correct;

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id              BIGSERIAL PRIMARY KEY,
	user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	quiz_id         BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	started_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at    TIMESTAMPTZ,
	score           INT NOT NULL DEFAULT 0,
	correct_count   INT NOT NULL DEFAULT 0,
	total_questions INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_user_quiz ON quiz_attempts(user_id, quiz_id);

CREATE TABLE IF NOT EXISTS quiz_attempt_answers (
	attempt_id         BIGINT NOT NULL REFERENCES quiz_attempts(id) ON DELETE CASCADE,
	position           INT NOT NULL,
	question_id        BIGINT NOT NULL,
	selected_option_id BIGINT,
	PRIMARY KEY (attempt_id, position)
);
`
