package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pavelanni/exambank/internal/model"

	_ "modernc.org/sqlite"
)

const schemaVersion = 2

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		stem TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_answer_index INTEGER NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		marks INTEGER NOT NULL DEFAULT 1,
		topic TEXT NOT NULL,
		ai_generated INTEGER NOT NULL DEFAULT 0,
		approved INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		subject TEXT NOT NULL DEFAULT '',
		class TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		learner_id INTEGER NOT NULL,
		session_id TEXT UNIQUE,
		taken_at DATETIME NOT NULL,
		score INTEGER NOT NULL,
		total_marks INTEGER NOT NULL,
		topic_performance TEXT NOT NULL DEFAULT '[]',
		responses TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_learner ON attempts(learner_id, id);

	CREATE TABLE IF NOT EXISTS quiz_session_states (
		id TEXT PRIMARY KEY,
		learner_id INTEGER NOT NULL,
		state TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'in_progress',
		submit_claimed INTEGER NOT NULL DEFAULT 0,
		started_unix INTEGER NOT NULL,
		updated_unix INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_quiz_states_learner ON quiz_session_states(learner_id, started_unix);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		sha256 TEXT NOT NULL,
		imported_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL,
		url TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		uploaded_by INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.SetMetadata("schema_version", strconv.Itoa(schemaVersion))
}

const questionColumns = `id, created_at, stem, options, correct_answer_index, explanation,
	type, difficulty, marks, topic, ai_generated, approved`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (model.Question, error) {
	var (
		q       model.Question
		options string
	)
	err := row.Scan(&q.ID, &q.CreatedAt, &q.Stem, &options, &q.CorrectAnswerIndex, &q.Explanation,
		&q.Type, &q.Difficulty, &q.Marks, &q.Topic, &q.AIGenerated, &q.Approved)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return q, fmt.Errorf("decode options of question %s: %w", q.ID, err)
	}
	return q, nil
}

// InsertQuestion stores a question. The caller assigns the ID.
func (s *Store) InsertQuestion(q model.Question) error {
	return s.InsertQuestions([]model.Question{q})
}

// InsertQuestions stores a batch of questions in one transaction: either
// every question is stored or none is.
func (s *Store) InsertQuestions(qs []model.Question) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO questions (` + questionColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range qs {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options of question %s: %w", q.ID, err)
		}
		if _, err := stmt.Exec(
			q.ID, q.CreatedAt, q.Stem, string(options), q.CorrectAnswerIndex, q.Explanation,
			q.Type, q.Difficulty, q.Marks, q.Topic, q.AIGenerated, q.Approved,
		); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// UpdateQuestion overwrites every mutable column of a question.
func (s *Store) UpdateQuestion(q model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.db.Exec(
		`UPDATE questions SET stem = ?, options = ?, correct_answer_index = ?, explanation = ?,
		 type = ?, difficulty = ?, marks = ?, topic = ?, ai_generated = ?, approved = ?
		 WHERE id = ?`,
		q.Stem, string(options), q.CorrectAnswerIndex, q.Explanation,
		q.Type, q.Difficulty, q.Marks, q.Topic, q.AIGenerated, q.Approved, q.ID,
	)
	return err
}

// DeleteQuestion removes a question.
func (s *Store) DeleteQuestion(id string) error {
	_, err := s.db.Exec(`DELETE FROM questions WHERE id = ?`, id)
	return err
}

// ListQuestions returns all questions.
func (s *Store) ListQuestions() ([]model.Question, error) {
	return s.queryQuestions(`SELECT ` + questionColumns + ` FROM questions ORDER BY created_at, id`)
}

// ListQuestionsFiltered returns questions matching the given filters.
// Empty strings mean no filtering on that field.
func (s *Store) ListQuestionsFiltered(qtype, topic string) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if qtype != "" {
		query += ` AND type = ?`
		args = append(args, qtype)
	}
	if topic != "" {
		query += ` AND topic = ?`
		args = append(args, topic)
	}
	return s.queryQuestions(query+` ORDER BY created_at, id`, args...)
}

func (s *Store) queryQuestions(query string, args ...any) ([]model.Question, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetQuestion returns a question by ID, or nil if it does not exist.
func (s *Store) GetQuestion(id string) (*model.Question, error) {
	q, err := scanQuestion(s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListDistinctTopics returns all topics in alphabetical order.
func (s *Store) ListDistinctTopics() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT topic FROM questions ORDER BY topic`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var topics []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// QuestionCount returns the number of questions in the database.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}
