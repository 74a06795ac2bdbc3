package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"timed_quiz/internal/models"
)

var ErrQuizNotFound = errors.New("quiz not found")

type DB struct {
	*sql.DB
}

func NewDB(connStr string) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		position INT NOT NULL,
		question_text TEXT NOT NULL,
		options TEXT[] NOT NULL,
		correct_answer INT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_scores (
		quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		score INT NOT NULL,
		PRIMARY KEY (quiz_id, user_id)
	)`,
}

// Migrate creates the tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// GetQuestions returns the question set of a quiz in play order.
func (db *DB) GetQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, quiz_id, question_text, options, correct_answer
		FROM questions
		WHERE quiz_id = $1
		ORDER BY position
	`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.QuestionText, &q.Options, &q.CorrectAnswer); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, quizID)
	}
	return questions, nil
}

// SeedQuestions stores a quiz and its questions, replacing earlier versions
// of the same rows.
func (db *DB) SeedQuestions(ctx context.Context, quiz models.Quiz, questions []models.Question) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quizzes (id, title)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title
	`, quiz.ID, quiz.Title); err != nil {
		return err
	}

	for i, q := range questions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, quiz_id, position, question_text, options, correct_answer)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				quiz_id = EXCLUDED.quiz_id,
				position = EXCLUDED.position,
				question_text = EXCLUDED.question_text,
				options = EXCLUDED.options,
				correct_answer = EXCLUDED.correct_answer
		`, q.ID, quiz.ID, i, q.QuestionText, pq.Array([]string(q.Options)), q.CorrectAnswer); err != nil {
			return fmt.Errorf("seed question %s: %w", q.ID, err)
		}
	}

	return tx.Commit()
}

func (db *DB) EnsureUser(ctx context.Context, user models.User) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username
	`, user.ID, user.Username)
	return err
}

// RecordScore keeps the best score a user has reached on a quiz.
func (db *DB) RecordScore(ctx context.Context, result models.Result) error {
	_, err := db.ExecContext(ctx, `
        INSERT INTO user_scores (quiz_id, user_id, score)
        VALUES ($1, $2, $3)
        ON CONFLICT (quiz_id, user_id)
        DO UPDATE SET score = GREATEST(user_scores.score, EXCLUDED.score)
    `, result.QuizID, result.UserID, result.Score)
	return err
}

func (db *DB) GetLeaderboard(ctx context.Context, quizID string, page, pageSize int) ([]models.LeaderboardEntry, int, error) {
	offset := (page - 1) * pageSize

	var totalCount int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_scores WHERE quiz_id = $1", quizID).Scan(&totalCount)
	if err != nil {
		return nil, 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT u.id, u.username, us.score
		FROM user_scores us
		JOIN users u ON us.user_id = u.id
		WHERE us.quiz_id = $1
		ORDER BY us.score DESC, u.username
		LIMIT $2 OFFSET $3
	`, quizID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var leaderboard []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Score); err != nil {
			return nil, 0, err
		}
		leaderboard = append(leaderboard, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return leaderboard, totalCount, nil
}
