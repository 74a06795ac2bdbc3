package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"timed_quiz/internal/fixtures"
	"timed_quiz/internal/models"
)

func TestNewDB(t *testing.T) {
	db, err := NewDB("invalid://connection")
	assert.Error(t, err, "should fail with invalid connection string")
	assert.Nil(t, db, "db should be nil on error")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	for range schema {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	assert.NoError(t, d.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetQuestions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	ctx := context.Background()

	// Mock the options column as a PostgreSQL array string
	rows := sqlmock.NewRows([]string{"id", "quiz_id", "question_text", "options", "correct_answer"}).
		AddRow("q1", "quiz1", "What is the capital of France?", "{London,Berlin,Paris,Madrid}", 2).
		AddRow("q2", "quiz1", "Which planet is known as the Red Planet?", "{Venus,Mars,Jupiter,Saturn}", 1)

	// Escape $1 in the query regex to match PostgreSQL placeholder
	mock.ExpectQuery(`SELECT id, quiz_id, question_text, options, correct_answer\s+FROM questions\s+WHERE quiz_id = \$1\s+ORDER BY position`).
		WithArgs("quiz1").
		WillReturnRows(rows)

	questions, err := d.GetQuestions(ctx, "quiz1")
	assert.NoError(t, err, "should not return an error")
	if assert.Len(t, questions, 2) {
		assert.Equal(t, "q1", questions[0].ID, "question ID should match")
		assert.Equal(t, "quiz1", questions[0].QuizID, "quiz ID should match")
		assert.Equal(t, "What is the capital of France?", questions[0].QuestionText, "question text should match")
		assert.Equal(t, pq.StringArray{"London", "Berlin", "Paris", "Madrid"}, questions[0].Options, "options should match")
		assert.Equal(t, 2, questions[0].CorrectAnswer, "correct answer should match")
		assert.Equal(t, 1, questions[1].CorrectAnswer)
	}

	assert.NoError(t, mock.ExpectationsWereMet(), "all mock expectations should be met")
}

func TestGetQuestions_UnknownQuiz(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	mock.ExpectQuery(`FROM questions`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quiz_id", "question_text", "options", "correct_answer"}))

	_, err = d.GetQuestions(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrQuizNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedQuestions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	questions := fixtures.DefaultQuestions()
	quiz := models.Quiz{ID: fixtures.DefaultQuizID, Title: fixtures.DefaultQuizTitle}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO quizzes`).
		WithArgs(quiz.ID, quiz.Title).
		WillReturnResult(sqlmock.NewResult(1, 1))
	for i, q := range questions {
		mock.ExpectExec(`INSERT INTO questions`).
			WithArgs(q.ID, quiz.ID, i, q.QuestionText, sqlmock.AnyArg(), q.CorrectAnswer).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	assert.NoError(t, d.SeedQuestions(context.Background(), quiz, questions))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedQuestions_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	questions := fixtures.DefaultQuestions()
	quiz := models.Quiz{ID: fixtures.DefaultQuizID, Title: fixtures.DefaultQuizTitle}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO quizzes`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO questions`).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err = d.SeedQuestions(context.Background(), quiz, questions)
	assert.ErrorContains(t, err, "seed question gk-1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("user1", "Alice").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assert.NoError(t, d.EnsureUser(context.Background(), models.User{ID: "user1", Username: "Alice"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordScore(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	ctx := context.Background()

	mock.ExpectExec(`(?s)INSERT INTO user_scores.*GREATEST\(user_scores\.score, EXCLUDED\.score\)`).
		WithArgs("quiz1", "user1", 4).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = d.RecordScore(ctx, models.Result{QuizID: "quiz1", UserID: "user1", Score: 4, Total: 5, Percent: 80})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLeaderboard(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	d := &DB{db}
	ctx := context.Background()
	quizID := "quiz1"
	page := 1
	pageSize := 2

	// Mock total count query
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_scores WHERE quiz_id = \$1`).
		WithArgs(quizID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	// Mock paginated leaderboard query
	rows := sqlmock.NewRows([]string{"id", "username", "score"}).
		AddRow("user1", "Alice", 5).
		AddRow("user2", "Bob", 3)
	mock.ExpectQuery(`SELECT u\.id, u\.username, us\.score\s+FROM user_scores us`).
		WithArgs(quizID, pageSize, (page-1)*pageSize).
		WillReturnRows(rows)

	leaderboard, totalCount, err := d.GetLeaderboard(ctx, quizID, page, pageSize)
	assert.NoError(t, err)
	assert.Equal(t, 4, totalCount)
	assert.Len(t, leaderboard, 2)
	assert.Equal(t, "user1", leaderboard[0].UserID)
	assert.Equal(t, "Alice", leaderboard[0].Username)
	assert.Equal(t, 5, leaderboard[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}
