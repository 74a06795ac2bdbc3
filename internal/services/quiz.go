package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"timed_quiz/internal/database"
	"timed_quiz/internal/metrics"
	"timed_quiz/internal/models"
	"timed_quiz/internal/quiz"
)

//go:generate mockgen -destination=quiz_mock.go -package=services . QuizServiceInterface

const (
	defaultPageSize = 10
	maxPageSize     = 100
	recordTimeout   = 5 * time.Second
)

type QuizServiceInterface interface {
	StartSession(ctx context.Context, quizID string, user models.User, observer quiz.Observer) (*quiz.Runner, error)
	GetLeaderboard(ctx context.Context, quizID string, page, pageSize int) (*models.PaginatedLeaderboard, error)
	OnLeaderboardUpdate(fn func(quizID string, leaderboard *models.PaginatedLeaderboard))
}

type Options struct {
	QuestionSeconds int
	TickInterval    time.Duration
	QuestionTTL     time.Duration
	PageSize        int
}

type QuizService struct {
	db    *database.DB
	redis *redis.Client
	log   *zap.Logger
	opts  Options

	mu        sync.RWMutex
	listeners []func(string, *models.PaginatedLeaderboard)
}

func NewQuizService(db *database.DB, redis *redis.Client, log *zap.Logger, opts Options) *QuizService {
	if opts.QuestionSeconds <= 0 {
		opts.QuestionSeconds = quiz.DefaultQuestionTime
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &QuizService{db: db, redis: redis, log: log, opts: opts}
}

func questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func leaderboardKey(quizID string, page, pageSize int) string {
	return "quiz:" + quizID + ":leaderboard:" + strconv.Itoa(page) + ":" + strconv.Itoa(pageSize)
}

// Questions returns the question set of a quiz, from Redis when cached.
func (s *QuizService) Questions(ctx context.Context, quizID string) ([]models.Question, error) {
	key := questionsKey(quizID)
	val, err := s.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var questions []models.Question
		if err := json.Unmarshal([]byte(val), &questions); err == nil && len(questions) > 0 {
			return questions, nil
		}
		s.log.Warn("discarding unreadable cached questions", zap.String("quiz_id", quizID))
	case !errors.Is(err, redis.Nil):
		s.log.Warn("question cache unavailable", zap.String("quiz_id", quizID), zap.Error(err))
	}

	questions, err := s.db.GetQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	jsonData, _ := json.Marshal(questions)
	if err := s.redis.Set(ctx, key, jsonData, s.opts.QuestionTTL).Err(); err != nil {
		s.log.Warn("caching questions failed", zap.String("quiz_id", quizID), zap.Error(err))
	}
	return questions, nil
}

// StartSession builds a live session for user on quizID. The caller starts
// the returned runner and must Close it when the player leaves.
func (s *QuizService) StartSession(ctx context.Context, quizID string, user models.User, observer quiz.Observer) (*quiz.Runner, error) {
	questions, err := s.Questions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	if err := s.db.EnsureUser(ctx, user); err != nil {
		return nil, fmt.Errorf("register user %s: %w", user.ID, err)
	}

	session, err := quiz.NewSession(questions, quiz.WithQuestionTime(s.opts.QuestionSeconds))
	if err != nil {
		return nil, fmt.Errorf("quiz %s: %w", quizID, err)
	}

	log := s.log.With(zap.String("quiz_id", quizID), zap.String("user_id", user.ID))
	wrapped := quiz.Observer{
		OnChange: observer.OnChange,
		OnAnswer: func(index int, correct bool) {
			metrics.Answers.WithLabelValues(quizID, strconv.FormatBool(correct)).Inc()
			log.Debug("answer selected", zap.Int("question", index), zap.Bool("correct", correct))
			if observer.OnAnswer != nil {
				observer.OnAnswer(index, correct)
			}
		},
		OnTimeout: func(index int) {
			metrics.Timeouts.WithLabelValues(quizID).Inc()
			log.Debug("question timed out", zap.Int("question", index))
			if observer.OnTimeout != nil {
				observer.OnTimeout(index)
			}
		},
		OnFinish: func(result models.Result) {
			result.QuizID = quizID
			result.UserID = user.ID
			metrics.SessionsCompleted.WithLabelValues(quizID).Inc()
			metrics.ScorePercent.WithLabelValues(quizID).Observe(float64(result.Percent))
			log.Info("quiz finished", zap.Int("score", result.Score), zap.Int("total", result.Total))
			if observer.OnFinish != nil {
				observer.OnFinish(result)
			}
			// The runner lock is held here; persist off the session's path.
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
				defer cancel()
				if err := s.RecordResult(ctx, result); err != nil {
					log.Error("recording result failed", zap.Error(err))
				}
			}()
		},
	}

	metrics.SessionsStarted.WithLabelValues(quizID).Inc()
	return quiz.NewRunner(session, s.opts.TickInterval, wrapped), nil
}

// RecordResult stores a finished session's score, refreshes the cached
// leaderboard, and notifies listeners.
func (s *QuizService) RecordResult(ctx context.Context, result models.Result) error {
	if err := s.db.RecordScore(ctx, result); err != nil {
		return err
	}

	// Invalidate every cached page of this quiz's leaderboard.
	keys, err := s.redis.Keys(ctx, "quiz:"+result.QuizID+":leaderboard:*").Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}

	leaderboard, err := s.loadLeaderboard(ctx, result.QuizID, 1, s.opts.PageSize)
	if err != nil {
		return err
	}

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(result.QuizID, leaderboard)
	}
	return nil
}

func (s *QuizService) OnLeaderboardUpdate(fn func(quizID string, leaderboard *models.PaginatedLeaderboard)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *QuizService) GetLeaderboard(ctx context.Context, quizID string, page, pageSize int) (*models.PaginatedLeaderboard, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = s.opts.PageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	val, err := s.redis.Get(ctx, leaderboardKey(quizID, page, pageSize)).Result()
	if errors.Is(err, redis.Nil) {
		return s.loadLeaderboard(ctx, quizID, page, pageSize)
	} else if err != nil {
		return nil, err
	}
	var result models.PaginatedLeaderboard
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// loadLeaderboard reads a page from PostgreSQL and caches it.
func (s *QuizService) loadLeaderboard(ctx context.Context, quizID string, page, pageSize int) (*models.PaginatedLeaderboard, error) {
	entries, total, err := s.db.GetLeaderboard(ctx, quizID, page, pageSize)
	if err != nil {
		return nil, err
	}
	result := &models.PaginatedLeaderboard{
		Leaderboard: entries,
		TotalCount:  total,
		Page:        page,
		PageSize:    pageSize,
	}
	jsonData, _ := json.Marshal(result)
	if err := s.redis.Set(ctx, leaderboardKey(quizID, page, pageSize), jsonData, 0).Err(); err != nil {
		return nil, err
	}
	return result, nil
}
