// Package fixtures holds the built-in question set served when no other quiz
// has been loaded into the database.
package fixtures

import (
	"github.com/lib/pq"

	"timed_quiz/internal/models"
)

const (
	DefaultQuizID    = "general-knowledge"
	DefaultQuizTitle = "General Knowledge"
)

// DefaultQuestions returns a fresh copy of the general knowledge quiz, so
// callers may hand it to a session without sharing backing arrays.
func DefaultQuestions() []models.Question {
	return []models.Question{
		{
			ID:            "gk-1",
			QuizID:        DefaultQuizID,
			QuestionText:  "What is the capital of France?",
			Options:       pq.StringArray{"London", "Berlin", "Paris", "Madrid"},
			CorrectAnswer: 2,
		},
		{
			ID:            "gk-2",
			QuizID:        DefaultQuizID,
			QuestionText:  "Which planet is known as the Red Planet?",
			Options:       pq.StringArray{"Venus", "Mars", "Jupiter", "Saturn"},
			CorrectAnswer: 1,
		},
		{
			ID:            "gk-3",
			QuizID:        DefaultQuizID,
			QuestionText:  "What is the largest mammal in the world?",
			Options:       pq.StringArray{"African Elephant", "Blue Whale", "Giraffe", "Polar Bear"},
			CorrectAnswer: 1,
		},
		{
			ID:            "gk-4",
			QuizID:        DefaultQuizID,
			QuestionText:  "Who painted the Mona Lisa?",
			Options:       pq.StringArray{"Vincent van Gogh", "Pablo Picasso", "Leonardo da Vinci", "Michelangelo"},
			CorrectAnswer: 2,
		},
		{
			ID:            "gk-5",
			QuizID:        DefaultQuizID,
			QuestionText:  "What is the chemical symbol for gold?",
			Options:       pq.StringArray{"Ag", "Fe", "Au", "Cu"},
			CorrectAnswer: 2,
		},
	}
}
