package quiz

import "timed_quiz/internal/models"

// View renders the session the way the player sees it.
func (s *Session) View() models.SessionView {
	total := len(s.questions)
	if s.finished {
		res := s.Result()
		return models.SessionView{
			Phase:          models.PhaseResults,
			TotalQuestions: total,
			Progress:       100,
			Result:         &res,
		}
	}

	q := s.questions[s.index]
	v := models.SessionView{
		Phase:            models.PhaseAnswering,
		QuestionNumber:   s.index + 1,
		TotalQuestions:   total,
		Prompt:           q.QuestionText,
		Options:          make([]models.OptionView, len(q.Options)),
		RemainingSeconds: s.remaining,
		Progress:         float64(s.index+1) / float64(total) * 100,
		CanAdvance:       s.selected >= 0,
		AdvanceLabel:     "Next",
	}
	if s.index == total-1 {
		v.AdvanceLabel = "Finish"
	}
	for i, text := range q.Options {
		state := models.OptionIdle
		if i == s.selected {
			state = models.OptionIncorrect
			if i == q.CorrectAnswer {
				state = models.OptionCorrect
			}
		}
		v.Options[i] = models.OptionView{
			Label: string(rune('A' + i)),
			Text:  text,
			State: state,
		}
	}
	if s.selected >= 0 {
		sel := s.selected
		v.Selected = &sel
	}
	return v
}
