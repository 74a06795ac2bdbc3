package models

type Phase string

const (
	PhaseAnswering Phase = "answering"
	PhaseResults   Phase = "results"
)

// OptionState is how an option button is painted.
type OptionState string

const (
	OptionIdle      OptionState = "idle"
	OptionCorrect   OptionState = "correct"
	OptionIncorrect OptionState = "incorrect"
)

type OptionView struct {
	Label string      `json:"label"`
	Text  string      `json:"text"`
	State OptionState `json:"state"`
}

// SessionView is the rendered state of a quiz session as shown to the player.
// Question fields are empty in the results phase; Result is set only there.
type SessionView struct {
	Phase            Phase        `json:"phase"`
	QuestionNumber   int          `json:"question_number,omitempty"`
	TotalQuestions   int          `json:"total_questions"`
	Prompt           string       `json:"prompt,omitempty"`
	Options          []OptionView `json:"options,omitempty"`
	Selected         *int         `json:"selected,omitempty"`
	RemainingSeconds int          `json:"remaining_seconds"`
	Progress         float64      `json:"progress"`
	CanAdvance       bool         `json:"can_advance"`
	AdvanceLabel     string       `json:"advance_label,omitempty"`
	Result           *Result      `json:"result,omitempty"`
}
