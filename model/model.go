package model

import "time"

const (
	QuestionText     = "text"
	QuestionDropdown = "dropdown"
	QuestionCheckbox = "checkbox"
)

type Form struct {
	ID          int        `json:"id,omitempty"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}

type Question struct {
	ID      int      `json:"id,omitempty"`
	FormID  int      `json:"form" validate:"required"`
	Text    string   `json:"text" validate:"required,max=500"`
	Type    string   `json:"question_type" validate:"required,oneof=text dropdown checkbox"`
	Order   int      `json:"order"`
	Options []Option `json:"options,omitempty"`
}

type Option struct {
	ID         int    `json:"id,omitempty"`
	QuestionID int    `json:"question" validate:"required"`
	Text       string `json:"text" validate:"required,max=255"`
}

type Response struct {
	ID          int       `json:"id,omitempty"`
	FormID      int       `json:"form"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
	Answers     []Answer  `json:"answers"`
}

// Answer doubles as submission payload and read model: exactly one of
// Text/SelectedOption/SelectedOptions is meaningful, depending on the
// referenced question's type.
type Answer struct {
	ID              int    `json:"id,omitempty"`
	ResponseID      int    `json:"response,omitempty"`
	QuestionID      int    `json:"question"`
	Text            string `json:"text,omitempty"`
	SelectedOption  *int   `json:"selected_option,omitempty"`
	SelectedOptions []int  `json:"selected_options,omitempty"`
}

type AnalyticsReport struct {
	FormID        int                 `json:"form"`
	Title         string              `json:"title"`
	ResponseCount int                 `json:"response_count"`
	Questions     []QuestionAnalytics `json:"questions"`
}

type QuestionAnalytics struct {
	QuestionID int          `json:"question"`
	Text       string       `json:"text"`
	Type       string       `json:"question_type"`
	Counts     []ValueCount `json:"counts,omitempty"`
	TopWords   []ValueCount `json:"top_words,omitempty"`
}

// ValueCount is one tally row: an option's text or a token, with the
// number of answers it appeared in. Reports keep these sorted by
// descending count, so a slice is used instead of a map.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
