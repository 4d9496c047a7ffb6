package survey

import "fmt"

// ValidationError rejects an answer payload whose populated fields do not
// match the referenced question's type. The messages are part of the API
// contract and surface verbatim to the caller.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrQuestionRequired    = ValidationError("Question must be provided.")
	ErrTextRequired        = ValidationError("Text response is required for this question type.")
	ErrOptionRequired      = ValidationError("Selected option is required for this question type.")
	ErrOptionsRequired     = ValidationError("At least one selected option is required for this question type.")
	ErrInvalidQuestionType = ValidationError("Invalid question type.")
)

// ReferenceError signals a payload pointing at a row that does not exist.
type ReferenceError struct {
	Entity string
	ID     int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s not found (%d)", e.Entity, e.ID)
}
