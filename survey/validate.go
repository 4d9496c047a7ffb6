package survey

import "github.com/formbox/formbox/model"

// ValidateAnswer checks that the answer's populated fields match the
// question's type. It runs before any storage write: an answer that fails
// here is never persisted.
func ValidateAnswer(question *model.Question, answer model.Answer) error {
	if question == nil {
		return ErrQuestionRequired
	}

	switch question.Type {
	case model.QuestionText:
		if answer.Text == "" {
			return ErrTextRequired
		}
	case model.QuestionDropdown:
		if answer.SelectedOption == nil || *answer.SelectedOption == 0 {
			return ErrOptionRequired
		}
	case model.QuestionCheckbox:
		if len(answer.SelectedOptions) == 0 {
			return ErrOptionsRequired
		}
	default:
		return ErrInvalidQuestionType
	}
	return nil
}
