package survey

import (
	"context"
	"database/sql"

	"github.com/formbox/formbox/model"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// CreateResponse persists one response and all its answers as a single
// transaction. Every answer is validated against its question before any row
// is written; validation failures across the payload are aggregated so the
// caller sees all of them at once, and any failure rolls the whole
// submission back.
func CreateResponse(ctx context.Context, db *sql.DB, formID int, answers []model.Answer) (*model.Response, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin_tx")
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM form WHERE id = ?`, formID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ReferenceError{"form", formID}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_form")
	}

	questions := map[int]*model.Question{}
	var verr *multierror.Error
	for i, a := range answers {
		var question *model.Question
		if a.QuestionID != 0 {
			question = questions[a.QuestionID]
			if question == nil {
				question = &model.Question{ID: a.QuestionID}
				err = tx.QueryRowContext(ctx, `
					SELECT form_id, text, question_type, ord FROM question
					WHERE id = ?`,
					a.QuestionID,
				).Scan(&question.FormID, &question.Text, &question.Type, &question.Order)
				if errors.Is(err, sql.ErrNoRows) {
					return nil, &ReferenceError{"question", a.QuestionID}
				}
				if err != nil {
					return nil, errors.Wrap(err, "get_question")
				}
				questions[a.QuestionID] = question
			}
		}

		if err := ValidateAnswer(question, a); err != nil {
			verr = multierror.Append(verr, errors.Wrapf(err, "answers[%d]", i))
		}
	}
	if err := verr.ErrorOrNil(); err != nil {
		return nil, err
	}

	for _, a := range answers {
		if a.SelectedOption != nil && *a.SelectedOption != 0 {
			if err := checkOption(ctx, tx, *a.SelectedOption); err != nil {
				return nil, err
			}
		}
		for _, optionID := range a.SelectedOptions {
			if err := checkOption(ctx, tx, optionID); err != nil {
				return nil, err
			}
		}
	}

	response := &model.Response{FormID: formID}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO response (form_id) VALUES (?)
		RETURNING id, submitted_at`,
		formID,
	).Scan(&response.ID, &response.SubmittedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert_response")
	}

	answerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO answer (response_id, question_id, text, selected_option_id)
		VALUES (?, ?, ?, ?)
		RETURNING id`)
	if err != nil {
		return nil, errors.Wrap(err, "insert_answer.prepare")
	}
	defer answerStmt.Close()

	optionStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO answer_option (answer_id, option_id)
		VALUES (?, ?)`)
	if err != nil {
		return nil, errors.Wrap(err, "insert_answer_option.prepare")
	}
	defer optionStmt.Close()

	for _, a := range answers {
		a.ResponseID = response.ID

		var text any
		if a.Text != "" {
			text = a.Text
		}
		err = answerStmt.QueryRowContext(ctx, response.ID, a.QuestionID, text, a.SelectedOption).Scan(&a.ID)
		if err != nil {
			return nil, errors.Wrap(err, "insert_answer")
		}

		// the m2m rows can only reference the answer once it exists
		for _, optionID := range a.SelectedOptions {
			_, err = optionStmt.ExecContext(ctx, a.ID, optionID)
			if err != nil {
				return nil, errors.Wrap(err, "insert_answer_option")
			}
		}

		response.Answers = append(response.Answers, a)
	}

	err = tx.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return response, nil
}

func checkOption(ctx context.Context, q Querier, optionID int) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM option WHERE id = ?`, optionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &ReferenceError{"option", optionID}
	}
	if err != nil {
		return errors.Wrap(err, "get_option")
	}
	return nil
}
