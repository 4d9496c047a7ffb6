package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/formbox/formbox/app"
	"github.com/formbox/formbox/httpx"
	"github.com/formbox/formbox/log"
	"github.com/formbox/formbox/model"
	"github.com/formbox/formbox/survey"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func ListAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT a.id, a.response_id, a.question_id, a.text, a.selected_option_id
			FROM answer a
			ORDER BY a.id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_answers", err)
			return
		}
		defer rows.Close()

		answers := []model.Answer{}
		for rows.Next() {
			a := model.Answer{}
			var text sql.NullString
			var selected sql.NullInt64
			err = rows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &text, &selected)
			if err != nil {
				httpx.LogInternalError(w, "db.get_answers.scan", err)
				return
			}
			a.Text = text.String
			if selected.Valid {
				optionId := int(selected.Int64)
				a.SelectedOption = &optionId
			}

			answers = append(answers, a)
		}

		render.JSON(w, r, map[string]any{
			"answers": answers,
		})
	}
}

func GetAnswerById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answerId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		answer, err := loadAnswer(r, app, answerId)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_answer", answerId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_answer", err)
			return
		}

		render.JSON(w, r, answer)
	}
}

func loadAnswer(r *http.Request, app app.App, answerId int) (*model.Answer, error) {
	a := &model.Answer{ID: answerId}
	var text sql.NullString
	var selected sql.NullInt64
	err := app.QueryRowContext(r.Context(), `
		SELECT a.response_id, a.question_id, a.text, a.selected_option_id
		FROM answer a
		WHERE a.id = ?`,
		answerId,
	).Scan(&a.ResponseID, &a.QuestionID, &text, &selected)
	if err != nil {
		return nil, err
	}
	a.Text = text.String
	if selected.Valid {
		optionId := int(selected.Int64)
		a.SelectedOption = &optionId
	}

	rows, err := app.QueryContext(r.Context(), `
		SELECT ao.option_id
		FROM answer_option ao
		WHERE ao.answer_id = ?
		ORDER BY ao.option_id`,
		answerId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var optionId int
		err = rows.Scan(&optionId)
		if err != nil {
			return nil, err
		}
		a.SelectedOptions = append(a.SelectedOptions, optionId)
	}
	return a, rows.Err()
}

// CreateAnswer attaches a single answer to an existing response. The regular
// path is the composite submission; this exists for staff corrections.
func CreateAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answer := model.Answer{}
		err := render.DecodeJSON(r.Body, &answer)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if answer.ResponseID == 0 {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "response must be provided")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var one int
		err = tx.QueryRowContext(r.Context(), `
			SELECT 1 FROM response WHERE id = ?`,
			answer.ResponseID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "db.insert_answer.response", "response not found (%d)", answer.ResponseID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_answer.get_response", err)
			return
		}

		if !validateAnswerPayload(w, r, tx, answer) {
			return
		}

		var text any
		if answer.Text != "" {
			text = answer.Text
		}
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO answer (response_id, question_id, text, selected_option_id)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			answer.ResponseID,
			answer.QuestionID,
			text,
			answer.SelectedOption,
		).Scan(&answer.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_answer", err)
			return
		}

		for _, optionId := range answer.SelectedOptions {
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO answer_option (answer_id, option_id)
				VALUES (?, ?)`,
				answer.ID,
				optionId,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.insert_answer.options", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_answer.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, answer)
	}
}

func UpdateAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answerId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		answer := model.Answer{}
		err = render.DecodeJSON(r.Body, &answer)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		if answer.QuestionID == 0 {
			// keep answering the same question when the payload omits it
			err = tx.QueryRowContext(r.Context(), `
				SELECT question_id FROM answer WHERE id = ?`,
				answerId,
			).Scan(&answer.QuestionID)
			if errors.Is(err, sql.ErrNoRows) {
				httpx.LogNotFound(w, "update_answer", answerId)
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "db.update_answer.get", err)
				return
			}
		}

		if !validateAnswerPayload(w, r, tx, answer) {
			return
		}

		var text any
		if answer.Text != "" {
			text = answer.Text
		}
		res, err := tx.ExecContext(r.Context(), `
			UPDATE answer
			SET
				question_id = ?,
				text = ?,
				selected_option_id = ?
			WHERE id = ?`,
			answer.QuestionID,
			text,
			answer.SelectedOption,
			answerId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_answer", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_answer.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_answer", answerId)
			return
		}

		// replace the multi-select set wholesale
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM answer_option WHERE answer_id = ?`,
			answerId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_answer.clear_options", err)
			return
		}
		for _, optionId := range answer.SelectedOptions {
			_, err = tx.ExecContext(r.Context(), `
				INSERT INTO answer_option (answer_id, option_id)
				VALUES (?, ?)`,
				answerId,
				optionId,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.update_answer.options", err)
				return
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_answer.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answerId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM answer WHERE id = ?`,
			answerId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_answer", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_answer.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_answer", answerId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// validateAnswerPayload runs the question-type shape check against the
// referenced question. Writes the error response and returns false when the
// payload does not hold up.
func validateAnswerPayload(w http.ResponseWriter, r *http.Request, tx *sql.Tx, answer model.Answer) bool {
	var question *model.Question
	if answer.QuestionID != 0 {
		question = &model.Question{ID: answer.QuestionID}
		err := tx.QueryRowContext(r.Context(), `
			SELECT form_id, text, question_type, ord FROM question
			WHERE id = ?`,
			answer.QuestionID,
		).Scan(&question.FormID, &question.Text, &question.Type, &question.Order)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "answer.question", "question not found (%d)", answer.QuestionID)
			return false
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_question", err)
			return false
		}
	}

	if err := survey.ValidateAnswer(question, answer); err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "answer.validate", "%s", err)
		return false
	}
	return true
}
