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

func ListQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT q.id, q.form_id, q.text, q.question_type, q.ord
			FROM question q
			ORDER BY q.form_id, q.ord, q.id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_questions", err)
			return
		}
		defer rows.Close()

		questions := []model.Question{}
		for rows.Next() {
			q := model.Question{}
			err = rows.Scan(&q.ID, &q.FormID, &q.Text, &q.Type, &q.Order)
			if err != nil {
				httpx.LogInternalError(w, "db.get_questions.scan", err)
				return
			}

			questions = append(questions, q)
		}

		render.JSON(w, r, map[string]any{
			"questions": questions,
		})
	}
}

func GetQuestionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		question := model.Question{ID: questionId}
		err = app.QueryRowContext(r.Context(), `
			SELECT q.form_id, q.text, q.question_type, q.ord
			FROM question q
			WHERE q.id = ?`,
			questionId,
		).Scan(&question.FormID, &question.Text, &question.Type, &question.Order)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_question", questionId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_question", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT o.id, o.text
			FROM option o
			WHERE o.question_id = ?
			ORDER BY o.id`,
			questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_question.options", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			o := model.Option{QuestionID: questionId}
			err = rows.Scan(&o.ID, &o.Text)
			if err != nil {
				httpx.LogInternalError(w, "db.get_question.options.scan", err)
				return
			}

			question.Options = append(question.Options, o)
		}

		render.JSON(w, r, question)
	}
}

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		question := model.Question{}
		err := render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(question); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
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
			SELECT 1 FROM form WHERE id = ?`,
			question.FormID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "db.insert_question.form", "form not found (%d)", question.FormID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question.get_form", err)
			return
		}

		// auto-assignment happens on the insert transaction so concurrent
		// creates cannot read the same max
		question.Order, err = survey.AssignOrder(r.Context(), tx, question.FormID, question.Order)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question.assign_order", err)
			return
		}

		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO question (form_id, text, question_type, ord)
			VALUES (?, ?, ?, ?)
			RETURNING id`,
			question.FormID,
			question.Text,
			question.Type,
			question.Order,
		).Scan(&question.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_question.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, question)
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		question := model.Question{}
		err = render.DecodeJSON(r.Body, &question)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(question); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE question
			SET
				text = ?,
				question_type = ?,
				ord = CASE WHEN ? > 0 THEN ? ELSE ord END
			WHERE id = ?`,
			question.Text,
			question.Type,
			question.Order,
			question.Order,
			questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_question", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_question.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_question", questionId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM question WHERE id = ?`,
			questionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_question", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_question.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_question", questionId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
