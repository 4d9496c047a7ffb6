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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT f.id, f.title, f.description, f.created_at, f.updated_at
			FROM form f`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f := model.Form{}
			err = rows.Scan(&f.ID, &f.Title, &f.Description, &f.CreatedAt, &f.UpdatedAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_forms.scan", err)
				return
			}

			forms = append(forms, f)
		}

		render.JSON(w, r, map[string]any{
			"forms": forms,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form := model.Form{}
		err = app.QueryRowContext(r.Context(), `
			SELECT f.id, f.title, f.description, f.created_at, f.updated_at
			FROM form f
			WHERE f.id = ?`,
			formId,
		).Scan(&form.ID, &form.Title, &form.Description, &form.CreatedAt, &form.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_form", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_form", err)
			return
		}

		form.Questions, err = formQuestions(r, app, formId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_form.questions", err)
			return
		}

		render.JSON(w, r, form)
	}
}

// formQuestions loads a form's questions in display order, each with its
// options in insertion order.
func formQuestions(r *http.Request, app app.App, formId int) ([]model.Question, error) {
	rows, err := app.QueryContext(r.Context(), `
		SELECT q.id, q.text, q.question_type, q.ord
		FROM question q
		WHERE q.form_id = ?
		ORDER BY q.ord, q.id`,
		formId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	byId := map[int]int{}
	for rows.Next() {
		q := model.Question{FormID: formId}
		err = rows.Scan(&q.ID, &q.Text, &q.Type, &q.Order)
		if err != nil {
			return nil, err
		}

		byId[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	optRows, err := app.QueryContext(r.Context(), `
		SELECT o.id, o.question_id, o.text
		FROM option o
		INNER JOIN question q ON (q.id = o.question_id)
		WHERE q.form_id = ?
		ORDER BY o.id`,
		formId,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		o := model.Option{}
		err = optRows.Scan(&o.ID, &o.QuestionID, &o.Text)
		if err != nil {
			return nil, err
		}

		i := byId[o.QuestionID]
		questions[i].Options = append(questions[i].Options, o)
	}
	return questions, optRows.Err()
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Form{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(form); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		var formId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO form (title, description) VALUES (?, ?)
			RETURNING id`,
			form.Title,
			form.Description,
		).Scan(&formId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": formId,
		})
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form := model.Form{}
		err = render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(form); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE form
			SET
				title = ?,
				description = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			form.Title,
			form.Description,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_form", formId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		// questions, options, responses and answers go away with the form
		// through the FK cascades
		res, err := app.ExecContext(r.Context(), `
			DELETE FROM form WHERE id = ?`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_form", formId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
