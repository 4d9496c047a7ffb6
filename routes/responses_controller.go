package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/formbox/formbox/app"
	"github.com/formbox/formbox/httpx"
	"github.com/formbox/formbox/log"
	"github.com/formbox/formbox/model"
	"github.com/formbox/formbox/survey"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SubmitResponse is the anonymous submission endpoint: one response plus its
// answers, all-or-nothing.
func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := model.Response{}
		err := render.DecodeJSON(r.Body, &payload)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		response, err := survey.CreateResponse(r.Context(), app.DB, payload.FormID, payload.Answers)

		var refErr *survey.ReferenceError
		var valErr survey.ValidationError
		switch {
		case errors.As(err, &refErr):
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit_response.reference", "%s", refErr)
			return
		case errors.As(err, &valErr):
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit_response.validate", "%s", err)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, response)
	}
}

func ListResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := `
			SELECT r.id, r.form_id, r.submitted_at
			FROM response r`
		args := []any{}
		if form := r.URL.Query().Get("form"); form != "" {
			formId, err := strconv.Atoi(form)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.form")
				return
			}
			query += ` WHERE r.form_id = ?`
			args = append(args, formId)
		}

		rows, err := app.QueryContext(r.Context(), query, args...)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.Response{}
		ids := []int{}
		for rows.Next() {
			resp := model.Response{Answers: []model.Answer{}}
			err = rows.Scan(&resp.ID, &resp.FormID, &resp.SubmittedAt)
			if err != nil {
				httpx.LogInternalError(w, "db.get_responses.scan", err)
				return
			}

			ids = append(ids, resp.ID)
			responses = append(responses, resp)
		}

		answers, err := responseAnswers(r, app, ids)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses.answers", err)
			return
		}
		for i := range responses {
			if a := answers[responses[i].ID]; a != nil {
				responses[i].Answers = a
			}
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

func GetResponseById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		response := model.Response{ID: responseId, Answers: []model.Answer{}}
		err = app.QueryRowContext(r.Context(), `
			SELECT r.form_id, r.submitted_at
			FROM response r
			WHERE r.id = ?`,
			responseId,
		).Scan(&response.FormID, &response.SubmittedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_response", responseId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_response", err)
			return
		}

		answers, err := responseAnswers(r, app, []int{responseId})
		if err != nil {
			httpx.LogInternalError(w, "db.get_response.answers", err)
			return
		}
		if a := answers[responseId]; a != nil {
			response.Answers = a
		}

		render.JSON(w, r, response)
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(), `
			DELETE FROM response WHERE id = ?`,
			responseId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_response", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_response.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_response", responseId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// responseAnswers loads the answers of the given responses, keyed by
// response id, with multi-select option sets attached.
func responseAnswers(r *http.Request, app app.App, responseIds []int) (map[int][]model.Answer, error) {
	answers := map[int][]model.Answer{}
	if len(responseIds) == 0 {
		return answers, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(responseIds)), ",")
	args := make([]any, len(responseIds))
	for i, id := range responseIds {
		args[i] = id
	}

	rows, err := app.QueryContext(r.Context(), `
		SELECT a.id, a.response_id, a.question_id, a.text, a.selected_option_id
		FROM answer a
		WHERE a.response_id IN (`+placeholders+`)
		ORDER BY a.id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loaded := []*model.Answer{}
	byId := map[int]*model.Answer{}
	answerIds := []int{}
	for rows.Next() {
		a := &model.Answer{}
		var text sql.NullString
		var selected sql.NullInt64
		err = rows.Scan(&a.ID, &a.ResponseID, &a.QuestionID, &text, &selected)
		if err != nil {
			return nil, err
		}
		a.Text = text.String
		if selected.Valid {
			optionId := int(selected.Int64)
			a.SelectedOption = &optionId
		}

		loaded = append(loaded, a)
		byId[a.ID] = a
		answerIds = append(answerIds, a.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(answerIds) == 0 {
		return answers, nil
	}

	placeholders = strings.TrimSuffix(strings.Repeat("?,", len(answerIds)), ",")
	args = make([]any, len(answerIds))
	for i, id := range answerIds {
		args[i] = id
	}

	optRows, err := app.QueryContext(r.Context(), `
		SELECT ao.answer_id, ao.option_id
		FROM answer_option ao
		WHERE ao.answer_id IN (`+placeholders+`)
		ORDER BY ao.option_id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var answerId, optionId int
		err = optRows.Scan(&answerId, &optionId)
		if err != nil {
			return nil, err
		}

		a := byId[answerId]
		a.SelectedOptions = append(a.SelectedOptions, optionId)
	}
	if err = optRows.Err(); err != nil {
		return nil, err
	}

	for _, a := range loaded {
		answers[a.ResponseID] = append(answers[a.ResponseID], *a)
	}
	return answers, nil
}
