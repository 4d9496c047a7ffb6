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
)

func ListOptions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT o.id, o.question_id, o.text
			FROM option o
			ORDER BY o.question_id, o.id`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_options", err)
			return
		}
		defer rows.Close()

		options := []model.Option{}
		for rows.Next() {
			o := model.Option{}
			err = rows.Scan(&o.ID, &o.QuestionID, &o.Text)
			if err != nil {
				httpx.LogInternalError(w, "db.get_options.scan", err)
				return
			}

			options = append(options, o)
		}

		render.JSON(w, r, map[string]any{
			"options": options,
		})
	}
}

func GetOptionById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		option := model.Option{ID: optionId}
		err = app.QueryRowContext(r.Context(), `
			SELECT o.question_id, o.text
			FROM option o
			WHERE o.id = ?`,
			optionId,
		).Scan(&option.QuestionID, &option.Text)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, "get_option", optionId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_option", err)
			return
		}

		render.JSON(w, r, option)
	}
}

func CreateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		option := model.Option{}
		err := render.DecodeJSON(r.Body, &option)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(option); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		var one int
		err = app.QueryRowContext(r.Context(), `
			SELECT 1 FROM question WHERE id = ?`,
			option.QuestionID,
		).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "db.insert_option.question", "question not found (%d)", option.QuestionID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_option.get_question", err)
			return
		}

		err = app.QueryRowContext(r.Context(), `
			INSERT INTO option (question_id, text) VALUES (?, ?)
			RETURNING id`,
			option.QuestionID,
			option.Text,
		).Scan(&option.ID)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_option", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, option)
	}
}

func UpdateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		option := model.Option{}
		err = render.DecodeJSON(r.Body, &option)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err = validate.Struct(option); err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.validate", "%s", err)
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE option
			SET text = ?
			WHERE id = ?`,
			option.Text,
			optionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_option", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_option.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "update_option", optionId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		optionId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		// answers keep their row: selected_option_id goes NULL on delete and
		// the analytics tallies simply stop counting it
		res, err := app.ExecContext(r.Context(), `
			DELETE FROM option WHERE id = ?`,
			optionId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_option", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_option.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_option", optionId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
