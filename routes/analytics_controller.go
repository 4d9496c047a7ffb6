package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/formbox/formbox/app"
	"github.com/formbox/formbox/httpx"
	"github.com/formbox/formbox/log"
	"github.com/formbox/formbox/survey"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func GetFormAnalytics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		report, err := survey.ComputeAnalytics(r.Context(), app.DB, formId)

		var refErr *survey.ReferenceError
		switch {
		case errors.As(err, &refErr):
			httpx.LogNotFound(w, "get_form_analytics", formId)
			return
		case err != nil:
			httpx.LogInternalError(w, "db.get_form_analytics", err)
			return
		}

		render.JSON(w, r, report)
	}
}
