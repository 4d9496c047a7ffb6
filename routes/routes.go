package routes

import (
	"net/http"

	"github.com/formbox/formbox/app"
	"github.com/formbox/formbox/routes/middlewares"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	staff := middlewares.RequireRole(app.TokenSecret, middlewares.RoleStaff)
	admin := middlewares.RequireRole(app.TokenSecret, middlewares.RoleAdmin)

	api := chi.NewRouter()

	// forms: read for everyone, write for staff, analytics for admins
	api.Get(`/forms`, ListForms(app))
	api.Get(`/forms/{id:^\d+$}`, GetFormById(app))
	api.With(admin).Get(`/forms/{id:^\d+$}/analytics`, GetFormAnalytics(app))
	api.With(staff).Post(`/forms`, CreateForm(app))
	api.With(staff).Put(`/forms/{id:^\d+$}`, UpdateForm(app))
	api.With(staff).Delete(`/forms/{id:^\d+$}`, DeleteForm(app))

	// questions
	api.Get(`/questions`, ListQuestions(app))
	api.Get(`/questions/{id:^\d+$}`, GetQuestionById(app))
	api.With(staff).Post(`/questions`, CreateQuestion(app))
	api.With(staff).Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
	api.With(staff).Delete(`/questions/{id:^\d+$}`, DeleteQuestion(app))

	// options
	api.Get(`/options`, ListOptions(app))
	api.Get(`/options/{id:^\d+$}`, GetOptionById(app))
	api.With(staff).Post(`/options`, CreateOption(app))
	api.With(staff).Put(`/options/{id:^\d+$}`, UpdateOption(app))
	api.With(staff).Delete(`/options/{id:^\d+$}`, DeleteOption(app))

	// responses: anonymous submission is a product requirement
	api.Post(`/responses`, SubmitResponse(app))
	api.With(staff).Get(`/responses`, ListResponses(app))
	api.With(staff).Get(`/responses/{id:^\d+$}`, GetResponseById(app))
	api.With(staff).Delete(`/responses/{id:^\d+$}`, DeleteResponse(app))

	// answers
	api.Get(`/answers`, ListAnswers(app))
	api.Get(`/answers/{id:^\d+$}`, GetAnswerById(app))
	api.With(staff).Post(`/answers`, CreateAnswer(app))
	api.With(staff).Put(`/answers/{id:^\d+$}`, UpdateAnswer(app))
	api.With(staff).Delete(`/answers/{id:^\d+$}`, DeleteAnswer(app))

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}
