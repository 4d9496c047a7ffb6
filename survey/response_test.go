package survey_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/formbox/formbox/model"
	"github.com/formbox/formbox/survey"
)

func TestCreateResponse(t *testing.T) {
	ctx := context.Background()

	t.Run("valid submission persists everything", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")
		textQ := createQuestion(t, db, formId, "Any comments?", "text", 1)
		dropQ := createQuestion(t, db, formId, "Favorite color?", "dropdown", 2)
		checkQ := createQuestion(t, db, formId, "Toppings?", "checkbox", 3)
		red := createOption(t, db, dropQ, "Red")
		createOption(t, db, dropQ, "Blue")
		cheese := createOption(t, db, checkQ, "Cheese")
		olives := createOption(t, db, checkQ, "Olives")

		response, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: textQ, Text: "all good"},
			{QuestionID: dropQ, SelectedOption: &red},
			{QuestionID: checkQ, SelectedOptions: []int{cheese, olives}},
		})
		if err != nil {
			t.Fatalf("CreateResponse: %v", err)
		}
		if response.ID == 0 {
			t.Error("response id not assigned")
		}
		if len(response.Answers) != 3 {
			t.Fatalf("answers = %d, want 3", len(response.Answers))
		}
		for i, a := range response.Answers {
			if a.ID == 0 {
				t.Errorf("answers[%d] id not assigned", i)
			}
			if a.ResponseID != response.ID {
				t.Errorf("answers[%d] response = %d, want %d", i, a.ResponseID, response.ID)
			}
		}

		if n := countRows(t, db, "response"); n != 1 {
			t.Errorf("response rows = %d, want 1", n)
		}
		if n := countRows(t, db, "answer"); n != 3 {
			t.Errorf("answer rows = %d, want 3", n)
		}
		if n := countRows(t, db, "answer_option"); n != 2 {
			t.Errorf("answer_option rows = %d, want 2", n)
		}
	})

	t.Run("one invalid answer rolls back the whole submission", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")
		textQ := createQuestion(t, db, formId, "Any comments?", "text", 1)
		dropQ := createQuestion(t, db, formId, "Favorite color?", "dropdown", 2)
		createOption(t, db, dropQ, "Red")

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: textQ, Text: "valid"},
			{QuestionID: dropQ}, // missing selection
		})
		var valErr survey.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
		if valErr != survey.ErrOptionRequired {
			t.Errorf("err = %q, want %q", valErr, survey.ErrOptionRequired)
		}

		if n := countRows(t, db, "response"); n != 0 {
			t.Errorf("response rows = %d, want 0", n)
		}
		if n := countRows(t, db, "answer"); n != 0 {
			t.Errorf("answer rows = %d, want 0", n)
		}
	})

	t.Run("all invalid answers are reported together", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")
		textQ := createQuestion(t, db, formId, "Any comments?", "text", 1)
		checkQ := createQuestion(t, db, formId, "Toppings?", "checkbox", 2)

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: textQ},
			{QuestionID: checkQ},
		})
		if err == nil {
			t.Fatal("CreateResponse succeeded, want validation errors")
		}
		msg := err.Error()
		if !strings.Contains(msg, string(survey.ErrTextRequired)) {
			t.Errorf("error %q does not mention missing text", msg)
		}
		if !strings.Contains(msg, string(survey.ErrOptionsRequired)) {
			t.Errorf("error %q does not mention missing selections", msg)
		}
	})

	t.Run("missing form is a reference error", func(t *testing.T) {
		db := openTestDB(t)

		_, err := survey.CreateResponse(ctx, db, 42, nil)
		var refErr *survey.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("err = %v, want ReferenceError", err)
		}
		if refErr.Entity != "form" || refErr.ID != 42 {
			t.Errorf("reference = %s/%d, want form/42", refErr.Entity, refErr.ID)
		}
	})

	t.Run("missing question is a reference error", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: 99, Text: "hello"},
		})
		var refErr *survey.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("err = %v, want ReferenceError", err)
		}
		if refErr.Entity != "question" || refErr.ID != 99 {
			t.Errorf("reference = %s/%d, want question/99", refErr.Entity, refErr.ID)
		}
	})

	t.Run("missing option is a reference error and nothing persists", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")
		dropQ := createQuestion(t, db, formId, "Favorite color?", "dropdown", 1)
		missing := 123

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: dropQ, SelectedOption: &missing},
		})
		var refErr *survey.ReferenceError
		if !errors.As(err, &refErr) {
			t.Fatalf("err = %v, want ReferenceError", err)
		}
		if refErr.Entity != "option" || refErr.ID != missing {
			t.Errorf("reference = %s/%d, want option/%d", refErr.Entity, refErr.ID, missing)
		}

		if n := countRows(t, db, "response"); n != 0 {
			t.Errorf("response rows = %d, want 0", n)
		}
	})

	t.Run("answer without question reference", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Feedback")

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{Text: "orphan"},
		})
		var valErr survey.ValidationError
		if !errors.As(err, &valErr) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
		if valErr != survey.ErrQuestionRequired {
			t.Errorf("err = %q, want %q", valErr, survey.ErrQuestionRequired)
		}
	})
}

func TestCascades(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting a form removes its whole tree", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Doomed")
		dropQ := createQuestion(t, db, formId, "Color?", "dropdown", 1)
		red := createOption(t, db, dropQ, "Red")

		_, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: dropQ, SelectedOption: &red},
		})
		if err != nil {
			t.Fatalf("CreateResponse: %v", err)
		}

		_, err = db.Exec(`DELETE FROM form WHERE id = ?`, formId)
		if err != nil {
			t.Fatalf("delete form: %v", err)
		}

		for _, table := range []string{"question", "option", "response", "answer"} {
			if n := countRows(t, db, table); n != 0 {
				t.Errorf("%s rows = %d, want 0", table, n)
			}
		}
	})

	t.Run("deleting an option nulls the reference, keeps the answer", func(t *testing.T) {
		db := openTestDB(t)
		formId := createForm(t, db, "Survivor")
		dropQ := createQuestion(t, db, formId, "Color?", "dropdown", 1)
		red := createOption(t, db, dropQ, "Red")

		response, err := survey.CreateResponse(ctx, db, formId, []model.Answer{
			{QuestionID: dropQ, SelectedOption: &red},
		})
		if err != nil {
			t.Fatalf("CreateResponse: %v", err)
		}

		_, err = db.Exec(`DELETE FROM option WHERE id = ?`, red)
		if err != nil {
			t.Fatalf("delete option: %v", err)
		}

		var selected any
		err = db.QueryRow(`
			SELECT selected_option_id FROM answer
			WHERE response_id = ?`,
			response.ID,
		).Scan(&selected)
		if err != nil {
			t.Fatalf("get answer: %v", err)
		}
		if selected != nil {
			t.Errorf("selected_option_id = %v, want NULL", selected)
		}
	})
}
