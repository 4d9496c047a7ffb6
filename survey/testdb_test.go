package survey_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/formbox/formbox/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createForm(t *testing.T, db *sql.DB, title string) (formId int) {
	t.Helper()

	err := db.QueryRow(`
		INSERT INTO form (title) VALUES (?)
		RETURNING id`,
		title,
	).Scan(&formId)
	if err != nil {
		t.Fatalf("insert form: %v", err)
	}
	return
}

func createQuestion(t *testing.T, db *sql.DB, formId int, text, questionType string, ord int) (questionId int) {
	t.Helper()

	err := db.QueryRow(`
		INSERT INTO question (form_id, text, question_type, ord)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		formId, text, questionType, ord,
	).Scan(&questionId)
	if err != nil {
		t.Fatalf("insert question: %v", err)
	}
	return
}

func createOption(t *testing.T, db *sql.DB, questionId int, text string) (optionId int) {
	t.Helper()

	err := db.QueryRow(`
		INSERT INTO option (question_id, text) VALUES (?, ?)
		RETURNING id`,
		questionId, text,
	).Scan(&optionId)
	if err != nil {
		t.Fatalf("insert option: %v", err)
	}
	return
}

func countRows(t *testing.T, db *sql.DB, table string) (n int) {
	t.Helper()

	err := db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return
}
