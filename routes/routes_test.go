package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/formbox/formbox/app"
	"github.com/formbox/formbox/config"
	"github.com/formbox/formbox/database"
	"github.com/formbox/formbox/httpx"
	"github.com/formbox/formbox/routes"
	"golang.org/x/crypto/bcrypt"
)

func newTestApp(t *testing.T) app.App {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		TokenSecret: "test-secret",
		TokenTTL:    time.Minute,
	}
	return app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}
}

func newTestServer(t *testing.T, app app.App) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(routes.Wire(app))
	t.Cleanup(srv.Close)
	return srv
}

func createUser(t *testing.T, app app.App, username, password, roles string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = app.Exec(
		`INSERT INTO user (username, password_hash, roles) VALUES (?, ?, ?)`,
		username, string(hash), roles,
	)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func login(t *testing.T, srv *httptest.Server, username, password string) (token string) {
	t.Helper()

	req, err := http.NewRequest("POST", srv.URL+"/api/login", nil)
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	req.SetBasicAuth(username, password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("login decode: %v", err)
	}
	return payload.AccessToken
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if token != "" {
		req.Header.Set("authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAnonymousAccess(t *testing.T) {
	app := newTestApp(t)
	srv := newTestServer(t, app)

	t.Run("forms are readable", func(t *testing.T) {
		resp := doJSON(t, "GET", srv.URL+"/api/forms", "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})

	t.Run("writes are rejected", func(t *testing.T) {
		for _, route := range []struct{ method, path string }{
			{"POST", "/api/forms"},
			{"PUT", "/api/forms/1"},
			{"DELETE", "/api/forms/1"},
			{"POST", "/api/questions"},
			{"POST", "/api/options"},
			{"DELETE", "/api/responses/1"},
			{"PUT", "/api/answers/1"},
			{"GET", "/api/forms/1/analytics"},
		} {
			resp := doJSON(t, route.method, srv.URL+route.path, "", map[string]any{})
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("%s %s status = %d, want 401", route.method, route.path, resp.StatusCode)
			}
		}
	})
}

func TestStaffWithoutAdminRole(t *testing.T) {
	app := newTestApp(t)
	srv := newTestServer(t, app)
	createUser(t, app, "editor", "pass", "staff")
	token := login(t, srv, "editor", "pass")

	resp := doJSON(t, "POST", srv.URL+"/api/forms", token, map[string]any{"title": "Allowed"})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create form status = %d, want 201", resp.StatusCode)
	}

	resp = doJSON(t, "GET", srv.URL+"/api/forms/1/analytics", token, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("analytics status = %d, want 403", resp.StatusCode)
	}
}

func TestFormLifecycle(t *testing.T) {
	app := newTestApp(t)
	srv := newTestServer(t, app)
	createUser(t, app, "admin", "pass", "staff,admin")
	token := login(t, srv, "admin", "pass")

	// create a form with two questions
	resp := doJSON(t, "POST", srv.URL+"/api/forms", token, map[string]any{
		"title":       "Customer survey",
		"description": "Tell us things",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create form status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		ID int `json:"id"`
	}
	decodeBody(t, resp, &created)

	var colorQ, commentQ struct {
		ID    int `json:"id"`
		Order int `json:"order"`
	}
	resp = doJSON(t, "POST", srv.URL+"/api/questions", token, map[string]any{
		"form": created.ID, "text": "Favorite color?", "question_type": "dropdown",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create question status = %d, want 201", resp.StatusCode)
	}
	decodeBody(t, resp, &colorQ)
	if colorQ.Order != 1 {
		t.Errorf("first question order = %d, want 1", colorQ.Order)
	}

	resp = doJSON(t, "POST", srv.URL+"/api/questions", token, map[string]any{
		"form": created.ID, "text": "Comments?", "question_type": "text",
	})
	decodeBody(t, resp, &commentQ)
	if commentQ.Order != 2 {
		t.Errorf("second question order = %d, want 2", commentQ.Order)
	}

	var red, blue struct {
		ID int `json:"id"`
	}
	resp = doJSON(t, "POST", srv.URL+"/api/options", token, map[string]any{
		"question": colorQ.ID, "text": "Red",
	})
	decodeBody(t, resp, &red)
	resp = doJSON(t, "POST", srv.URL+"/api/options", token, map[string]any{
		"question": colorQ.ID, "text": "Blue",
	})
	decodeBody(t, resp, &blue)

	t.Run("form read nests questions and options", func(t *testing.T) {
		resp := doJSON(t, "GET", fmt.Sprintf("%s/api/forms/%d", srv.URL, created.ID), "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get form status = %d, want 200", resp.StatusCode)
		}
		var form struct {
			Title     string `json:"title"`
			Questions []struct {
				ID      int `json:"id"`
				Options []struct {
					Text string `json:"text"`
				} `json:"options"`
			} `json:"questions"`
		}
		decodeBody(t, resp, &form)
		if len(form.Questions) != 2 {
			t.Fatalf("questions = %d, want 2", len(form.Questions))
		}
		if form.Questions[0].ID != colorQ.ID {
			t.Errorf("questions[0] = %d, want %d (display order)", form.Questions[0].ID, colorQ.ID)
		}
		if len(form.Questions[0].Options) != 2 {
			t.Errorf("options = %d, want 2", len(form.Questions[0].Options))
		}
	})

	t.Run("validation rejects bad create payloads", func(t *testing.T) {
		resp := doJSON(t, "POST", srv.URL+"/api/forms", token, map[string]any{"description": "no title"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("untitled form status = %d, want 400", resp.StatusCode)
		}

		resp = doJSON(t, "POST", srv.URL+"/api/questions", token, map[string]any{
			"form": created.ID, "text": "Bad", "question_type": "rating",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("bad question type status = %d, want 400", resp.StatusCode)
		}

		resp = doJSON(t, "POST", srv.URL+"/api/questions", token, map[string]any{
			"form": 9999, "text": "Orphan", "question_type": "text",
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("orphan question status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("anonymous submission and analytics", func(t *testing.T) {
		submit := func(color int, comment string) *http.Response {
			answers := []map[string]any{
				{"question": colorQ.ID, "selected_option": color},
			}
			if comment != "" {
				answers = append(answers, map[string]any{"question": commentQ.ID, "text": comment})
			}
			return doJSON(t, "POST", srv.URL+"/api/responses", "", map[string]any{
				"form":    created.ID,
				"answers": answers,
			})
		}

		if resp := submit(red.ID, "The Cat Sat"); resp.StatusCode != http.StatusCreated {
			t.Fatalf("submit status = %d, want 201", resp.StatusCode)
		}
		if resp := submit(red.ID, "the dog sat"); resp.StatusCode != http.StatusCreated {
			t.Fatalf("submit status = %d, want 201", resp.StatusCode)
		}
		if resp := submit(blue.ID, ""); resp.StatusCode != http.StatusCreated {
			t.Fatalf("submit status = %d, want 201", resp.StatusCode)
		}

		t.Run("invalid answer rejects the whole submission", func(t *testing.T) {
			resp := doJSON(t, "POST", srv.URL+"/api/responses", "", map[string]any{
				"form": created.ID,
				"answers": []map[string]any{
					{"question": commentQ.ID, "text": "fine"},
					{"question": colorQ.ID}, // no selection
				},
			})
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("invalid submit status = %d, want 400", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), "Selected option is required") {
				t.Errorf("body %q does not carry the validation message", body)
			}

			var n int
			err := app.QueryRow(`SELECT COUNT(*) FROM response`).Scan(&n)
			if err != nil {
				t.Fatalf("count responses: %v", err)
			}
			if n != 3 {
				t.Errorf("responses = %d, want 3 (failed submission must not persist)", n)
			}
		})

		resp := doJSON(t, "GET", fmt.Sprintf("%s/api/forms/%d/analytics", srv.URL, created.ID), token, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("analytics status = %d, want 200", resp.StatusCode)
		}
		var report struct {
			ResponseCount int `json:"response_count"`
			Questions     []struct {
				Type   string `json:"question_type"`
				Counts []struct {
					Value string `json:"value"`
					Count int    `json:"count"`
				} `json:"counts"`
				TopWords []struct {
					Value string `json:"value"`
					Count int    `json:"count"`
				} `json:"top_words"`
			} `json:"questions"`
		}
		decodeBody(t, resp, &report)
		if report.ResponseCount != 3 {
			t.Errorf("response count = %d, want 3", report.ResponseCount)
		}
		if len(report.Questions) != 2 {
			t.Fatalf("questions = %d, want 2", len(report.Questions))
		}
		counts := report.Questions[0].Counts
		if len(counts) != 2 || counts[0].Value != "Red" || counts[0].Count != 2 || counts[1].Value != "Blue" || counts[1].Count != 1 {
			t.Errorf("dropdown counts = %v, want Red:2 then Blue:1", counts)
		}
		if len(report.Questions[1].TopWords) == 0 {
			t.Error("text question has no top words")
		}
	})

	t.Run("delete form cascades", func(t *testing.T) {
		resp := doJSON(t, "DELETE", fmt.Sprintf("%s/api/forms/%d", srv.URL, created.ID), token, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete form status = %d, want 204", resp.StatusCode)
		}

		for _, table := range []string{"question", "option", "response", "answer"} {
			var n int
			err := app.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
			if err != nil {
				t.Fatalf("count %s: %v", table, err)
			}
			if n != 0 {
				t.Errorf("%s rows = %d, want 0 after form delete", table, n)
			}
		}
	})
}
