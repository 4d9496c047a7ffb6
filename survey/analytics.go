package survey

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/formbox/formbox/model"
	"github.com/pkg/errors"
)

const (
	minWordLength = 3
	topWordCount  = 5
)

// ComputeAnalytics builds the per-question report for a form: option tallies
// for dropdown/checkbox questions, most frequent words for text questions.
// Read-only; answers whose selected option was deleted (NULL reference) drop
// out of the tallies naturally.
func ComputeAnalytics(ctx context.Context, db *sql.DB, formID int) (*model.AnalyticsReport, error) {
	report := &model.AnalyticsReport{FormID: formID}
	err := db.QueryRowContext(ctx, `SELECT title FROM form WHERE id = ?`, formID).Scan(&report.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ReferenceError{"form", formID}
	}
	if err != nil {
		return nil, errors.Wrap(err, "get_form")
	}

	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM response
		WHERE form_id = ?`,
		formID,
	).Scan(&report.ResponseCount)
	if err != nil {
		return nil, errors.Wrap(err, "count_responses")
	}

	questions, err := formQuestions(ctx, db, formID)
	if err != nil {
		return nil, err
	}

	for _, q := range questions {
		qa := model.QuestionAnalytics{QuestionID: q.ID, Text: q.Text, Type: q.Type}

		switch q.Type {
		case model.QuestionDropdown:
			qa.Counts, err = optionCounts(ctx, db, `
				SELECT o.text, COUNT(*) AS n
				FROM answer a
				INNER JOIN option o ON (o.id = a.selected_option_id)
				WHERE a.question_id = ?
				GROUP BY o.id, o.text
				ORDER BY n DESC, o.id`,
				q.ID,
			)
		case model.QuestionCheckbox:
			qa.Counts, err = optionCounts(ctx, db, `
				SELECT o.text, COUNT(*) AS n
				FROM answer a
				INNER JOIN answer_option ao ON (ao.answer_id = a.id)
				INNER JOIN option o ON (o.id = ao.option_id)
				WHERE a.question_id = ?
				GROUP BY o.id, o.text
				ORDER BY n DESC, o.id`,
				q.ID,
			)
		case model.QuestionText:
			var texts []string
			texts, err = answerTexts(ctx, db, q.ID)
			if err == nil {
				qa.TopWords = TopWords(texts, minWordLength, topWordCount)
			}
		}
		if err != nil {
			return nil, err
		}

		report.Questions = append(report.Questions, qa)
	}

	return report, nil
}

// TopWords tokenizes the texts by whitespace, lower-cases each token,
// discards tokens shorter than minLength characters and returns the limit
// most frequent ones, descending by count. Ties keep first-appearance order.
func TopWords(texts []string, minLength, limit int) []model.ValueCount {
	counts := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, word := range strings.Fields(text) {
			word = strings.ToLower(word)
			if utf8.RuneCountInString(word) < minLength {
				continue
			}
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	words := make([]model.ValueCount, 0, len(order))
	for _, word := range order {
		words = append(words, model.ValueCount{Value: word, Count: counts[word]})
	}
	sort.SliceStable(words, func(i, j int) bool {
		return words[i].Count > words[j].Count
	})

	if len(words) > limit {
		words = words[:limit]
	}
	return words
}

func formQuestions(ctx context.Context, db *sql.DB, formID int) (questions []model.Question, err error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, text, question_type FROM question
		WHERE form_id = ?
		ORDER BY ord, id`,
		formID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get_questions")
	}
	defer rows.Close()

	for rows.Next() {
		q := model.Question{FormID: formID}
		err = rows.Scan(&q.ID, &q.Text, &q.Type)
		if err != nil {
			return nil, errors.Wrap(err, "get_questions.scan")
		}
		questions = append(questions, q)
	}
	return questions, errors.Wrap(rows.Err(), "get_questions.rows")
}

func optionCounts(ctx context.Context, db *sql.DB, query string, questionID int) (counts []model.ValueCount, err error) {
	rows, err := db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, errors.Wrap(err, "count_options")
	}
	defer rows.Close()

	for rows.Next() {
		c := model.ValueCount{}
		err = rows.Scan(&c.Value, &c.Count)
		if err != nil {
			return nil, errors.Wrap(err, "count_options.scan")
		}
		counts = append(counts, c)
	}
	return counts, errors.Wrap(rows.Err(), "count_options.rows")
}

func answerTexts(ctx context.Context, db *sql.DB, questionID int) (texts []string, err error) {
	rows, err := db.QueryContext(ctx, `
		SELECT a.text FROM answer a
		WHERE a.question_id = ?
			AND a.text IS NOT NULL
			AND a.text <> ''`,
		questionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "get_answer_texts")
	}
	defer rows.Close()

	for rows.Next() {
		var text string
		err = rows.Scan(&text)
		if err != nil {
			return nil, errors.Wrap(err, "get_answer_texts.scan")
		}
		texts = append(texts, text)
	}
	return texts, errors.Wrap(rows.Err(), "get_answer_texts.rows")
}
