package survey

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AssignOrder returns the caller-supplied order when positive, otherwise one
// past the highest order among the form's questions. Callers must run it on
// the same transaction that inserts the question, so the max-read and the
// write serialize together and two concurrent creates cannot observe the
// same max.
func AssignOrder(ctx context.Context, q Querier, formID, requested int) (int, error) {
	if requested > 0 {
		return requested, nil
	}

	var max int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ord), 0) FROM question
		WHERE form_id = ?`,
		formID,
	).Scan(&max)
	if err != nil {
		return 0, errors.Wrap(err, "assign_order.max")
	}
	return max + 1, nil
}
