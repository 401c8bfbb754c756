package database

import (
	"database/sql"
	"fmt"
)

// execRequireRows validates that an ExecContext result affected at least
// one row. Returns notFoundErr when zero rows matched.
func execRequireRows(result sql.Result, err, notFoundErr error, op string) error {
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return fmt.Errorf("failed to %s: %w", op, affectedErr)
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
