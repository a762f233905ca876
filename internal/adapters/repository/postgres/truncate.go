package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Truncate removes every row from the application tables. Used by the seed command and tests.
func Truncate(ctx context.Context, db *sql.DB) error {
	query := `TRUNCATE TABLE tasks, project_members, projects, refresh_tokens, users`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
