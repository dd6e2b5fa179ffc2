package users

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// UserIndexes are the secondary indexes on the users table. Uniqueness on
// username and email comes from the column constraints in UserSchema.
var UserIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_username ON users (username)`,
	`CREATE INDEX IF NOT EXISTS idx_users_created_at ON users (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_users_active ON users (active)`,
}

// CreateTables creates the users table if it does not exist
func CreateTables(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*UserSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// CreateIndexes creates all secondary indexes for the users table
func CreateIndexes(ctx context.Context, db *bun.DB) error {
	for _, indexSQL := range UserIndexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}
	return nil
}
