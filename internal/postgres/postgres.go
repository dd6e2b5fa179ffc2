package postgres

import (
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewDB opens a PostgreSQL connection pool and wraps it with bun
func NewDB(dsn string, maxOpenConnections int) *bun.DB {
	if maxOpenConnections <= 0 {
		maxOpenConnections = 10
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	sqldb.SetMaxOpenConns(maxOpenConnections)
	sqldb.SetMaxIdleConns(maxOpenConnections / 2)
	sqldb.SetConnMaxLifetime(time.Hour)

	return bun.NewDB(sqldb, pgdialect.New())
}
