package db

import (
	"context"
	_ "embed"
	"fmt"

	"memebid-service/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Connection represents a database connection
type Connection struct {
	db *sqlx.DB
}

// NewConnection opens and pings the database
func NewConnection(ctx context.Context, config *config.Config) (*Connection, error) {
	db, err := sqlx.Open("postgres", config.Database.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &Connection{db: db}, nil
}

// GetDB returns the underlying sqlx.DB instance
func (client *Connection) GetDB() *sqlx.DB {
	return client.db
}

// Close closes the database connection
func (client *Connection) Close() error {
	return client.db.Close()
}

// Migrate applies the embedded schema; every statement is idempotent
func (client *Connection) Migrate(ctx context.Context) error {
	if _, err := client.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ExecuteTransaction executes a function within a transaction.
// The transaction is rolled back if fn returns an error or panics.
func (client *Connection) ExecuteTransaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := client.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
