// Package sqlite is a Store backed by an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/samarachi/bank-agent/internal/domain"
	"github.com/samarachi/bank-agent/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	type TEXT NOT NULL,
	security_requirement TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS accounts (
	user_id TEXT PRIMARY KEY,
	balance TEXT NOT NULL
);`

// Store persists documents and accounts in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (and creates, if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Seed inserts documents and accounts, replacing rows with matching keys.
func (s *Store) Seed(ctx context.Context, docs []domain.Document, accounts []domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, d := range docs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents (id, content, type, security_requirement) VALUES (?, ?, ?, ?)`,
			d.ID, d.Content, string(d.Type), string(d.SecurityRequirement))
		if err != nil {
			return fmt.Errorf("seeding document %s: %w", d.ID, err)
		}
	}
	for _, a := range accounts {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO accounts (user_id, balance) VALUES (?, ?)`,
			a.UserID, a.Balance.String())
		if err != nil {
			return fmt.Errorf("seeding account %s: %w", a.UserID, err)
		}
	}
	return tx.Commit()
}

// ListDocuments returns the documentation corpus ordered by ID.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, type, security_requirement FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		var docType, req string
		if err := rows.Scan(&d.ID, &d.Content, &docType, &req); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.Type = domain.DocumentType(docType)
		d.SecurityRequirement = domain.SecurityRequirement(req)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetAccount looks up an account by user ID.
func (s *Store) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var balance string
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %s: %w", userID, err)
	}

	bal, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parsing balance for %s: %w", userID, err)
	}
	return &domain.Account{UserID: userID, Balance: bal}, nil
}

// ListAccounts returns all accounts ordered by user ID.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, balance FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var userID, balance string
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		bal, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("parsing balance for %s: %w", userID, err)
		}
		accounts = append(accounts, domain.Account{UserID: userID, Balance: bal})
	}
	return accounts, rows.Err()
}
