package ports

import (
	"context"
	"errors"

	"github.com/samarachi/bank-agent/internal/domain"
)

// ErrAccountNotFound is returned when no account exists for a user ID.
var ErrAccountNotFound = errors.New("account not found")

// Store defines how documents and accounts are persisted.
type Store interface {
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
}
