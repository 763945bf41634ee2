// Package memory is an in-memory Store, used by default and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/samarachi/bank-agent/internal/domain"
	"github.com/samarachi/bank-agent/internal/ports"
)

// Store holds documents and accounts in memory.
type Store struct {
	mu        sync.RWMutex
	documents []domain.Document
	accounts  map[string]domain.Account
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{accounts: make(map[string]domain.Account)}
}

// NewSeeded creates a store preloaded with the default documentation corpus
// and demo accounts.
func NewSeeded() *Store {
	s := New()
	s.documents = []domain.Document{
		{
			ID:                  "doc_001",
			Content:             "Bank accounts can be checking or savings. Minimum balance requirements apply.",
			Type:                domain.DocTypeAccountInfo,
			SecurityRequirement: domain.SecurityStandard,
		},
		{
			ID:                  "doc_002",
			Content:             "We offer personal, business, and mortgage loans with competitive rates.",
			Type:                domain.DocTypeLoanInfo,
			SecurityRequirement: domain.SecurityStandard,
		},
		{
			ID:                  "doc_003",
			Content:             "Investment options include stocks, bonds, and mutual funds.",
			Type:                domain.DocTypeInvestmentInfo,
			SecurityRequirement: domain.SecurityHigh,
		},
		{
			ID:                  "doc_004",
			Content:             "We use state-of-the-art encryption and multi-factor authentication.",
			Type:                domain.DocTypeSecurityInfo,
			SecurityRequirement: domain.SecurityHigh,
		},
	}
	s.accounts = map[string]domain.Account{
		"samarachi470@gmail.com": {UserID: "samarachi470@gmail.com", Balance: decimal.RequireFromString("5000.75")},
		"test@example.com":       {UserID: "test@example.com", Balance: decimal.RequireFromString("1250.30")},
	}
	return s
}

// AddDocument appends a document to the corpus.
func (s *Store) AddDocument(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, doc)
}

// PutAccount inserts or replaces an account.
func (s *Store) PutAccount(acct domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.UserID] = acct
}

// ListDocuments returns the documentation corpus in insertion order.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, len(s.documents))
	copy(out, s.documents)
	return out, nil
}

// GetAccount looks up an account by user ID.
func (s *Store) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[userID]
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	return &acct, nil
}

// ListAccounts returns all accounts sorted by user ID.
func (s *Store) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
