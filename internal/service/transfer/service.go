package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/repository"
)

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	LockPair(ctx context.Context, tx *sql.Tx, first, second uuid.UUID) (*domain.Account, *domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	Debit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	Credit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	Reserve(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	Release(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	AddDailyUsage(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.TransactionStatus, completedAt *time.Time) error
	ListForUser(ctx context.Context, userID uuid.UUID, f repository.TransactionFilter) ([]domain.Transaction, int, error)
}

type userRepo interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string)
}

type Service struct {
	accounts     accountRepo
	transactions transactionRepo
	users        userRepo
	notify       notifier
	db           *sql.DB
	config       *config.Config
}

func NewService(
	accounts accountRepo,
	transactions transactionRepo,
	users userRepo,
	notify notifier,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		users:        users,
		notify:       notify,
		db:           db,
		config:       cfg,
	}
}

func (s *Service) GetTransactionByReference(ctx context.Context, reference string, userID uuid.UUID) (*domain.Transaction, error) {
	t, err := s.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionByReference: %w", err)
	}

	if !involvesUser(t, userID) {
		return nil, fmt.Errorf("GetTransactionByReference: %w", domain.ErrNotFound)
	}

	return t, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, f repository.TransactionFilter) ([]domain.Transaction, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	txns, total, err := s.transactions.ListForUser(ctx, userID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("ListTransactions: %w", err)
	}
	return txns, total, nil
}

func involvesUser(t *domain.Transaction, userID uuid.UUID) bool {
	if t.SenderID != nil && *t.SenderID == userID {
		return true
	}
	if t.RecipientID != nil && *t.RecipientID == userID {
		return true
	}
	return false
}
