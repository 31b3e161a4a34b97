package debt

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/domain"
)

type obligationRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtObligation, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.DebtObligation, error)
	ApplyRepayment(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance int64, status domain.ObligationStatus, paidOffAt *time.Time) error
	ListForBorrower(ctx context.Context, borrowerID uuid.UUID, status *domain.ObligationStatus) ([]domain.DebtObligation, error)
	ListForHolder(ctx context.Context, holderID uuid.UUID) ([]domain.DebtObligation, error)
	CreateSchedule(ctx context.Context, s *domain.PaymentSchedule) error
	ListSchedules(ctx context.Context, debtID uuid.UUID) ([]domain.PaymentSchedule, error)
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	Debit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	AdjustDebt(ctx context.Context, tx *sql.Tx, acct *domain.Account, delta int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
	ListByObligation(ctx context.Context, obligationID uuid.UUID) ([]domain.Transaction, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string)
}

type Service struct {
	obligations  obligationRepo
	accounts     accountRepo
	transactions transactionRepo
	notify       notifier
	db           *sql.DB
}

func NewService(
	obligations obligationRepo,
	accounts accountRepo,
	transactions transactionRepo,
	notify notifier,
	db *sql.DB,
) *Service {
	return &Service{
		obligations:  obligations,
		accounts:     accounts,
		transactions: transactions,
		notify:       notify,
		db:           db,
	}
}

// GetObligation returns an obligation the user participates in, either as
// the original borrower or the current holder.
func (s *Service) GetObligation(ctx context.Context, obligationID, userID uuid.UUID) (*domain.DebtObligation, error) {
	o, err := s.obligations.GetByID(ctx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("GetObligation: %w", err)
	}
	if o.CurrentHolderID != userID && o.OriginalBorrowerID != userID {
		return nil, fmt.Errorf("GetObligation: %w", domain.ErrNotFound)
	}
	return o, nil
}

func (s *Service) ListBorrowed(ctx context.Context, userID uuid.UUID, status *domain.ObligationStatus) ([]domain.DebtObligation, error) {
	obligations, err := s.obligations.ListForBorrower(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("ListBorrowed: %w", err)
	}
	return obligations, nil
}

func (s *Service) ListHeld(ctx context.Context, userID uuid.UUID) ([]domain.DebtObligation, error) {
	obligations, err := s.obligations.ListForHolder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListHeld: %w", err)
	}
	return obligations, nil
}

func (s *Service) ListPayments(ctx context.Context, obligationID, userID uuid.UUID) ([]domain.Transaction, error) {
	if _, err := s.GetObligation(ctx, obligationID, userID); err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	txns, err := s.transactions.ListByObligation(ctx, obligationID)
	if err != nil {
		return nil, fmt.Errorf("ListPayments: %w", err)
	}
	return txns, nil
}
