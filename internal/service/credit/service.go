package credit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
)

type providerRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditProvider, error)
	ListActive(ctx context.Context) ([]domain.CreditProvider, error)
}

type applicationRepo interface {
	Create(ctx context.Context, a *domain.CreditApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CreditApplication, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CreditApplication, error)
	MarkDisbursed(ctx context.Context, tx *sql.Tx, id uuid.UUID, approvedAmount, monthlyPayment int64, at time.Time) error
}

type obligationRepo interface {
	Create(ctx context.Context, tx *sql.Tx, o *domain.DebtObligation) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	Credit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	AdjustDebt(ctx context.Context, tx *sql.Tx, acct *domain.Account, delta int64) error
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string)
}

type Service struct {
	providers    providerRepo
	applications applicationRepo
	obligations  obligationRepo
	accounts     accountRepo
	transactions transactionRepo
	notify       notifier
	db           *sql.DB
	config       *config.Config
}

func NewService(
	providers providerRepo,
	applications applicationRepo,
	obligations obligationRepo,
	accounts accountRepo,
	transactions transactionRepo,
	notify notifier,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		providers:    providers,
		applications: applications,
		obligations:  obligations,
		accounts:     accounts,
		transactions: transactions,
		notify:       notify,
		db:           db,
		config:       cfg,
	}
}

func (s *Service) ListProviders(ctx context.Context) ([]domain.CreditProvider, error) {
	providers, err := s.providers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListProviders: %w", err)
	}
	return providers, nil
}

func (s *Service) GetProvider(ctx context.Context, providerID uuid.UUID) (*domain.CreditProvider, error) {
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, fmt.Errorf("GetProvider: %w", err)
	}
	return p, nil
}

func (s *Service) GetApplication(ctx context.Context, applicationID, userID uuid.UUID) (*domain.CreditApplication, error) {
	a, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("GetApplication: %w", err)
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("GetApplication: %w", domain.ErrNotFound)
	}
	return a, nil
}
