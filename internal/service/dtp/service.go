package dtp

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

type requestRepo interface {
	Create(ctx context.Context, req *domain.DebtTransferRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtTransferRequest, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.DebtTransferRequest, error)
	MarkTerminal(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.RequestStatus, at time.Time) error
	DeletePending(ctx context.Context, id uuid.UUID) error
	ListIncoming(ctx context.Context, recipientID uuid.UUID) ([]domain.DebtTransferRequest, error)
	ListOutgoing(ctx context.Context, senderID uuid.UUID) ([]domain.DebtTransferRequest, error)
}

type obligationRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.DebtObligation, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.DebtObligation, error)
	UpdateHolder(ctx context.Context, tx *sql.Tx, id, newHolderID uuid.UUID, at time.Time) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	LockPair(ctx context.Context, tx *sql.Tx, first, second uuid.UUID) (*domain.Account, *domain.Account, error)
	Debit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	Credit(ctx context.Context, tx *sql.Tx, acct *domain.Account, amount int64) error
	AdjustDebt(ctx context.Context, tx *sql.Tx, acct *domain.Account, delta int64) error
}

type userRepo interface {
	FindByIdentifier(ctx context.Context, identifier string) (*domain.User, error)
	ListTransferCandidates(ctx context.Context, excludeUserID uuid.UUID, limit int) ([]repository.TransferCandidate, error)
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.Transaction) error
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string)
}

type Service struct {
	requests     requestRepo
	obligations  obligationRepo
	accounts     accountRepo
	users        userRepo
	transactions transactionRepo
	notify       notifier
	db           *sql.DB
	config       *config.Config
}

func NewService(
	requests requestRepo,
	obligations obligationRepo,
	accounts accountRepo,
	users userRepo,
	transactions transactionRepo,
	notify notifier,
	db *sql.DB,
	cfg *config.Config,
) *Service {
	return &Service{
		requests:     requests,
		obligations:  obligations,
		accounts:     accounts,
		users:        users,
		transactions: transactions,
		notify:       notify,
		db:           db,
		config:       cfg,
	}
}

func (s *Service) GetRequest(ctx context.Context, requestID, userID uuid.UUID) (*domain.DebtTransferRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("GetRequest: %w", err)
	}
	if req.SenderID != userID && req.RecipientID != userID {
		return nil, fmt.Errorf("GetRequest: %w", domain.ErrNotFound)
	}
	return req, nil
}

// ListIncoming returns pending requests addressed to the user, with
// expired ones filtered out rather than surfaced as actionable.
func (s *Service) ListIncoming(ctx context.Context, userID uuid.UUID) ([]domain.DebtTransferRequest, error) {
	requests, err := s.requests.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListIncoming: %w", err)
	}

	now := time.Now().UTC()
	live := requests[:0]
	for _, req := range requests {
		if !req.Expired(now) {
			live = append(live, req)
		}
	}
	return live, nil
}

func (s *Service) ListOutgoing(ctx context.Context, userID uuid.UUID) ([]domain.DebtTransferRequest, error) {
	requests, err := s.requests.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListOutgoing: %w", err)
	}
	return requests, nil
}

// FindMatches suggests members able to take on debt: active, verified and
// with borrowing headroom, ranked by reputation.
func (s *Service) FindMatches(ctx context.Context, userID uuid.UUID, limit int) ([]repository.TransferCandidate, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	candidates, err := s.users.ListTransferCandidates(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("FindMatches: %w", err)
	}
	return candidates, nil
}
