package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/gbese/gbese-backend/internal/config"
	"github.com/gbese/gbese-backend/internal/domain"
	"github.com/gbese/gbese-backend/internal/logging"
)

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Exists(ctx context.Context, email, phone string) (bool, error)
	Create(ctx context.Context, tx *sql.Tx, u *domain.User) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	Create(ctx context.Context, tx *sql.Tx, account *domain.Account) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateCreditLimit(ctx context.Context, tx *sql.Tx, acct *domain.Account, newLimit int64) error
	UpdateDailyTransferLimit(ctx context.Context, tx *sql.Tx, acct *domain.Account, newLimit int64) error
}

type notificationLister interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message, link string)
}

type AccountService struct {
	users         userRepo
	accounts      accountRepo
	notifications notificationLister
	notify        notifier
	db            *sql.DB
	config        *config.Config
}

func NewAccountService(
	users userRepo,
	accounts accountRepo,
	notifications notificationLister,
	notify notifier,
	db *sql.DB,
	cfg *config.Config,
) *AccountService {
	return &AccountService{
		users:         users,
		accounts:      accounts,
		notifications: notifications,
		notify:        notify,
		db:            db,
		config:        cfg,
	}
}

type RegisterRequest struct {
	Email       string
	PhoneNumber string
	FirstName   string
	LastName    string
	Password    string
}

// Register creates the user and their single account in one unit. The
// account opens with zero cash, the default credit limit and the default
// daily transfer allowance.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.Account, error) {
	log := logging.FromContext(ctx)

	exists, err := s.users.Exists(ctx, req.Email, req.PhoneNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}
	if exists {
		return nil, nil, fmt.Errorf("Register: %w", domain.ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: hash password: %w", err)
	}

	acctNum, err := generateAccountNumber()
	if err != nil {
		return nil, nil, fmt.Errorf("Register: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
		KYCStatus:    domain.KYCStatusPending,
		CreatedAt:    now,
	}
	account := &domain.Account{
		ID:                 uuid.New(),
		UserID:             user.ID,
		AccountNumber:      acctNum,
		CreditLimit:        s.config.DefaultCreditLimit,
		DailyTransferLimit: s.config.DefaultDailyTransferLimit,
		Version:            1,
		CreatedAt:          now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("Register: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.users.Create(ctx, tx, user); err != nil {
		return nil, nil, fmt.Errorf("Register: create user: %w", err)
	}
	if err := s.accounts.Create(ctx, tx, account); err != nil {
		return nil, nil, fmt.Errorf("Register: create account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("Register: commit: %w", err)
	}

	log.Info("user registered",
		"user_id", user.ID,
		"account_number", account.AccountNumber,
	)

	return user, account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetUser: %w", err)
	}
	return user, nil
}

// RequestLimitIncrease raises the account's credit limit. Only verified
// members may raise it, the new limit must actually be an increase, and it
// is capped system-wide.
func (s *AccountService) RequestLimitIncrease(ctx context.Context, userID uuid.UUID, newLimit int64) (*domain.Account, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", err)
	}
	if user.KYCStatus != domain.KYCStatusVerified {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", domain.ErrKYCRequired)
	}
	if newLimit > s.config.MaxCreditLimit {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", domain.ErrCreditLimitCapped)
	}

	acctSnapshot, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, acctSnapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", err)
	}
	if newLimit <= acct.CreditLimit {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", domain.ErrCreditLimitTooLow)
	}
	if err := s.accounts.UpdateCreditLimit(ctx, tx, acct, newLimit); err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RequestLimitIncrease: commit: %w", err)
	}

	s.notify.Notify(ctx, userID, domain.NotificationKindSystemAlert,
		"Credit limit increased",
		fmt.Sprintf("Your credit limit is now %d.", newLimit),
		"/account",
	)

	return acct, nil
}

// SetDailyTransferLimit adjusts the daily outbound transfer allowance.
// Lowering is always permitted; raising requires a verified member.
func (s *AccountService) SetDailyTransferLimit(ctx context.Context, userID uuid.UUID, newLimit int64) (*domain.Account, error) {
	acctSnapshot, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("SetDailyTransferLimit: %w", err)
	}

	if newLimit > acctSnapshot.DailyTransferLimit {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("SetDailyTransferLimit: %w", err)
		}
		if user.KYCStatus != domain.KYCStatusVerified {
			return nil, fmt.Errorf("SetDailyTransferLimit: %w", domain.ErrKYCRequired)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("SetDailyTransferLimit: begin tx: %w", err)
	}
	defer tx.Rollback()

	acct, err := s.accounts.GetForUpdate(ctx, tx, acctSnapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("SetDailyTransferLimit: %w", err)
	}
	if err := s.accounts.UpdateDailyTransferLimit(ctx, tx, acct, newLimit); err != nil {
		return nil, fmt.Errorf("SetDailyTransferLimit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("SetDailyTransferLimit: commit: %w", err)
	}

	return acct, nil
}

func (s *AccountService) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	notifications, err := s.notifications.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListNotifications: %w", err)
	}
	return notifications, nil
}

func generateAccountNumber() (string, error) {
	digits := make([]byte, 10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generateAccountNumber: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return "GBESE-" + string(digits), nil
}
