package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusLocked    UserStatus = "locked"
)

type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusVerified KYCStatus = "verified"
	KYCStatusRejected KYCStatus = "rejected"
)

type User struct {
	ID              uuid.UUID
	Email           string
	PhoneNumber     string
	FirstName       string
	LastName        string
	PasswordHash    string
	Status          UserStatus
	KYCStatus       KYCStatus
	ReputationScore int64
	CreatedAt       time.Time
	LastLoginAt     *time.Time
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
