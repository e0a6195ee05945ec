package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound indicates that the session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBlocked indicates that the session has been blocked.
	ErrSessionBlocked = errors.New("session is blocked")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session has expired")
	// ErrSessionMismatch indicates that the refresh token does not belong to the session.
	ErrSessionMismatch = errors.New("refresh token does not match session")
)

// Session holds one refresh token issued at login or registration.
type Session struct {
	ID           uuid.UUID `json:"id"`
	AccountID    int32     `json:"account_id"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateSessionParams is the input data to create a session.
type CreateSessionParams struct {
	ID            uuid.UUID
	AccountID     int32
	AccountNumber string
	RefreshToken  string
	UserAgent     string
	ClientIP      string
	ExpiresAt     time.Time
}
