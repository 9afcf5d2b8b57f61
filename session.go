package persona

import (
	"context"
	"errors"
	"time"
)

var ErrGrantNotFound = errors.New("grant not found")

type UserId string

// User is the identity known to the session provider.
type User struct {
	Id          UserId
	Email       string
	ConfirmedAt *time.Time
}

func (u User) Confirmed() bool {
	return u.ConfirmedAt != nil
}

// Session binds an opaque access token to a user identity. It is replaced
// wholesale on every auth state change.
type Session struct {
	UserId       UserId
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type AuthEvent string

const (
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// SignUpResult.User is nil when the provider does not disclose the account.
type SignUpResult struct {
	User *User
}

type SessionChangeFunc = func(event AuthEvent, session *Session)

type SessionProvider interface {
	// Returns nil session when signed out.
	GetCurrentSession(ctx context.Context) (*Session, error)

	// Callback receives nil session on sign out. The returned func releases the subscription.
	OnSessionChange(callback SessionChangeFunc) (unsubscribe func())

	SignIn(ctx context.Context, email string, password string) error

	SignUp(ctx context.Context, email string, password string) (*SignUpResult, error)

	SignOut(ctx context.Context) error
}

// Account is the provider side credential record of a User.
type Account struct {
	User
	PasswordHash string
	CreatedAt    time.Time
}

type AccountStore interface {
	// Fails with KindConflict when the email is taken.
	Create(ctx context.Context, account Account) error

	ByEmail(ctx context.Context, email string) (Account, error)

	ById(ctx context.Context, id UserId) (Account, error)

	Confirm(ctx context.Context, id UserId, at time.Time) error
}

type GrantKind string

const (
	GrantRefresh      GrantKind = "refresh"
	GrantConfirmEmail GrantKind = "confirm"
)

// GrantStore keeps single use tokens (refresh tokens, email confirmations).
type GrantStore interface {
	Issue(ctx context.Context, kind GrantKind, userId UserId, ttl time.Duration) (string, error)

	// Consumes the grant. Fails with ErrGrantNotFound when unknown or expired.
	Redeem(ctx context.Context, kind GrantKind, token string) (UserId, error)

	Revoke(ctx context.Context, kind GrantKind, token string) error
}
