package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buzkaaclicker/persona"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultRefreshTTL = 30 * 24 * time.Hour
	DefaultConfirmTTL = 24 * time.Hour
)

// Messages of these errors are shown to the user verbatim.
var (
	ErrInvalidCredentials    = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed     = errors.New("Email not confirmed")
	ErrUserAlreadyRegistered = errors.New("User already registered")
	ErrInvalidGrant          = errors.New("Invalid or expired token")
)

// ConfirmationSender delivers the email confirmation token to the user.
type ConfirmationSender func(ctx context.Context, user persona.User, token string) error

type Service struct {
	Accounts   persona.AccountStore
	Grants     persona.GrantStore
	Activities persona.ActivityStore
	Tokens     *Tokens
	Log        logrus.FieldLogger

	RefreshTTL          time.Duration
	ConfirmTTL          time.Duration
	RequireConfirmation bool
	// bcrypt cost, bcrypt.DefaultCost when zero
	HashCost         int
	SendConfirmation ConfirmationSender

	now func() time.Time
}

type signUpForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f signUpForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.Email),
		validation.Field(&f.Password, validation.Required,
			validation.Length(6, 72).Error("Password should be at least 6 characters")),
	)
}

// SignUp registers a new account. The returned session is nil while the
// email awaits confirmation.
func (s *Service) SignUp(ctx context.Context, email string, password string) (persona.User, *persona.Session, error) {
	form := signUpForm{Email: normalizeEmail(email), Password: password}
	if err := form.Validate(); err != nil {
		return persona.User{}, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.hashCost())
	if err != nil {
		return persona.User{}, nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.clock().UTC()
	account := persona.Account{
		User:         persona.User{Id: persona.UserId(uuid.NewString()), Email: form.Email},
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if !s.RequireConfirmation {
		account.ConfirmedAt = &now
	}
	err = s.Accounts.Create(ctx, account)
	if err != nil {
		if persona.KindOf(err) == persona.KindConflict {
			return s.resendConfirmation(ctx, form.Email)
		}
		return persona.User{}, nil, fmt.Errorf("create account: %w", err)
	}
	s.addLog(ctx, account.Id, persona.Activity{Name: persona.ActivitySignedUp, Data: map[string]interface{}{
		"email": account.Email,
	}})

	if s.RequireConfirmation {
		if err := s.sendConfirmation(ctx, account.User); err != nil {
			return persona.User{}, nil, err
		}
		return account.User, nil, nil
	}

	session, err := s.issueSession(ctx, account.User)
	if err != nil {
		return persona.User{}, nil, err
	}
	return account.User, &session, nil
}

// resendConfirmation answers a sign up for a taken email. An account that
// still awaits confirmation gets a new confirmation token.
func (s *Service) resendConfirmation(ctx context.Context, email string) (persona.User, *persona.Session, error) {
	if !s.RequireConfirmation {
		return persona.User{}, nil, ErrUserAlreadyRegistered
	}
	account, err := s.Accounts.ByEmail(ctx, email)
	if err != nil {
		return persona.User{}, nil, fmt.Errorf("lookup account: %w", err)
	}
	if account.Confirmed() {
		return persona.User{}, nil, ErrUserAlreadyRegistered
	}
	if err := s.sendConfirmation(ctx, account.User); err != nil {
		return persona.User{}, nil, err
	}
	return account.User, nil, nil
}

func (s *Service) sendConfirmation(ctx context.Context, user persona.User) error {
	token, err := s.Grants.Issue(ctx, persona.GrantConfirmEmail, user.Id, s.confirmTTL())
	if err != nil {
		return fmt.Errorf("issue confirmation grant: %w", err)
	}
	if s.SendConfirmation == nil {
		return nil
	}
	if err := s.SendConfirmation(ctx, user, token); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	return nil
}

// Confirm redeems an email confirmation token and signs the user in.
func (s *Service) Confirm(ctx context.Context, token string) (persona.Session, error) {
	userId, err := s.Grants.Redeem(ctx, persona.GrantConfirmEmail, token)
	if err != nil {
		if errors.Is(err, persona.ErrGrantNotFound) {
			return persona.Session{}, ErrInvalidGrant
		}
		return persona.Session{}, fmt.Errorf("redeem confirmation grant: %w", err)
	}
	if err := s.Accounts.Confirm(ctx, userId, s.clock().UTC()); err != nil {
		return persona.Session{}, fmt.Errorf("confirm account: %w", err)
	}
	account, err := s.Accounts.ById(ctx, userId)
	if err != nil {
		return persona.Session{}, fmt.Errorf("lookup account: %w", err)
	}
	s.addLog(ctx, userId, persona.Activity{Name: persona.ActivityEmailConfirmed})
	return s.issueSession(ctx, account.User)
}

func (s *Service) SignIn(ctx context.Context, email string, password string) (persona.Session, error) {
	account, err := s.Accounts.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if persona.KindOf(err) == persona.KindNotFound {
			return persona.Session{}, ErrInvalidCredentials
		}
		return persona.Session{}, fmt.Errorf("lookup account: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return persona.Session{}, ErrInvalidCredentials
	}
	if !account.Confirmed() {
		return persona.Session{}, ErrEmailNotConfirmed
	}
	return s.issueSession(ctx, account.User)
}

// Refresh rotates refreshToken into a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (persona.Session, error) {
	userId, err := s.Grants.Redeem(ctx, persona.GrantRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, persona.ErrGrantNotFound) {
			return persona.Session{}, ErrInvalidGrant
		}
		return persona.Session{}, fmt.Errorf("redeem refresh grant: %w", err)
	}
	account, err := s.Accounts.ById(ctx, userId)
	if err != nil {
		return persona.Session{}, fmt.Errorf("lookup account: %w", err)
	}
	session, err := s.newSession(ctx, account.User)
	if err != nil {
		return persona.Session{}, err
	}
	s.addLog(ctx, userId, persona.Activity{Name: persona.ActivitySessionRefreshed})
	return session, nil
}

func (s *Service) SignOut(ctx context.Context, session persona.Session) error {
	if err := s.Grants.Revoke(ctx, persona.GrantRefresh, session.RefreshToken); err != nil {
		return fmt.Errorf("revoke refresh grant: %w", err)
	}
	s.addLog(ctx, session.UserId, persona.Activity{Name: persona.ActivitySignedOut})
	return nil
}

// Verify resolves the identity carried by an access token.
func (s *Service) Verify(accessToken string) (persona.User, error) {
	claims, err := s.Tokens.Verify(accessToken)
	if err != nil {
		return persona.User{}, err
	}
	return persona.User{Id: persona.UserId(claims.Subject), Email: claims.Email}, nil
}

func (s *Service) issueSession(ctx context.Context, user persona.User) (persona.Session, error) {
	session, err := s.newSession(ctx, user)
	if err != nil {
		return persona.Session{}, err
	}
	s.addLog(ctx, user.Id, persona.Activity{Name: persona.ActivitySessionCreated})
	return session, nil
}

func (s *Service) newSession(ctx context.Context, user persona.User) (persona.Session, error) {
	accessToken, expiresAt, err := s.Tokens.Issue(user)
	if err != nil {
		return persona.Session{}, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.Grants.Issue(ctx, persona.GrantRefresh, user.Id, s.refreshTTL())
	if err != nil {
		return persona.Session{}, fmt.Errorf("issue refresh grant: %w", err)
	}
	return persona.Session{
		UserId:       user.Id,
		Email:        user.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// Activity logging never fails the operation that triggered it.
func (s *Service) addLog(ctx context.Context, userId persona.UserId, activity persona.Activity) {
	if s.Activities == nil {
		return
	}
	if err := s.Activities.AddLog(ctx, userId, activity); err != nil {
		s.log().WithError(err).WithField("activity", activity.Name).Errorln("Could not add activity log.")
	}
}

func (s *Service) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) hashCost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

func (s *Service) refreshTTL() time.Duration {
	if s.RefreshTTL == 0 {
		return DefaultRefreshTTL
	}
	return s.RefreshTTL
}

func (s *Service) confirmTTL() time.Duration {
	if s.ConfirmTTL == 0 {
		return DefaultConfirmTTL
	}
	return s.ConfirmTTL
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LogConfirmation is a ConfirmationSender for deployments without mail
// delivery: it logs the confirmation link.
func LogConfirmation(log logrus.FieldLogger, baseURL string) ConfirmationSender {
	return func(ctx context.Context, user persona.User, token string) error {
		log.WithField("email", user.Email).
			Infof("Confirmation link: %s/auth/confirm?token=%s", strings.TrimRight(baseURL, "/"), token)
		return nil
	}
}
