package screen

import (
	"context"
	"sync"

	"github.com/buzkaaclicker/persona"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/sirupsen/logrus"
)

const (
	MsgCheckEmail       = "Check your email for the confirmation link!"
	MsgSignUpSuccessful = "Sign up successful! Please check your email for verification."
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate mirrors the form's required attributes.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

type AuthState struct {
	Email   string
	Message string
	Loading bool
}

// AuthScreen never changes the session itself; a successful sign in is
// observed by the Controller through the provider's change notifications.
type AuthScreen struct {
	provider persona.SessionProvider
	log      logrus.FieldLogger

	mutex   sync.Mutex
	email   string
	message string
	loading bool
}

func NewAuthScreen(provider persona.SessionProvider, log logrus.FieldLogger) *AuthScreen {
	return &AuthScreen{provider: provider, log: log}
}

func (s *AuthScreen) State() AuthState {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return AuthState{Email: s.email, Message: s.message, Loading: s.loading}
}

func (s *AuthScreen) SignIn(ctx context.Context, email string, password string) error {
	credentials := Credentials{Email: email, Password: password}
	if err := s.begin(credentials); err != nil {
		return err
	}
	if err := credentials.Validate(); err != nil {
		s.finish(err.Error())
		return nil
	}

	if err := s.provider.SignIn(ctx, email, password); err != nil {
		s.log.WithError(err).Debugln("Sign in failed.")
		s.finish(err.Error())
		return nil
	}
	s.finish("")
	return nil
}

func (s *AuthScreen) SignUp(ctx context.Context, email string, password string) error {
	credentials := Credentials{Email: email, Password: password}
	if err := s.begin(credentials); err != nil {
		return err
	}
	if err := credentials.Validate(); err != nil {
		s.finish(err.Error())
		return nil
	}

	result, err := s.provider.SignUp(ctx, email, password)
	switch {
	case err != nil:
		s.log.WithError(err).Debugln("Sign up failed.")
		s.finish(err.Error())
	case result != nil && result.User != nil:
		s.finish(MsgCheckEmail)
	default:
		s.finish(MsgSignUpSuccessful)
	}
	return nil
}

func (s *AuthScreen) begin(credentials Credentials) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.loading {
		return ErrBusy
	}
	s.email = credentials.Email
	s.message = ""
	s.loading = true
	return nil
}

func (s *AuthScreen) finish(message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.message = message
	s.loading = false
}
