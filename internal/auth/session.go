// Package auth covers the guest account: login, registration, the stored
// session and the password reset flow.
package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qtrestaurant/internal/backend"
	"qtrestaurant/internal/models"
)

// Messages shown when the backend gives no better reason.
const (
	LoginFailed    = "Đăng nhập thất bại"
	RegisterFailed = "Đăng ký thất bại"
)

// ErrNoToken is returned when a login answer carries no token.
var ErrNoToken = errors.New("login returned no token")

// ValidationError is a form field rejected before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Backend is the part of the REST API the session needs.
type Backend interface {
	Login(ctx context.Context, req backend.LoginRequest) (backend.LoginResponse, error)
	Register(ctx context.Context, req backend.RegisterRequest) error
	Me(ctx context.Context) (models.User, error)
}

// Store persists the session between runs.
type Store interface {
	Token() string
	Username() string
	SaveSession(token, username string) error
	Profile() models.User
	SaveProfile(u models.User) error
	ClearSession() error
}

// Session manages the logged-in guest.
type Session struct {
	api   Backend
	store Store
	now   func() time.Time
	log   logrus.FieldLogger
}

// NewSession creates a session backed by api and store.
func NewSession(api Backend, store Store, log logrus.FieldLogger) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		api:   api,
		store: store,
		now:   time.Now,
		log:   log.WithField("component", "auth"),
	}
}

// Login exchanges credentials for a token and stores it with the username.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return invalid("username", "Vui lòng nhập tên đăng nhập")
	}
	if password == "" {
		return invalid("password", "Vui lòng nhập mật khẩu")
	}

	resp, err := s.api.Login(ctx, backend.LoginRequest{Username: username, Password: password})
	if err != nil {
		return errors.Wrap(err, "login")
	}
	if resp.Token == "" {
		return ErrNoToken
	}
	if err := s.store.SaveSession(resp.Token, username); err != nil {
		return errors.Wrap(err, "saving session")
	}
	s.log.WithField("username", username).Info("logged in")
	return nil
}

// RegisterForm is the sign-up form as the guest typed it.
type RegisterForm struct {
	Username        string
	Password        string
	ConfirmPassword string
	FullName        string
	Email           string
	Phone           string
}

var registerPhone = regexp.MustCompile(`^\d{9,11}$`)

// Validate checks the form in the order the fields appear.
func (f RegisterForm) Validate() error {
	switch {
	case len([]rune(strings.TrimSpace(f.Username))) < 3:
		return invalid("username", "Tên đăng nhập phải tối thiểu 3 ký tự")
	case len(f.Password) < 6:
		return invalid("password", "Mật khẩu phải tối thiểu 6 ký tự")
	case f.Password != f.ConfirmPassword:
		return invalid("confirmPassword", "Mật khẩu không khớp")
	case !strings.Contains(f.Email, "@"):
		return invalid("email", "Email không hợp lệ")
	case !registerPhone.MatchString(f.Phone):
		return invalid("phone", "Số điện thoại phải từ 9-11 số")
	}
	return nil
}

// Register validates the form and creates the account. The guest still
// has to log in afterwards.
func (s *Session) Register(ctx context.Context, f RegisterForm) error {
	if err := f.Validate(); err != nil {
		return err
	}
	err := s.api.Register(ctx, backend.RegisterRequest{
		Username: f.Username,
		Password: f.Password,
		FullName: f.FullName,
		Email:    f.Email,
		Phone:    f.Phone,
	})
	return errors.Wrap(err, "register")
}

// Refresh loads the profile from the backend and caches it. Any failure
// ends the stored session.
func (s *Session) Refresh(ctx context.Context) (models.User, error) {
	u, err := s.api.Me(ctx)
	if err != nil {
		if clearErr := s.store.ClearSession(); clearErr != nil {
			s.log.WithError(clearErr).Warn("clearing session")
		}
		return models.User{}, errors.Wrap(err, "loading profile")
	}
	if err := s.store.SaveProfile(u); err != nil {
		s.log.WithError(err).Warn("caching profile")
	}
	return u, nil
}

// Logout forgets the token and the cached profile.
func (s *Session) Logout() error {
	return s.store.ClearSession()
}

// LoggedIn reports whether a usable token is stored.
func (s *Session) LoggedIn() bool {
	token := s.store.Token()
	return token != "" && !TokenExpired(token, s.now())
}

// Username returns the stored username.
func (s *Session) Username() string {
	return s.store.Username()
}

// Profile returns the cached profile.
func (s *Session) Profile() models.User {
	return s.store.Profile()
}

// TokenExpired reads the exp claim without verifying the signature; the
// backend stays the authority. Tokens that are not JWTs never expire here.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), false)
}
