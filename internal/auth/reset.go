package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Passcode settings for password reset.
const (
	PasscodeDigits   = 6
	PasscodeValidity = 15 * time.Minute
	MinPasswordLen   = 6
)

var (
	ErrNoPasscode       = errors.New("Vui lòng gửi mã xác nhận trước")
	ErrPasscodeExpired  = errors.New("Mã OTP đã hết hạn, vui lòng gửi lại mã khác")
	ErrPasscodeMismatch = errors.New("Mã OTP không chính xác, thử lại xem sao!")
	ErrNotVerified      = errors.New("Vui lòng xác thực mã OTP trước")
)

// Mailer delivers a reset passcode.
type Mailer interface {
	SendPasscode(ctx context.Context, to, passcode string, expires time.Time) error
}

// Reset walks the guest through email, passcode and new password. The
// passcode is only kept as a bcrypt hash.
type Reset struct {
	mailer Mailer
	now    func() time.Time
	cost   int
	log    logrus.FieldLogger

	mu       sync.Mutex
	email    string
	hash     []byte
	expires  time.Time
	verified bool
}

// NewReset creates a reset flow that mails passcodes through m.
func NewReset(m Mailer, log logrus.FieldLogger) *Reset {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reset{
		mailer: m,
		now:    time.Now,
		cost:   bcrypt.DefaultCost,
		log:    log.WithField("component", "password_reset"),
	}
}

// Send generates a fresh passcode and mails it to email. Any earlier
// passcode stops working.
func (r *Reset) Send(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Vui lòng nhập Email")
	}

	code, err := newPasscode()
	if err != nil {
		return errors.Wrap(err, "generating passcode")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), r.cost)
	if err != nil {
		return errors.Wrap(err, "hashing passcode")
	}
	expires := r.now().Add(PasscodeValidity)

	if err := r.mailer.SendPasscode(ctx, email, code, expires); err != nil {
		r.clear()
		return errors.Wrap(err, "sending passcode")
	}

	r.mu.Lock()
	r.email = email
	r.hash = hash
	r.expires = expires
	r.verified = false
	r.mu.Unlock()

	r.log.WithField("email", email).Info("passcode sent")
	return nil
}

// Verify checks code against the last passcode sent.
func (r *Reset) Verify(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return invalid("passcode", "Vui lòng nhập mã OTP để xác nhận!")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hash == nil {
		return ErrNoPasscode
	}
	if r.now().After(r.expires) {
		return ErrPasscodeExpired
	}
	if err := bcrypt.CompareHashAndPassword(r.hash, []byte(code)); err != nil {
		return ErrPasscodeMismatch
	}
	r.verified = true
	return nil
}

// Complete accepts the new password once the passcode is verified. The
// backend has no reset endpoint, so this only validates and ends the flow.
func (r *Reset) Complete(newPassword string) error {
	r.mu.Lock()
	verified := r.verified
	r.mu.Unlock()
	if !verified {
		return ErrNotVerified
	}

	if strings.TrimSpace(newPassword) == "" {
		return invalid("password", "Vui lòng nhập mật khẩu mới")
	}
	if len(newPassword) < MinPasswordLen {
		return invalid("password", "Mật khẩu mới phải tối thiểu 6 ký tự!")
	}

	r.clear()
	return nil
}

// Email returns the address the pending passcode was sent to.
func (r *Reset) Email() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.email
}

func (r *Reset) clear() {
	r.mu.Lock()
	r.email = ""
	r.hash = nil
	r.expires = time.Time{}
	r.verified = false
	r.mu.Unlock()
}

func newPasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
