// Package auth is the identity gateway: it owns credential validation and
// hashing and yields the internal account id the ledger engine consumes.
// Raw credentials never reach the engine.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/model"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

var (
	// ErrInvalidUsername means the username fails the format rule.
	ErrInvalidUsername = errors.New("username must be 3-20 letters, digits or underscores")
	// ErrWeakPassword means the password fails the policy.
	ErrWeakPassword = errors.New("password must be 8-30 characters and include a letter, a number, and a special character")
	// ErrInvalidCredentials means username/password did not match an account.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

var (
	usernameRe = regexp.MustCompile(`^\w{3,20}$`)
	lowerRe    = regexp.MustCompile(`[a-z]`)
	digitRe    = regexp.MustCompile(`[0-9]`)
	specialRe  = regexp.MustCompile(`[!@#$%^&*()_+{}:;,.<>?]`)
)

// ValidUsername reports whether the username matches the format rule.
func ValidUsername(username string) bool {
	return usernameRe.MatchString(username)
}

// ValidPassword applies the case-insensitive-tolerant policy: length 8-30
// with at least one lowercase letter, one digit and one special character.
func ValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 30 &&
		lowerRe.MatchString(password) &&
		digitRe.MatchString(password) &&
		specialRe.MatchString(password)
}

// Service authenticates callers against the account store.
type Service struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

func NewService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, log: logger}
}

// SignUp validates the profile, hashes the password and creates the account
// with its opening deposit.
func (s *Service) SignUp(ctx context.Context, fullName, username, password string, opening decimal.Decimal) (*model.Account, error) {
	fullName = strings.TrimSpace(fullName)
	username = strings.TrimSpace(username)
	if fullName == "" || !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if !ValidPassword(password) {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	acct, err := s.repo.CreateAccount(ctx, fullName, username, string(hash), opening)
	if err != nil {
		return nil, err
	}
	s.log.Infow("account created", "username", username, "account_number", acct.AccountNumber)
	return acct, nil
}

// Login resolves a username/password pair to an account. Both a missing
// account and a wrong password surface the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*model.Account, error) {
	acct, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}
