package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"accountcore/internal/user/entity"
	userrepo "accountcore/internal/user/repo"
)

// Store is the data-access surface the service depends on; *repo.UserRepo is
// the production implementation.
type Store interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
	UpdateStatus(ctx context.Context, ids []int64, status string) (int64, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
	TouchLastLogin(ctx context.Context, id int64) (time.Time, error)
}

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so a
	// caller cannot probe which addresses are registered.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrBlocked is returned only after the credentials matched.
	ErrBlocked = errors.New("account is blocked")
)

// Service orchestrates registration, login and moderation flows.
type Service struct {
	store  Store
	hasher PasswordHasher
}

func NewService(db *sqlx.DB, store Store, hasher PasswordHasher) *Service {
	if store == nil {
		store = userrepo.NewUserRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{store: store, hasher: hasher}
}

// Register creates an account with the password stored as a bcrypt hash.
// Duplicate emails surface as repo.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, name, email, password string) (int64, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{
		Name:         strings.TrimSpace(name),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Status:       entity.StatusActive,
	}
	return s.store.Create(ctx, u)
}

// Login verifies credentials and stamps last_login on success. The blocked
// check runs after the credential match so a wrong password on a blocked
// account still reads as invalid credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.store.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !u.Active() {
		return nil, ErrBlocked
	}
	// separate statement from the credential check; a concurrent block can
	// land in between, which is acceptable
	t, err := s.store.TouchLastLogin(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.LastLogin = &t
	return u, nil
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]entity.User, error) {
	return s.store.List(ctx)
}

// Block sets the given accounts to blocked and returns the affected count.
func (s *Service) Block(ctx context.Context, ids []int64) (int64, error) {
	return s.store.UpdateStatus(ctx, ids, entity.StatusBlocked)
}

// Unblock sets the given accounts back to active.
func (s *Service) Unblock(ctx context.Context, ids []int64) (int64, error) {
	return s.store.UpdateStatus(ctx, ids, entity.StatusActive)
}

// Remove deletes the given accounts.
func (s *Service) Remove(ctx context.Context, ids []int64) (int64, error) {
	return s.store.Delete(ctx, ids)
}
