package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"accountcore/internal/user/entity"
)

var (
	// ErrNoToken means the request carried no usable bearer credential.
	ErrNoToken = errors.New("missing bearer token")
	// ErrForbidden merges "blocked" and "does not exist" on purpose; the
	// caller is not told which.
	ErrForbidden = errors.New("account blocked or does not exist")
)

// AccountSource is the live account lookup the gate performs on every
// validation; *repo.UserRepo satisfies it.
type AccountSource interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// Gate authenticates bearer tokens against the signing secret and the current
// account state. Nothing is cached between requests: a token that validated a
// second ago re-runs the whole chain, including the store lookup, so blocking
// an account voids its outstanding tokens immediately.
type Gate struct {
	tokens   *TokenService
	accounts AccountSource
	logger   *zap.SugaredLogger
}

func NewGate(tokens *TokenService, accounts AccountSource, logger *zap.SugaredLogger) *Gate {
	return &Gate{tokens: tokens, accounts: accounts, logger: logger}
}

// Authenticate extracts the bearer token, verifies signature and expiry, and
// confirms the bound account still exists and is active.
func (g *Gate) Authenticate(r *http.Request) (*entity.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrNoToken
	}
	raw := strings.TrimSpace(header[len("bearer "):])
	if raw == "" {
		return nil, ErrNoToken
	}
	userID, err := g.tokens.Parse(raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := g.accounts.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !u.Active() {
		return nil, ErrForbidden
	}
	return u, nil
}

type contextKey struct{}

// FromContext returns the authenticated principal placed by RequireUser.
func FromContext(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*entity.User)
	return u, ok
}

// RequireUser wraps a handler so it only runs for requests that pass the full
// validation chain; the principal is available via FromContext.
func (g *Gate) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := g.Authenticate(r)
		if err != nil {
			g.reject(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, u)))
	})
}

// Validate answers GET /auth/validate by running the same chain the
// middleware runs.
func (g *Gate) Validate(w http.ResponseWriter, r *http.Request) {
	if _, err := g.Authenticate(r); err != nil {
		g.reject(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("user is valid"))
}

func (g *Gate) reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoToken):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidToken):
		http.Error(w, "invalid token", http.StatusUnauthorized)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "account is blocked or does not exist", http.StatusForbidden)
	default:
		g.logger.Errorw("token validation failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
