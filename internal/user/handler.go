package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"accountcore/internal/auth"
	"accountcore/internal/user/entity"
	userrepo "accountcore/internal/user/repo"
)

// Handler exposes the HTTP endpoints for account operations.
type Handler struct {
	svc    *Service
	tokens *auth.TokenService
	logger *zap.SugaredLogger
}

func NewHandler(db *sqlx.DB, tokens *auth.TokenService, logger *zap.SugaredLogger) *Handler {
	svc := NewService(db, nil, nil)
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email and password are required"})
		return
	}
	id, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			h.writeJSON(w, http.StatusConflict, map[string]string{"error": "email already in use"})
			return
		}
		h.logger.Errorw("registration failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "registration failed"})
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token and the account it is bound to.
// The password hash stays out of the JSON via the entity tags.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}
	u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		case errors.Is(err, ErrBlocked):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "account is blocked"})
		default:
			h.logger.Errorw("login failed", "err", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		}
		return
	}
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.logger.Errorw("token issue failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "login failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Errorw("listing users failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing users failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// ModerationRequest is the shared body of block/unblock/delete.
type ModerationRequest struct {
	UserIDs []int64 `json:"userIds"`
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "blocked", h.svc.Block)
}

func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "unblocked", h.svc.Unblock)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, "deleted", h.svc.Remove)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, verb string, op func(ctx context.Context, ids []int64) (int64, error)) {
	var req ModerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if len(req.UserIDs) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no user ids provided"})
		return
	}
	count, err := op(r.Context(), req.UserIDs)
	if err != nil {
		h.logger.Errorw("moderation failed", "op", verb, "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "operation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"message": "users " + verb, "count": count})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
