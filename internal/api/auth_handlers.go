package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coinpilot/coinpilot/internal/auth"
	"github.com/coinpilot/coinpilot/internal/database"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	users      *database.UserRepository
	authConfig auth.Config
	logger     *slog.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(users *database.UserRepository, authConfig auth.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, authConfig: authConfig, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_error")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, h.logger, http.StatusBadRequest, "a valid email is required", "validation_error")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, h.logger, http.StatusBadRequest, "password must be at least 8 characters", "validation_error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create user", "internal_error")
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		if strings.Contains(err.Error(), "already registered") {
			writeError(w, h.logger, http.StatusConflict, "email already registered", "validation_error")
			return
		}
		h.logger.Error("failed to create user", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create user", "internal_error")
		return
	}

	token, err := auth.GenerateToken(user.ID, h.authConfig.JWTSecret, h.authConfig.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to generate token", "internal_error")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)
	writeJSON(w, h.logger, http.StatusCreated, authResponse{Token: token, UserID: user.ID, Email: user.Email})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body", "validation_error")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, h.logger, http.StatusUnauthorized, "invalid email or password", "validation_error")
			return
		}
		h.logger.Error("failed to look up user", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "login failed", "internal_error")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, h.logger, http.StatusUnauthorized, "invalid email or password", "validation_error")
		return
	}

	token, err := auth.GenerateToken(user.ID, h.authConfig.JWTSecret, h.authConfig.TokenDuration)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "login failed", "internal_error")
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, h.logger, http.StatusOK, authResponse{Token: token, UserID: user.ID, Email: user.Email})
}
