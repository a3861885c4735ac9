package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rekew/web-dev-project/internal/auth"
	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/pkg/log"
	"github.com/rekew/web-dev-project/pkg/response"
)

// AuthHandler serves registration, login and token refresh.
type AuthHandler struct {
	store  repository.Store
	tokens *auth.Manager
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(store repository.Store, tokens *auth.Manager) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens}
}

// Register creates a new account and returns a token pair.
func (h *AuthHandler) Register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.InternalError(c, "Failed to process password")
		return
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}

	if err := h.store.CreateUser(c.Request.Context(), user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			response.Conflict(c, "Email already registered")
		case errors.Is(err, repository.ErrUsernameExists):
			response.Conflict(c, "Username already taken")
		default:
			log.Ctx(c.Request.Context()).Error().Err(err).Msg("create user failed")
			response.InternalError(c, "Failed to create user")
		}
		return
	}

	access, refresh, err := h.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		response.InternalError(c, "Failed to issue tokens")
		return
	}

	log.Ctx(c.Request.Context()).Info().
		Str(log.FieldUserID, user.ID).
		Str(log.FieldUsername, user.Username).
		Msg("user registered")

	response.Created(c, domain.AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Login checks credentials and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Unauthorized(c, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		response.Unauthorized(c, "Invalid credentials")
		return
	}

	access, refresh, err := h.tokens.GenerateTokenPair(user.ID)
	if err != nil {
		response.InternalError(c, "Failed to issue tokens")
		return
	}

	log.Ctx(c.Request.Context()).Info().
		Str(log.FieldUserID, user.ID).
		Msg("user logged in")

	response.Success(c, domain.AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req domain.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	userID, access, refresh, err := h.tokens.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "Invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "Invalid refresh token")
		return
	}

	response.Success(c, domain.AuthResponse{
		UserID:       user.ID,
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}
