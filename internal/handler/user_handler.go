package handler

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/pkg/log"
	"github.com/rekew/web-dev-project/pkg/response"
	"github.com/rekew/web-dev-project/pkg/storage"
)

const (
	maxAvatarSize   = 5 << 20 // 5 MiB
	avatarURLExpiry = 15 * time.Minute
	searchLimit     = 20
)

// UserHandler serves profile and user search routes.
type UserHandler struct {
	store   repository.Store
	storage storage.Storage
}

// NewUserHandler creates a user handler.
func NewUserHandler(store repository.Store, st storage.Storage) *UserHandler {
	return &UserHandler{store: store, storage: st}
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c *gin.Context) {
	user := currentUser(c)
	response.Success(c, user)
}

// GetUser returns a user's public profile by ID.
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.InternalError(c, "Failed to load user")
		return
	}
	response.Success(c, user.ToSummary())
}

// Update applies a partial profile update for the authenticated user.
func (h *UserHandler) Update(c *gin.Context) {
	user := currentUser(c)

	var req domain.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if len(name) < 3 {
			response.BadRequest(c, "Username must be at least 3 characters")
			return
		}
		user.Username = name
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if err := h.store.UpdateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			response.Conflict(c, "Username already taken")
			return
		}
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("update user failed")
		response.InternalError(c, "Failed to update user")
		return
	}

	response.Success(c, user)
}

// UploadAvatar stores a new avatar for the authenticated user and
// returns a URL for it.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user := currentUser(c)

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		response.BadRequest(c, "Missing avatar file")
		return
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		response.BadRequest(c, "Avatar exceeds the 5 MiB limit")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		response.BadRequest(c, "Unsupported avatar format")
		return
	}

	key := fmt.Sprintf("avatars/%s%s", user.ID, ext)
	contentType := header.Header.Get("Content-Type")

	ctx := c.Request.Context()
	if err := h.storage.Write(ctx, key, file, header.Size, contentType); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldUserID, user.ID).Msg("avatar upload failed")
		response.InternalError(c, "Failed to store avatar")
		return
	}

	user.AvatarKey = key
	if err := h.store.UpdateUser(ctx, user); err != nil {
		response.InternalError(c, "Failed to update user")
		return
	}

	url, err := h.storage.URL(ctx, key, avatarURLExpiry)
	if err != nil {
		response.InternalError(c, "Failed to resolve avatar URL")
		return
	}

	response.Success(c, gin.H{"avatar": url})
}

// GetAvatar streams a user's avatar.
func (h *UserHandler) GetAvatar(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.NotFound(c, "User not found")
		return
	}
	if user.AvatarKey == "" {
		response.NotFound(c, "User has no avatar")
		return
	}

	rc, err := h.storage.Read(c.Request.Context(), user.AvatarKey)
	if err != nil {
		response.NotFound(c, "Avatar not found")
		return
	}
	defer rc.Close()

	c.Status(200)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Ctx(c.Request.Context()).Debug().Err(err).Msg("avatar stream interrupted")
	}
}

// Search finds users by a username or email substring, excluding the
// requester.
func (h *UserHandler) Search(c *gin.Context) {
	user := currentUser(c)

	text := strings.TrimSpace(c.Query("search"))
	if text == "" {
		response.Success(c, []domain.UserSummary{})
		return
	}

	users, err := h.store.QueryUsersBySubstring(c.Request.Context(), text, user.ID, searchLimit)
	if err != nil {
		response.InternalError(c, "Search failed")
		return
	}

	response.Success(c, users)
}
