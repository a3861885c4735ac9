package handler

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/rekew/web-dev-project/internal/domain"
	"github.com/rekew/web-dev-project/internal/repository"
	"github.com/rekew/web-dev-project/pkg/log"
	"github.com/rekew/web-dev-project/pkg/response"
	"github.com/rekew/web-dev-project/pkg/storage"
)

const messagePageSize = 100

// ChatHandler serves the REST chat and message routes. Realtime fan-out
// happens over the websocket path; these routes cover history loads and
// clients without a live connection.
type ChatHandler struct {
	store   repository.Store
	storage storage.Storage
}

// NewChatHandler creates a chat handler.
func NewChatHandler(store repository.Store, st storage.Storage) *ChatHandler {
	return &ChatHandler{store: store, storage: st}
}

// ListChats returns every chat the authenticated user belongs to.
func (h *ChatHandler) ListChats(c *gin.Context) {
	user := currentUser(c)

	chats, err := h.store.ListChatsForUser(c.Request.Context(), user.ID)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("list chats failed")
		response.InternalError(c, "Failed to load chats")
		return
	}

	response.Success(c, chats)
}

// CreateChat creates a chat; the requester is always a participant.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	user := currentUser(c)

	var req domain.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	members := lo.Uniq(append(req.Participants, user.ID))

	chat, err := h.store.CreateChat(c.Request.Context(), req.Name, req.IsGroup, members)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.BadRequest(c, "Unknown participant")
			return
		}
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("create chat failed")
		response.InternalError(c, "Failed to create chat")
		return
	}

	response.Created(c, chat)
}

// GetChat returns one chat the authenticated user belongs to.
func (h *ChatHandler) GetChat(c *gin.Context) {
	user := currentUser(c)

	chat, err := h.store.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			response.NotFound(c, "Chat not found")
			return
		}
		response.InternalError(c, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(user.ID) {
		response.Forbidden(c, "Not a participant of this chat")
		return
	}

	response.Success(c, chat)
}

// ListMessages returns the most recent messages of a chat in ascending
// send order.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("id")

	chat, err := h.store.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			response.NotFound(c, "Chat not found")
			return
		}
		response.InternalError(c, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(user.ID) {
		response.Forbidden(c, "Not a participant of this chat")
		return
	}

	messages, err := h.store.ListMessagesForChat(c.Request.Context(), chatID, messagePageSize)
	if err != nil {
		response.InternalError(c, "Failed to load messages")
		return
	}

	response.Success(c, messages)
}

// CreateMessage persists a message via REST. Connected participants
// learn about it on their next history load; live delivery runs over
// the websocket path.
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	user := currentUser(c)

	var req domain.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chat, err := h.store.GetChat(c.Request.Context(), req.ChatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			response.NotFound(c, "Chat not found")
			return
		}
		response.InternalError(c, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(user.ID) {
		response.Forbidden(c, "Not a participant of this chat")
		return
	}

	message, err := h.store.CreateMessage(c.Request.Context(), chat.ID, user.ID, req.Text)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("create message failed")
		response.InternalError(c, "Failed to create message")
		return
	}

	response.Created(c, message)
}

// UploadMessageImage attaches an image to one of the sender's messages.
func (h *ChatHandler) UploadMessageImage(c *gin.Context) {
	user := currentUser(c)
	messageID := c.Param("id")

	ctx := c.Request.Context()
	message, err := h.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			response.NotFound(c, "Message not found")
			return
		}
		response.InternalError(c, "Failed to load message")
		return
	}
	if message.SenderID != user.ID {
		response.Forbidden(c, "Not the sender of this message")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.BadRequest(c, "Missing image file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		response.BadRequest(c, "Unsupported image format")
		return
	}

	key := fmt.Sprintf("messages/%s%s", message.ID, ext)
	if err := h.storage.Write(ctx, key, file, header.Size, header.Header.Get("Content-Type")); err != nil {
		log.Ctx(ctx).Error().Err(err).Str(log.FieldMessageID, message.ID).Msg("image upload failed")
		response.InternalError(c, "Failed to store image")
		return
	}

	if err := h.store.SetMessageImage(ctx, message.ID, key); err != nil {
		response.InternalError(c, "Failed to update message")
		return
	}

	message.ImageKey = key
	response.Success(c, message)
}

// GetMessageImage streams a message's image to a chat participant.
func (h *ChatHandler) GetMessageImage(c *gin.Context) {
	user := currentUser(c)

	ctx := c.Request.Context()
	message, err := h.store.GetMessage(ctx, c.Param("id"))
	if err != nil {
		response.NotFound(c, "Message not found")
		return
	}

	chat, err := h.store.GetChat(ctx, message.ChatID)
	if err != nil {
		response.InternalError(c, "Failed to load chat")
		return
	}
	if !chat.HasParticipant(user.ID) {
		response.Forbidden(c, "Not a participant of this chat")
		return
	}
	if message.ImageKey == "" {
		response.NotFound(c, "Message has no image")
		return
	}

	rc, err := h.storage.Read(ctx, message.ImageKey)
	if err != nil {
		response.NotFound(c, "Image not found")
		return
	}
	defer rc.Close()

	c.Status(200)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("image stream interrupted")
	}
}
