package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/taskflow-api/internal/access"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// ChatHandler serves conversations, messages and the realtime event stream.
type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	conversations, err := h.chatService.ListConversations(p)
	if err != nil {
		respondError(c, err, "Failed to fetch conversations")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	conversation, err := h.chatService.GetConversation(p, id)
	if err != nil {
		respondError(c, err, "Failed to fetch conversation")
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	type CreateConversationRequest struct {
		Name           string   `json:"name" binding:"max=255"`
		ParticipantIDs []uint64 `json:"participant_ids"`
		IsGroupChat    bool     `json:"is_group_chat"`
	}

	var req CreateConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conversation, err := h.chatService.CreateConversation(p, services.ConversationInput{
		Name:           req.Name,
		ParticipantIDs: req.ParticipantIDs,
		IsGroupChat:    req.IsGroupChat,
	})
	if err != nil {
		respondError(c, err, "Failed to create conversation")
		return
	}

	c.JSON(http.StatusCreated, conversation)
}

func (h *ChatHandler) AddParticipant(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	type AddParticipantRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AddParticipantRequest
	if !bindJSON(c, &req) {
		return
	}

	conversation, err := h.chatService.AddParticipant(p, id, req.UserID)
	if err != nil {
		respondError(c, err, "Failed to add participant")
		return
	}

	c.JSON(http.StatusOK, conversation)
}

func (h *ChatHandler) RemoveParticipant(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}
	userID, ok := middleware.ParseID(c, "user_id")
	if !ok {
		return
	}

	if err := h.chatService.RemoveParticipant(p, id, userID); err != nil {
		respondError(c, err, "Failed to remove participant")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Participant removed successfully"})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	messages, total, err := h.chatService.ListMessages(p, id, params)
	if err != nil {
		respondError(c, err, "Failed to fetch messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   messages,
		"pagination": params.Response(total),
	})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	type SendMessageRequest struct {
		Content  string  `json:"content"`
		ParentID *uint64 `json:"parent_message_id"`
	}

	var req SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), p, id, req.Content, req.ParentID)
	if err != nil {
		respondError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) Typing(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.Typing(c.Request.Context(), p, id); err != nil {
		respondError(c, err, "Failed to record typing")
		return
	}

	c.Status(http.StatusNoContent)
}

// Events streams the conversation's realtime events as server-sent events
// until the client goes away.
func (h *ChatHandler) Events(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	events, err := h.chatService.Subscribe(ctx, p, id)
	if err != nil {
		respondError(c, err, "Failed to subscribe to conversation")
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		}
	})
}

// messageAction adapts a ChatService call on the message :id into a handler.
func (h *ChatHandler) messageAction(fallback, done string, act func(ctx context.Context, p *access.Principal, id uint64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		id, ok := middleware.ParseID(c, "id")
		if !ok {
			return
		}
		if err := act(c.Request.Context(), p, id); err != nil {
			respondError(c, err, fallback)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": done})
	}
}

func (h *ChatHandler) MarkRead() gin.HandlerFunc {
	return h.messageAction("Failed to mark message as read", "Message marked as read", h.chatService.MarkRead)
}

func (h *ChatHandler) Pin() gin.HandlerFunc {
	return h.messageAction("Failed to pin message", "Message pinned", h.chatService.Pin)
}

func (h *ChatHandler) Unpin() gin.HandlerFunc {
	return h.messageAction("Failed to unpin message", "Message unpinned", h.chatService.Unpin)
}

func (h *ChatHandler) Save() gin.HandlerFunc {
	return h.messageAction("Failed to save message", "Message saved", func(_ context.Context, p *access.Principal, id uint64) error {
		return h.chatService.Save(p, id)
	})
}

func (h *ChatHandler) Unsave() gin.HandlerFunc {
	return h.messageAction("Failed to unsave message", "Message removed from saved", func(_ context.Context, p *access.Principal, id uint64) error {
		return h.chatService.Unsave(p, id)
	})
}

// React toggles the caller's reaction on a message.
func (h *ChatHandler) React(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(c, "id")
	if !ok {
		return
	}

	type ReactRequest struct {
		Reaction string `json:"reaction"`
	}

	var req ReactRequest
	if !bindJSON(c, &req) {
		return
	}

	added, err := h.chatService.React(c.Request.Context(), p, id, req.Reaction)
	if err != nil {
		respondError(c, err, "Failed to react to message")
		return
	}

	c.JSON(http.StatusOK, gin.H{"reaction": req.Reaction, "added": added})
}

func (h *ChatHandler) ListSaved(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	saved, err := h.chatService.ListSaved(p)
	if err != nil {
		respondError(c, err, "Failed to fetch saved messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved_messages": saved})
}
