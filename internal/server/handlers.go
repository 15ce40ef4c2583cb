package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragchatbot/internal/chatstore"
	"ragchatbot/internal/models"
	"ragchatbot/internal/rag/prompts"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

// retryableMessage is returned with a 503 when a downstream model service
// fails. It is distinct from the grounded refusal, which is a normal answer.
const retryableMessage = "The assistant is temporarily unavailable, please try again."

// PassageRetriever finds the context passages for a question.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]*schema.RetrievalResult, error)
}

// Synthesizer turns a question plus retrieved passages into a grounded answer.
type Synthesizer interface {
	Answer(ctx context.Context, query string, results []*schema.RetrievalResult, history []schema.Turn, template string) (*schema.AssistantMessage, error)
}

// Handler wires the HTTP endpoints to the chat store and the answer pipeline.
type Handler struct {
	auth      *AuthService
	chats     chatstore.ChatStore
	retriever PassageRetriever
	synth     Synthesizer
	log       *logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(auth *AuthService, chats chatstore.ChatStore, retriever PassageRetriever, synth Synthesizer, log *logger.Logger) *Handler {
	return &Handler{
		auth:      auth,
		chats:     chats,
		retriever: retriever,
		synth:     synth,
		log:       log,
	}
}

// LoginRequest is the JSON body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and returns a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"user_id":   user.ID,
		"full_name": user.FullName,
	})
}

// ListTemplates returns the closed set of persona templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": prompts.List()})
}

// CreateChatRequest is the JSON body of POST /api/chats.
type CreateChatRequest struct {
	Title string `json:"title"`
}

// CreateChat starts a new conversation for the authenticated user.
func (h *Handler) CreateChat(c *gin.Context) {
	// The body is optional: a missing title is filled in from the first
	// user message.
	var req CreateChatRequest
	_ = c.ShouldBindJSON(&req)

	chat, err := h.chats.CreateChat(c.Request.Context(), h.callerID(c), req.Title)
	if err != nil {
		h.log.Error(fmt.Sprintf("Failed to create chat: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create chat"})
		return
	}

	c.JSON(http.StatusOK, chat)
}

// ListChats returns the caller's conversations, most recently active first.
func (h *Handler) ListChats(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	chats, err := h.chats.ListChats(c.Request.Context(), h.callerID(c), page, limit)
	if err != nil {
		h.log.Error(fmt.Sprintf("Failed to list chats: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ListMessages returns a chat's messages in chronological order.
func (h *Handler) ListMessages(c *gin.Context) {
	chat, ok := h.ownedChat(c)
	if !ok {
		return
	}

	msgs, err := h.chats.ListMessages(c.Request.Context(), chat.ID)
	if err != nil {
		h.log.Error(fmt.Sprintf("Failed to list messages: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessageRequest is the JSON body of POST /api/chats/:id/messages.
type PostMessageRequest struct {
	Content          string `json:"content" binding:"required"`
	PromptTemplateID string `json:"prompt_template_id"`
}

// PostMessage appends a customer question to the chat, answers it from the
// indexed documents and appends the assistant reply. Downstream model
// failures map to 503; an empty retrieval still yields a 200 with the
// refusal answer.
func (h *Handler) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, ok := h.ownedChat(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	history, err := h.chats.ListMessages(ctx, chat.ID)
	if err != nil {
		h.log.Error(fmt.Sprintf("Failed to load chat history: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat history"})
		return
	}

	userMsg := &models.Message{
		ChatID:           chat.ID,
		Role:             models.RoleUser,
		Content:          req.Content,
		PromptTemplateID: req.PromptTemplateID,
	}
	if err := h.chats.AppendMessage(ctx, userMsg); err != nil {
		h.log.Error(fmt.Sprintf("Failed to store user message: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	results, err := h.retriever.Retrieve(ctx, req.Content)
	if err != nil {
		h.serviceError(c, err)
		return
	}

	answer, err := h.synth.Answer(ctx, req.Content, results, toTurns(history), prompts.Get(req.PromptTemplateID))
	if err != nil {
		h.serviceError(c, err)
		return
	}

	assistantMsg := &models.Message{
		ChatID:  chat.ID,
		Role:    models.RoleAssistant,
		Content: answer.Content,
		Sources: answer.Sources,
	}
	if err := h.chats.AppendMessage(ctx, assistantMsg); err != nil {
		h.log.Error(fmt.Sprintf("Failed to store assistant message: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	c.JSON(http.StatusOK, assistantMsg)
}

// serviceError maps recoverable downstream failures to 503 and everything
// else to 500.
func (h *Handler) serviceError(c *gin.Context, err error) {
	var embErr *schema.EmbeddingServiceError
	var genErr *schema.GenerationError
	if errors.As(err, &embErr) || errors.As(err, &genErr) {
		h.log.Error(fmt.Sprintf("Model service failure: %v", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": retryableMessage})
		return
	}
	h.log.Error(fmt.Sprintf("Request failed: %v", err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// ownedChat loads the chat from the :id param and checks the caller owns it.
// On failure it writes the error response and returns ok=false.
func (h *Handler) ownedChat(c *gin.Context) (*models.Chat, bool) {
	chat, err := h.chats.GetChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, chatstore.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return nil, false
		}
		h.log.Error(fmt.Sprintf("Failed to load chat: %v", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return nil, false
	}
	if chat.UserID != h.callerID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return nil, false
	}
	return chat, true
}

// callerID returns the authenticated user ID as a string.
func (h *Handler) callerID(c *gin.Context) string {
	id, _ := c.Get(userIDKey)
	uid, _ := id.(uint)
	return strconv.FormatUint(uint64(uid), 10)
}

// toTurns converts stored messages into model history turns.
func toTurns(msgs []*models.Message) []schema.Turn {
	turns := make([]schema.Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, schema.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
