package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/config"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/repository"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/services"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/utils"
)

// User-facing sentences of the webhook. The bot speaks French; these
// are product copy, not diagnostics.
const (
	replyEmptyMessage = "Ton message semble vide. Dis-moi ce que tu veux savoir et je t’aide 🙂"
	replyRateLimited  = "Tu as atteint la limite de %d questions pour aujourd’hui. Réessaie dans %ds 🙏"
	replyUpstreamBusy = "Beaucoup de demandes en ce moment 😅 Réessaie dans une minute."
	replyGenericError = "Oups, une erreur est survenue."
)

// APIHandler holds all dependencies for API handlers.
type APIHandler struct {
	chatRepo       repository.ChatRepository
	quotaService   services.QuotaService
	sessionService services.SessionService
	chatService    services.ChatService
}

// NewAPIHandler creates a new APIHandler with necessary dependencies.
func NewAPIHandler(
	chatRepo repository.ChatRepository,
	quotaService services.QuotaService,
	sessionService services.SessionService,
	chatService services.ChatService,
) *APIHandler {
	return &APIHandler{
		chatRepo:       chatRepo,
		quotaService:   quotaService,
		sessionService: sessionService,
		chatService:    chatService,
	}
}

// ReplyHandler is the webhook endpoint: it gates the request on the
// daily quota, settles the conversation ID for this turn, forwards the
// message upstream and composes the caller-facing reply.
func (h *APIHandler) ReplyHandler(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		// An unreadable body gets the same friendly reply as an empty
		// message; the chat platform must always have something to render.
		c.JSON(http.StatusBadRequest, models.ReplyResponse{Reply: replyEmptyMessage})
		return
	}

	req := ParseReplyRequest(body)
	if req.UserID == "" || req.Message == "" {
		log.Printf("INFO: [ReplyHandler] Rejecting request with missing user_id or empty message (user_id='%s').", req.UserID)
		c.JSON(http.StatusBadRequest, models.ReplyResponse{Reply: replyEmptyMessage, Session: req.Session})
		return
	}

	if config.AppConfig.OpenAI.APIKey == "" {
		utils.SendJSONError(c, http.StatusInternalServerError, "Config manquante: OPENAI_API_KEY", errors.New("OPENAI_API_KEY is not configured"))
		return
	}

	decision, err := h.quotaService.CheckAndConsume(req.UserID)
	if err != nil {
		utils.SendJSONError(c, http.StatusInternalServerError, replyGenericError, err)
		return
	}
	if !decision.Allowed {
		c.Header("Retry-After", strconv.Itoa(decision.RetryAfter))
		c.JSON(http.StatusTooManyRequests, models.ReplyResponse{
			Reply:   fmt.Sprintf(replyRateLimited, decision.Limit, decision.RetryAfter),
			Session: req.Session,
		})
		return
	}

	// Reset evaluation runs on every turn so last-seen stays current; a
	// reset turn sends no conversation ID regardless of what the client
	// supplied, which forces the upstream to open a fresh conversation.
	conversationID := ""
	if !h.sessionService.ShouldReset(req.UserID, req.Message) {
		conversationID = h.sessionService.ResolveConversationID(req.ConvID)
	}

	if err := h.chatRepo.SaveMessage(models.ChatMessage{
		UserID:    req.UserID,
		Role:      "user",
		Content:   req.Message,
		Timestamp: time.Now(),
	}); err != nil {
		log.Printf("ERROR: [ReplyHandler] Failed to record user message for '%s': %v", req.UserID, err)
	}
	history, _ := h.chatRepo.GetMessagesByUserID(req.UserID)
	if len(history) > 0 {
		// The gateway receives only prior turns; the current message is
		// carried separately.
		history = history[:len(history)-1]
	}

	// The upstream call deliberately does not inherit the request
	// context: a caller disconnect must not cancel the in-flight
	// completion or its fallback retry.
	reply, err := h.chatService.Complete(context.Background(), services.CompleteRequest{
		ConversationID: conversationID,
		UserID:         req.UserID,
		Message:        req.Message,
		History:        history,
	})
	if err != nil {
		if errors.Is(err, services.ErrUpstreamRateLimited) {
			c.JSON(http.StatusTooManyRequests, models.ReplyResponse{Reply: replyUpstreamBusy, Session: req.Session})
			return
		}
		var upstreamErr *services.UpstreamError
		if errors.As(err, &upstreamErr) {
			utils.SendJSONError(c, http.StatusInternalServerError,
				fmt.Sprintf("Erreur OpenAI (%d) : %s", upstreamErr.StatusCode, upstreamErr.Hint), err)
			return
		}
		utils.SendJSONError(c, http.StatusInternalServerError, replyGenericError, err)
		return
	}

	if reply.Text != "" {
		if err := h.chatRepo.SaveMessage(models.ChatMessage{
			UserID:    req.UserID,
			Role:      "assistant",
			Content:   reply.Text,
			Timestamp: time.Now(),
		}); err != nil {
			log.Printf("ERROR: [ReplyHandler] Failed to record assistant reply for '%s': %v", req.UserID, err)
		}
	}

	// ConvID stays absent when no concrete identifier is known (model
	// mode): the caller's stored value must never be overwritten by null.
	c.JSON(http.StatusOK, models.ReplyResponse{
		Reply:   reply.Text,
		ConvID:  reply.ConvID,
		Session: req.Session,
	})
}

// InitHandler reports (or mints) a user identity along with today's
// quota usage. It never consumes quota.
func (h *APIHandler) InitHandler(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		userID = "guest_" + uuid.NewString()
		log.Printf("INFO: [InitHandler] No user_id provided, generated guest ID: %s", userID)
	}

	sent, err := h.quotaService.Usage(userID)
	if err != nil {
		log.Printf("ERROR: [InitHandler] Failed to fetch quota usage for '%s': %v. Assuming 0.", userID, err)
		sent = 0
	}

	limit := config.AppConfig.DailyLimit
	remaining := limit - sent
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, models.InitResponse{
		UserID:         userID,
		DailyLimit:     limit,
		MessagesSent:   sent,
		RemainingQuota: remaining,
	})
}

// VersionHandler is the deployment probe.
func (h *APIHandler) VersionHandler(c *gin.Context) {
	commit := os.Getenv("VERCEL_GIT_COMMIT_SHA")
	if commit == "" {
		commit = "unknown"
	}
	c.JSON(http.StatusOK, models.VersionResponse{
		OK:        true,
		GitCommit: commit,
		GoVersion: runtime.Version(),
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
}
