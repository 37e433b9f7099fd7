package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/config"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/models"
)

// User-facing sentences for the two soft failure shapes of a
// completion: no extractable answer, and a run that outlived the
// bounded polling window.
const (
	ReplyNoAnswer = "Désolé, je n’ai pas pu répondre cette fois."
	ReplyTimedOut = "Désolé, délai dépassé."
)

// ErrUpstreamRateLimited signals an upstream 429. It is never retried
// internally; retrying would amplify load exactly when the upstream is
// shedding it.
var ErrUpstreamRateLimited = errors.New("upstream rate limited")

// UpstreamError is any terminal completion-API failure other than rate
// limiting. Hint carries the best diagnostic text extractable from the
// upstream error body.
type UpstreamError struct {
	StatusCode int
	Hint       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Hint)
}

// CompleteRequest is one turn to forward upstream. ConversationID is
// the sanitized continuation token, or empty to let the upstream start
// a fresh conversation. History carries prior transcript turns and is
// only consulted in model mode, where the upstream holds no state.
type CompleteRequest struct {
	ConversationID string
	UserID         string
	Message        string
	History        []models.ChatMessage
}

// Reply is a successful completion. ConvID is the upstream
// conversation identifier to hand back to the caller; it is empty in
// model mode, which has no continuation context.
type Reply struct {
	Text   string
	ConvID string
}

// CompletionClient is the slice of the OpenAI client the gateway uses.
// *openai.Client satisfies it; tests substitute a mock.
type CompletionClient interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatService wraps the completion API behind the reconciliation
// protocol: at most one upstream attempt per request, plus exactly one
// fallback retry without a conversation ID when — and only when — the
// upstream rejects an attached ID as unknown.
type ChatService interface {
	Complete(ctx context.Context, req CompleteRequest) (Reply, error)
}

type chatService struct {
	client CompletionClient
}

// NewChatService creates the completion gateway. Mode selection
// (assistant threads vs. stateless model completions) follows the
// configuration at call time, like the rest of the services.
func NewChatService(client CompletionClient) ChatService {
	return &chatService{client: client}
}

func (s *chatService) Complete(ctx context.Context, req CompleteRequest) (Reply, error) {
	if config.AppConfig.OpenAI.AssistantID == "" {
		return s.completeWithModel(ctx, req)
	}

	threadID := req.ConversationID
	attached := threadID != ""
	if !attached {
		thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
		if err != nil {
			return Reply{}, mapUpstreamError(err)
		}
		threadID = thread.ID
	}

	text, err := s.runThread(ctx, threadID, req.Message)
	if err != nil && attached && isNotFound(err) {
		// The referenced conversation is unknown or expired upstream.
		// Reissue the identical call once on a fresh thread; any further
		// failure is terminal.
		log.Printf("WARN: [ChatService] Conversation '%s' unknown upstream (404); retrying once with a fresh conversation.", threadID)
		thread, createErr := s.client.CreateThread(ctx, openai.ThreadRequest{})
		if createErr != nil {
			return Reply{}, mapUpstreamError(createErr)
		}
		threadID = thread.ID
		text, err = s.runThread(ctx, threadID, req.Message)
	}
	if err != nil {
		return Reply{}, mapUpstreamError(err)
	}
	return Reply{Text: text, ConvID: threadID}, nil
}

// runThread appends the user message to the thread, starts an
// assistant run and polls it to completion within a bounded window.
func (s *chatService) runThread(ctx context.Context, threadID, message string) (string, error) {
	_, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
	if err != nil {
		return "", err
	}

	run, err := s.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: config.AppConfig.OpenAI.AssistantID,
	})
	if err != nil {
		return "", err
	}

	interval := config.AppConfig.RunPollInterval
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	maxPolls := config.AppConfig.RunPollMax
	if maxPolls <= 0 {
		maxPolls = 40
	}

	for i := 0; i < maxPolls; i++ {
		run, err = s.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			return "", err
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return s.latestAssistantText(ctx, threadID)
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			hint := string(run.Status)
			if run.LastError != nil && run.LastError.Message != "" {
				hint = fmt.Sprintf("%s: %s", run.Status, run.LastError.Message)
			}
			return "", &UpstreamError{StatusCode: http.StatusBadGateway, Hint: "run " + hint}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}

	// The run is still going after the whole polling window. Answer
	// with a timeout sentence instead of blocking the webhook longer.
	log.Printf("WARN: [ChatService] Run '%s' on conversation '%s' did not complete within %d polls.", run.ID, threadID, maxPolls)
	return ReplyTimedOut, nil
}

func (s *chatService) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 10
	order := "desc"
	msgs, err := s.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", err
	}

	for _, msg := range msgs.Messages {
		if msg.Role != openai.ChatMessageRoleAssistant {
			continue
		}
		if text := assistantText(msg); text != "" {
			return text, nil
		}
	}
	return ReplyNoAnswer, nil
}

// assistantText joins the text parts of an assistant message, skipping
// non-text content.
func assistantText(msg openai.Message) string {
	var chunks []string
	for _, part := range msg.Content {
		if part.Text != nil && part.Text.Value != "" {
			chunks = append(chunks, part.Text.Value)
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

// completeWithModel is the stateless fallback used when no assistant
// is configured: the system prompt plus a truncated slice of the
// user's transcript stands in for upstream conversation memory.
func (s *chatService) completeWithModel(ctx context.Context, req CompleteRequest) (Reply, error) {
	cfg := config.AppConfig

	var llmMessages []openai.ChatCompletionMessage
	if cfg.SystemPrompt != "" {
		llmMessages = append(llmMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cfg.SystemPrompt,
		})
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 10
	}
	history := req.History
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if strings.EqualFold(msg.Role, "assistant") {
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages = append(llmMessages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	llmMessages = append(llmMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Message,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    cfg.OpenAI.Model,
		Messages: llmMessages,
	})
	if err != nil {
		return Reply{}, mapUpstreamError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Reply{Text: ReplyNoAnswer}, nil
	}
	return Reply{Text: strings.TrimSpace(resp.Choices[0].Message.Content)}, nil
}

func isNotFound(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound
}

// mapUpstreamError folds client errors into the gateway's taxonomy:
// 429 becomes the rate-limit sentinel, everything else an
// UpstreamError with whatever hint the upstream provided.
func mapUpstreamError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return ErrUpstreamRateLimited
		}
		return &UpstreamError{StatusCode: apiErr.HTTPStatusCode, Hint: apiErr.Message}
	}
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr
	}
	return &UpstreamError{StatusCode: http.StatusBadGateway, Hint: err.Error()}
}
