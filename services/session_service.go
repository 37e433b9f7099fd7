package services

import (
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/repository"
	"github.com/LudoUniloan/unibot1-vercel-chatfuel/utils"
)

// ConversationPrefix marks a token the upstream API recognizes as a
// continuation context reference.
const ConversationPrefix = "thread_"

const (
	maxConversationIDLen = 64
	maxSanitizedBodyLen  = 50
)

var (
	validConversationID = regexp.MustCompile(`^thread_[A-Za-z0-9_-]+$`)
	forbiddenIDChars    = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// Built-in reset triggers. Exact matches and substring/prefix phrases
// are matched against the normalized message (see utils.NormalizeText),
// so accents, case and punctuation never matter.
var (
	resetExact      = []string{"reset", "/new"}
	resetSubstrings = []string{"nouvelle question", "autre sujet", "changement de sujet"}
	resetPrefixes   = []string{"nouveau sujet"}
)

// SessionService decides, per turn, whether the existing conversation
// must be abandoned and which conversation ID (if any) to hand to the
// completion gateway. The continuity strategy is explicit chaining: a
// valid client-supplied ID is reused, otherwise no ID is sent and the
// upstream creates a fresh conversation whose ID is reported back to
// the caller for the next turn.
type SessionService interface {
	ShouldReset(userID, message string) bool
	ResolveConversationID(clientID string) string
}

type sessionService struct {
	lastSeen     repository.LastSeenStore
	idleResetMin int
	extraPhrases []string
	now          func() time.Time
}

// NewSessionService creates a session service. extraPhrases are
// additional substring triggers merged with the built-in list.
func NewSessionService(lastSeen repository.LastSeenStore, idleResetMin int, extraPhrases []string) SessionService {
	normalized := make([]string, 0, len(extraPhrases))
	for _, p := range extraPhrases {
		if n := utils.NormalizeText(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	return &sessionService{
		lastSeen:     lastSeen,
		idleResetMin: idleResetMin,
		extraPhrases: normalized,
		now:          time.Now,
	}
}

// ShouldReset reports whether this turn must start a fresh
// conversation. Last-seen is updated on every call, whatever the
// outcome, so the next turn's idle check compares against this one.
func (s *sessionService) ShouldReset(userID, message string) bool {
	idle := s.idleTooLong(userID)
	if idle {
		log.Printf("INFO: [SessionService] User '%s' was idle past the %d-minute threshold; conversation will restart.", userID, s.idleResetMin)
	}
	if s.wantsReset(message) {
		log.Printf("INFO: [SessionService] User '%s' asked for a fresh conversation.", userID)
		return true
	}
	return idle
}

// ResolveConversationID sanitizes a client-supplied conversation ID
// into an upstream-compliant token, or returns "" when nothing usable
// was supplied and the upstream should create a conversation itself.
// Sanitizing an already-valid ID returns it unchanged apart from
// length truncation.
func (s *sessionService) ResolveConversationID(clientID string) string {
	trimmed := strings.TrimSpace(clientID)
	if trimmed == "" || trimmed == "null" || trimmed == "undefined" {
		return ""
	}

	if validConversationID.MatchString(trimmed) {
		return truncate(trimmed, maxConversationIDLen)
	}

	clean := forbiddenIDChars.ReplaceAllString(trimmed, "")
	if !strings.HasPrefix(clean, ConversationPrefix) {
		clean = ConversationPrefix + truncate(clean, maxSanitizedBodyLen)
	}
	if clean == ConversationPrefix {
		// Nothing survived sanitization; better to start fresh than to
		// send a malformed token upstream.
		return ""
	}
	return truncate(clean, maxConversationIDLen)
}

func (s *sessionService) wantsReset(message string) bool {
	t := utils.NormalizeText(message)
	if t == "" {
		return false
	}
	for _, exact := range resetExact {
		if t == exact {
			return true
		}
	}
	for _, sub := range append(resetSubstrings, s.extraPhrases...) {
		if strings.Contains(t, sub) {
			return true
		}
	}
	for _, prefix := range resetPrefixes {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

// idleTooLong treats a user with no recorded contact as idle: after a
// restart (or for a first-time caller) any client-supplied
// conversation ID refers to a context this process never saw.
func (s *sessionService) idleTooLong(userID string) bool {
	now := s.now()
	previous := s.lastSeen.Touch(userID, now)
	return s.idleResetMin > 0 && now.Sub(previous) > time.Duration(s.idleResetMin)*time.Minute
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
