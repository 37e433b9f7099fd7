package models

import (
	"time"
)

// ChatMessage is one turn of a user's transcript.
type ChatMessage struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyResponse is the caller-facing payload of the reply webhook.
// ConvID is omitted entirely when no concrete value is known, so the
// chat platform never overwrites a stored conversation ID with null.
type ReplyResponse struct {
	Reply   string      `json:"reply"`
	ConvID  string      `json:"conv_id,omitempty"`
	Session interface{} `json:"session,omitempty"`
}

// InitResponse reports a user's identity and remaining daily quota.
type InitResponse struct {
	UserID         string `json:"user_id"`
	DailyLimit     int    `json:"daily_limit"`
	MessagesSent   int    `json:"messages_sent"`
	RemainingQuota int    `json:"remaining_quota"`
}

// VersionResponse mirrors the original deployment's version probe.
type VersionResponse struct {
	OK        bool   `json:"ok"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Time      string `json:"time"`
}
