package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/repository"
)

func TestSessionService_ResolveConversationID(t *testing.T) {
	svc := NewSessionService(repository.NewMemoryLastSeenStore(), 30, nil)

	t.Run("sentinel and empty values resolve to nothing", func(t *testing.T) {
		assert.Equal(t, "", svc.ResolveConversationID(""))
		assert.Equal(t, "", svc.ResolveConversationID("   "))
		assert.Equal(t, "", svc.ResolveConversationID("null"))
		assert.Equal(t, "", svc.ResolveConversationID("undefined"))
	})

	t.Run("a valid ID passes through unchanged", func(t *testing.T) {
		id := "thread_abc123-XYZ_9"
		assert.Equal(t, id, svc.ResolveConversationID(id))
		// Idempotence: sanitizing the result changes nothing.
		assert.Equal(t, id, svc.ResolveConversationID(svc.ResolveConversationID(id)))
	})

	t.Run("forbidden characters are stripped", func(t *testing.T) {
		assert.Equal(t, "thread_abc123", svc.ResolveConversationID("thread_abc!@# 123"))
	})

	t.Run("a missing prefix is added", func(t *testing.T) {
		assert.Equal(t, "thread_abc123", svc.ResolveConversationID("abc 123"))
	})

	t.Run("overlong IDs are truncated to the maximum length", func(t *testing.T) {
		long := "thread_" + strings.Repeat("a", 100)
		got := svc.ResolveConversationID(long)
		assert.Len(t, got, 64)
		assert.Equal(t, long[:64], got)
	})

	t.Run("an ID that sanitizes to nothing resolves to nothing", func(t *testing.T) {
		assert.Equal(t, "", svc.ResolveConversationID("!!! ???"))
	})
}

func TestSessionService_ResetPhrases(t *testing.T) {
	newSvc := func(extra ...string) *sessionService {
		svc := NewSessionService(repository.NewMemoryLastSeenStore(), 0, extra).(*sessionService)
		return svc
	}

	t.Run("exact triggers, case and accent insensitive", func(t *testing.T) {
		svc := newSvc()
		assert.True(t, svc.wantsReset("reset"))
		assert.True(t, svc.wantsReset("Reset"))
		assert.True(t, svc.wantsReset("RESET"))
		assert.True(t, svc.wantsReset("  reset !  "))
		assert.True(t, svc.wantsReset("/new"))
	})

	t.Run("substring and prefix triggers", func(t *testing.T) {
		svc := newSvc()
		assert.True(t, svc.wantsReset("J'ai une nouvelle question pour toi"))
		assert.True(t, svc.wantsReset("On passe à un autre sujet ?"))
		assert.True(t, svc.wantsReset("Changement de sujet : les frais"))
		assert.True(t, svc.wantsReset("Nouveau sujet maintenant"))
		// "nouveau sujet" is a prefix trigger only.
		assert.False(t, svc.wantsReset("Je reviendrai avec un nouveau sujet"))
	})

	t.Run("superstrings of exact triggers do not fire", func(t *testing.T) {
		svc := newSvc()
		assert.False(t, svc.wantsReset("resetting the table"))
		assert.False(t, svc.wantsReset("le reset de mon mot de passe"))
		assert.False(t, svc.wantsReset("Quel est le tarif ?"))
		assert.False(t, svc.wantsReset(""))
	})

	t.Run("configured phrases match accent-insensitively", func(t *testing.T) {
		svc := newSvc("réinitialiser")
		assert.True(t, svc.wantsReset("Peux-tu reinitialiser la conversation ?"))
		assert.True(t, svc.wantsReset("RÉINITIALISER"))
	})
}

func TestSessionService_IdleReset(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	newSvc := func(thresholdMin int) *sessionService {
		return NewSessionService(repository.NewMemoryLastSeenStore(), thresholdMin, nil).(*sessionService)
	}

	t.Run("a user never seen counts as idle", func(t *testing.T) {
		svc := newSvc(30)
		svc.now = func() time.Time { return base }
		assert.True(t, svc.ShouldReset("u1", "bonjour"))
	})

	t.Run("29 minutes of silence does not reset, 31 does", func(t *testing.T) {
		svc := newSvc(30)
		svc.now = func() time.Time { return base }
		svc.ShouldReset("u1", "bonjour")

		svc.now = func() time.Time { return base.Add(29 * time.Minute) }
		assert.False(t, svc.ShouldReset("u1", "et ensuite ?"))

		// Last-seen moved to minute 29; jump past the threshold from there.
		svc.now = func() time.Time { return base.Add(29*time.Minute + 31*time.Minute) }
		assert.True(t, svc.ShouldReset("u1", "toujours là ?"))
	})

	t.Run("a reset phrase fires regardless of elapsed time", func(t *testing.T) {
		svc := newSvc(30)
		svc.now = func() time.Time { return base }
		svc.ShouldReset("u1", "bonjour")

		svc.now = func() time.Time { return base.Add(time.Minute) }
		assert.True(t, svc.ShouldReset("u1", "reset"))
	})

	t.Run("a zero threshold disables the temporal trigger", func(t *testing.T) {
		svc := newSvc(0)
		svc.now = func() time.Time { return base }
		assert.False(t, svc.ShouldReset("u1", "bonjour"))

		svc.now = func() time.Time { return base.Add(48 * time.Hour) }
		assert.False(t, svc.ShouldReset("u1", "toujours là ?"))
	})

	t.Run("last-seen is updated even when no reset fires", func(t *testing.T) {
		svc := newSvc(30)
		svc.now = func() time.Time { return base }
		svc.ShouldReset("u1", "bonjour")

		// Keep talking every 20 minutes: the window slides, never firing.
		for i := 1; i <= 4; i++ {
			svc.now = func() time.Time { return base.Add(time.Duration(i) * 20 * time.Minute) }
			assert.False(t, svc.ShouldReset("u1", "encore moi"))
		}
	})
}
