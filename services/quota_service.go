package services

import (
	"log"
	"math"
	"time"

	"github.com/LudoUniloan/unibot1-vercel-chatfuel/repository"
)

// QuotaDecision is the outcome of a quota check. RetryAfter is only
// meaningful when Allowed is false: the number of seconds until the
// next day boundary, always at least 1.
type QuotaDecision struct {
	Allowed    bool
	Limit      int
	RetryAfter int
}

// QuotaService gates each request against a per-user daily message
// limit. The check-then-increment is intentionally not atomic across
// concurrent requests for the same user; under contention the count
// can slip slightly past the limit. This is a soft anti-abuse guard,
// not a billing-grade limiter.
type QuotaService interface {
	CheckAndConsume(userID string) (QuotaDecision, error)
	Usage(userID string) (int, error)
}

type quotaService struct {
	store       repository.QuotaStore
	dailyLimit  int
	tzOffsetMin int
	now         func() time.Time
}

// NewQuotaService creates a quota service over the given store.
// tzOffsetMin shifts the midnight used for the retry-after countdown;
// the day key itself always uses UTC.
func NewQuotaService(store repository.QuotaStore, dailyLimit, tzOffsetMin int) QuotaService {
	return &quotaService{
		store:       store,
		dailyLimit:  dailyLimit,
		tzOffsetMin: tzOffsetMin,
		now:         time.Now,
	}
}

func (s *quotaService) CheckAndConsume(userID string) (QuotaDecision, error) {
	now := s.now().UTC()
	today := dayKey(now)

	quota, err := s.store.Get(userID)
	if err != nil {
		return QuotaDecision{}, err
	}
	if quota.DayKey != today {
		// First request of a new day (or a brand-new user): the stored
		// count, if any, belongs to a previous day.
		quota.DayKey = today
		quota.Count = 0
	}

	if quota.Count >= s.dailyLimit {
		retryAfter := s.secondsUntilNextMidnight(now)
		log.Printf("INFO: [QuotaService] User '%s' reached the daily limit of %d messages. Retry after %ds.", userID, s.dailyLimit, retryAfter)
		return QuotaDecision{Allowed: false, Limit: s.dailyLimit, RetryAfter: retryAfter}, nil
	}

	quota.Count++
	if err := s.store.Put(quota); err != nil {
		return QuotaDecision{}, err
	}
	return QuotaDecision{Allowed: true, Limit: s.dailyLimit}, nil
}

// Usage reports how many messages the user has consumed today without
// touching the counter.
func (s *quotaService) Usage(userID string) (int, error) {
	quota, err := s.store.Get(userID)
	if err != nil {
		return 0, err
	}
	if quota.DayKey != dayKey(s.now().UTC()) {
		return 0, nil
	}
	return quota.Count, nil
}

func dayKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// secondsUntilNextMidnight counts down to the next day boundary. The
// configured offset moves the boundary for display purposes only, so a
// bot serving one locale can announce a local-midnight reset while the
// day key stays UTC.
func (s *quotaService) secondsUntilNextMidnight(now time.Time) int {
	offset := time.Duration(s.tzOffsetMin) * time.Minute
	local := now.Add(offset)
	nextLocalMidnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, time.UTC).Add(-offset)

	secs := int(math.Ceil(nextLocalMidnight.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
