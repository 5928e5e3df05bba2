package handlers

import (
	"sync"
	"time"
)

// RateLimiter caps event ingestion per client with a rolling daily budget.
type RateLimiter struct {
	mu         sync.Mutex
	limits     map[string]*clientLimit
	dailyLimit int
}

type clientLimit struct {
	dailyCount int
	lastReset  time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limits:     make(map[string]*clientLimit),
		dailyLimit: 100000, // 100k events per client per day
	}
}

func (rl *RateLimiter) AllowRequest(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.limits[clientID]
	if !exists {
		limit = &clientLimit{
			lastReset: time.Now().UTC(),
		}
		rl.limits[clientID] = limit
	}

	// Reset daily count if it's a new day
	now := time.Now().UTC()
	if now.Sub(limit.lastReset) >= 24*time.Hour {
		limit.dailyCount = 0
		limit.lastReset = now
	}

	if limit.dailyCount >= rl.dailyLimit {
		return false
	}

	limit.dailyCount++
	return true
}
