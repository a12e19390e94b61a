package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	RepliesPerMinute int           // Sustained requests per player per minute
	BurstSize        int           // Allow burst of N requests
	CleanupInterval  time.Duration // How often to drop idle limiters
	IdleTTL          time.Duration // Limiters unused for this long are dropped
}

type playerLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PlayerRateLimiter keeps one token bucket per player.
type PlayerRateLimiter struct {
	config      RateLimiterConfig
	limiters    map[uuid.UUID]*playerLimiter
	mu          sync.Mutex
	logger      *zap.Logger
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewPlayerRateLimiter creates the limiter and starts its cleanup goroutine.
func NewPlayerRateLimiter(config RateLimiterConfig, logger *zap.Logger) *PlayerRateLimiter {
	if config.RepliesPerMinute <= 0 {
		config.RepliesPerMinute = 60
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 30 * time.Minute
	}

	limiter := &PlayerRateLimiter{
		config:      config,
		limiters:    make(map[uuid.UUID]*playerLimiter),
		logger:      logger,
		stopCleanup: make(chan struct{}),
	}
	go limiter.cleanupRoutine()
	return limiter
}

func (l *PlayerRateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now().Add(-l.config.IdleTTL))
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *PlayerRateLimiter) cleanup(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, pl := range l.limiters {
		if pl.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Debug("Dropped idle rate limiters",
			zap.Int("removed", removed),
			zap.Int("remaining", len(l.limiters)))
	}
}

// Stop stops the cleanup routine
func (l *PlayerRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

func (l *PlayerRateLimiter) get(id uuid.UUID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	pl, ok := l.limiters[id]
	if !ok {
		perSecond := rate.Limit(float64(l.config.RepliesPerMinute) / 60.0)
		pl = &playerLimiter{limiter: rate.NewLimiter(perSecond, l.config.BurstSize)}
		l.limiters[id] = pl
	}
	pl.lastSeen = time.Now()
	return pl.limiter
}

// Allow consumes a token for the player if one is available.
func (l *PlayerRateLimiter) Allow(id uuid.UUID) bool {
	return l.get(id).Allow()
}

// Remaining returns the whole tokens left for the player and the burst size.
func (l *PlayerRateLimiter) Remaining(id uuid.UUID) (remaining int, limit int) {
	tokens := l.get(id).Tokens()
	if tokens < 0 {
		tokens = 0
	}
	return int(tokens), l.config.BurstSize
}

// RateLimitMiddleware rejects requests beyond the player's budget. It must run
// after PlayerMiddleware.
func RateLimitMiddleware(limiter *PlayerRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("playerID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "player not initialized"})
			return
		}
		playerID := value.(uuid.UUID)

		allowed := limiter.Allow(playerID)
		remaining, limit := limiter.Remaining(playerID)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			if logger, ok := c.Get("logger"); ok {
				if zapLogger, _ := logger.(*zap.Logger); zapLogger != nil {
					zapLogger.Warn("Rate limit exceeded",
						zap.String("player_id", playerID.String()),
						zap.Int("limit", limit))
				}
			}
			retryAfter := int(60 / limiter.config.RepliesPerMinute)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"limit":       limit,
				"remaining":   remaining,
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
