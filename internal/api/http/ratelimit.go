package http

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/servisdesk/servisdesk/internal/config"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// LoginLimiter throttles login attempts per client address.
type LoginLimiter struct {
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	logger          *zap.Logger

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLoginLimiter starts a limiter with a background sweep of idle clients.
func NewLoginLimiter(cfg config.RateLimitConfig, cleanupInterval time.Duration, logger *zap.Logger) *LoginLimiter {
	perMinute := cfg.LoginPerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 1
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	l := &LoginLimiter{
		limit:           rate.Limit(float64(perMinute) / 60.0),
		burst:           burst,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		limiters:        make(map[string]*clientLimiter),
		stopCh:          make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Stop ends the background sweep.
func (l *LoginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Handle rejects requests once the client's bucket is empty.
func (l *LoginLimiter) Handle(c *fiber.Ctx) error {
	client := c.IP()
	if !l.limiterFor(client).Allow() {
		retryAfter := int(math.Ceil(1.0 / float64(l.limit)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		l.logger.Warn("login rate limit exceeded", zap.String("ip", client))
		return apperrors.NewRateLimited("too many login attempts, try again later")
	}
	return c.Next()
}

// Clients returns the number of tracked client addresses.
func (l *LoginLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LoginLimiter) limiterFor(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.limiters[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[client] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter
}

func (l *LoginLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

// sweep drops clients idle for two cleanup intervals.
func (l *LoginLimiter) sweep(now time.Time) {
	ttl := l.cleanupInterval * 2
	l.mu.Lock()
	defer l.mu.Unlock()
	for client, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > ttl {
			delete(l.limiters, client)
		}
	}
}
