package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dd0wney/cluso-community/pkg/logging"
)

// RateLimitConfig configures per-client token bucket throttling
type RateLimitConfig struct {
	RequestsPerSecond float64       // token replenishment rate
	BurstSize         int           // bucket capacity
	CleanupInterval   time.Duration // how often inactive buckets are swept
	ClientExpiration  time.Duration // how long an idle client keeps its bucket
	MaxClients        int           // cap on tracked clients, 0 = unbounded
}

// DefaultRateLimitConfig returns the standard throttling parameters
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        100000,
	}
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

// RateLimiter tracks one token bucket per client
type RateLimiter struct {
	config   *RateLimitConfig
	logger   logging.Logger
	clients  map[string]*tokenBucket
	mu       sync.RWMutex
	stopChan chan struct{}
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine
func NewRateLimiter(config *RateLimitConfig, logger logging.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if logger == nil {
		logger = logging.DefaultLogger().With(logging.Component("ratelimit"))
	}

	rl := &RateLimiter{
		config:   config,
		logger:   logger,
		clients:  make(map[string]*tokenBucket),
		stopChan: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow reports whether a request from the given client may proceed. A nil
// bucket means the client cap was reached, which also denies the request.
func (rl *RateLimiter) Allow(clientID string) bool {
	bucket := rl.getBucket(clientID)
	if bucket == nil {
		return false
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(bucket.lastRefill).Seconds()

	bucket.tokens += elapsed * rl.config.RequestsPerSecond
	if bucket.tokens > float64(rl.config.BurstSize) {
		bucket.tokens = float64(rl.config.BurstSize)
	}
	bucket.lastRefill = now

	if bucket.tokens >= 1 {
		bucket.tokens--
		return true
	}

	return false
}

// getBucket returns the bucket for a client, creating one if the client cap
// allows it
func (rl *RateLimiter) getBucket(clientID string) *tokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientID]
	clientCount := len(rl.clients)
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	if rl.config.MaxClients > 0 && clientCount >= rl.config.MaxClients {
		rl.logger.Warn("client cap reached, rejecting new client",
			logging.Int("max_clients", rl.config.MaxClients),
			logging.String("client_id", clientID))
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock
	if bucket, exists = rl.clients[clientID]; exists {
		return bucket
	}
	if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
		return nil
	}

	bucket = &tokenBucket{
		tokens:     float64(rl.config.BurstSize),
		lastRefill: time.Now(),
	}
	rl.clients[clientID] = bucket
	return bucket
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopChan:
			return
		}
	}
}

// cleanup removes idle buckets in two phases so the read path is never
// blocked while candidates are scanned
func (rl *RateLimiter) cleanup() {
	now := time.Now()
	expired := make([]string, 0)

	rl.mu.RLock()
	for clientID, bucket := range rl.clients {
		bucket.mu.Lock()
		idle := now.Sub(bucket.lastRefill) > rl.config.ClientExpiration
		bucket.mu.Unlock()
		if idle {
			expired = append(expired, clientID)
		}
	}
	rl.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	rl.mu.Lock()
	for _, clientID := range expired {
		// Re-check: the bucket may have been refreshed since phase one
		if bucket, exists := rl.clients[clientID]; exists {
			bucket.mu.Lock()
			if now.Sub(bucket.lastRefill) > rl.config.ClientExpiration {
				delete(rl.clients, clientID)
			}
			bucket.mu.Unlock()
		}
	}
	rl.mu.Unlock()

	rl.logger.Debug("removed expired rate limit buckets", logging.Count(len(expired)))
}

// Stop terminates the cleanup goroutine
func (rl *RateLimiter) Stop() {
	close(rl.stopChan)
}

// Stats reports the limiter's current state
func (rl *RateLimiter) Stats() map[string]any {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return map[string]any{
		"active_clients":      len(rl.clients),
		"requests_per_second": rl.config.RequestsPerSecond,
		"burst_size":          rl.config.BurstSize,
	}
}

// ClientIDFunc extracts a client identifier from a request
type ClientIDFunc func(*http.Request) string

// RateLimit wraps a handler with per-client throttling. A nil limiter
// disables throttling entirely. onLimited, when set, is invoked before the
// 429 response is written.
func RateLimit(limiter *RateLimiter, getClientID ClientIDFunc, onLimited func(w http.ResponseWriter, r *http.Request, clientID string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID := getClientID(r)

			if !limiter.Allow(clientID) {
				limiter.logger.Warn("rate limit exceeded",
					logging.String("client_id", clientID),
					logging.Path(r.URL.Path))

				if onLimited != nil {
					onLimited(w, r, clientID)
				}

				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', 0, 64))
				http.Error(w, "rate limit exceeded, retry after 1 second", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
