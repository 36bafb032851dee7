package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/knowledge-engine/rulebot/internal/config"
)

var (
	ErrRateLimited     = errors.New("request rate limit exceeded")
	ErrTooManyPending  = errors.New("too many concurrent requests")
	ErrThrottleRunning = errors.New("throttle is already running")
)

// ClientThrottle paces requests per client address and caps how many
// each client may have in flight.
type ClientThrottle struct {
	config  config.ThrottleConfig
	logger  *logrus.Entry
	clients map[string]*clientState
	mu      sync.Mutex

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stats ThrottleStats
}

type clientState struct {
	limiter    *rate.Limiter
	active     int
	lastAccess time.Time
}

// ThrottleStats counts throttle decisions since start.
type ThrottleStats struct {
	Allowed     int64 `json:"allowed"`
	RateLimited int64 `json:"rate_limited"`
	Saturated   int64 `json:"saturated"`
	Clients     int   `json:"clients"`
}

func NewClientThrottle(cfg config.ThrottleConfig, logger *logrus.Entry) *ClientThrottle {
	if logger == nil {
		logger = logrus.WithField("component", "throttle")
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &ClientThrottle{
		config:  cfg,
		logger:  logger,
		clients: make(map[string]*clientState),
	}
}

// Start runs the worker that forgets idle clients.
func (ct *ClientThrottle) Start() error {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.running {
		return ErrThrottleRunning
	}
	if ct.config.CleanupInterval <= 0 {
		ct.running = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	ct.cancel = cancel
	ct.running = true

	ct.wg.Add(1)
	go ct.cleanupWorker(ctx)
	return nil
}

func (ct *ClientThrottle) Stop() {
	ct.mu.Lock()
	if !ct.running {
		ct.mu.Unlock()
		return
	}
	ct.running = false
	cancel := ct.cancel
	ct.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	ct.wg.Wait()
}

// Acquire admits one request for client. The caller must invoke release
// once the request is finished.
func (ct *ClientThrottle) Acquire(client string) (release func(), err error) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	state := ct.getOrCreateClient(client)
	state.lastAccess = time.Now()

	if ct.config.MaxConcurrency > 0 && state.active >= ct.config.MaxConcurrency {
		ct.stats.Saturated++
		return nil, ErrTooManyPending
	}
	if !state.limiter.Allow() {
		ct.stats.RateLimited++
		return nil, ErrRateLimited
	}

	state.active++
	ct.stats.Allowed++

	var once sync.Once
	return func() {
		once.Do(func() {
			ct.mu.Lock()
			state.active--
			ct.mu.Unlock()
		})
	}, nil
}

// Middleware rejects throttled requests with 429 before they reach next.
func (ct *ClientThrottle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddress(r)
		release, err := ct.Acquire(client)
		if err != nil {
			ct.logger.WithFields(logrus.Fields{
				"client": client,
				"path":   r.URL.Path,
			}).WithError(err).Debug("Request throttled")
			w.Header().Set("Retry-After", "1")
			writeJSON(ct.logger, w, http.StatusTooManyRequests, ErrorResponse{Error: err.Error()})
			return
		}
		defer release()
		next.ServeHTTP(w, r)
	})
}

func (ct *ClientThrottle) Statistics() ThrottleStats {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	stats := ct.stats
	stats.Clients = len(ct.clients)
	return stats
}

// getOrCreateClient must be called with ct.mu held.
func (ct *ClientThrottle) getOrCreateClient(client string) *clientState {
	if state, ok := ct.clients[client]; ok {
		return state
	}
	state := &clientState{
		limiter: rate.NewLimiter(rate.Limit(ct.config.RequestsPerSecond), ct.config.Burst),
	}
	ct.clients[client] = state
	ct.logger.WithField("client", client).Debug("Tracking new client")
	return state
}

func (ct *ClientThrottle) cleanupWorker(ctx context.Context) {
	defer ct.wg.Done()

	ticker := time.NewTicker(ct.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			ct.cleanup(now)
		}
	}
}

// cleanup drops clients idle for longer than ClientExpiry with nothing in flight.
func (ct *ClientThrottle) cleanup(now time.Time) int {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	removed := 0
	for client, state := range ct.clients {
		if state.active == 0 && now.Sub(state.lastAccess) > ct.config.ClientExpiry {
			delete(ct.clients, client)
			removed++
		}
	}
	if removed > 0 {
		ct.logger.WithField("expired_clients", removed).Debug("Cleanup completed")
	}
	return removed
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
