package restapi

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientTTL evicts limiters for clients idle this long.
const clientTTL = 3 * time.Minute

// RateLimitMiddleware keeps a token bucket per client address. A background
// task evicts idle clients so the map stays bounded.
type RateLimitMiddleware struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	stopOnce sync.Once
	stopChan chan struct{}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitMiddleware allows requestsPerWindow requests per window for
// each client. A non-positive limit disables rate limiting.
func NewRateLimitMiddleware(requestsPerWindow int, window time.Duration) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		limit:    rate.Every(window / time.Duration(max(requestsPerWindow, 1))),
		burst:    max(requestsPerWindow, 1),
		clients:  make(map[string]*clientLimiter),
		stopChan: make(chan struct{}),
	}
	if requestsPerWindow <= 0 {
		m.limit = rate.Inf
	}
	go m.evictIdleClients()
	return m
}

// Handler returns the middleware function.
func (m *RateLimitMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.allow(clientAddress(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stop terminates the eviction task. Safe to call more than once.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

func (m *RateLimitMiddleware) allow(client string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cl, ok := m.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.clients[client] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

func (m *RateLimitMiddleware) evictIdleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-clientTTL)
			m.mu.Lock()
			for client, cl := range m.clients {
				if cl.lastSeen.Before(cutoff) {
					delete(m.clients, client)
				}
			}
			m.mu.Unlock()
		case <-m.stopChan:
			return
		}
	}
}

// clientAddress identifies a client by IP, ignoring the ephemeral port.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
