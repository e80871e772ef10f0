package rpc

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lendnet/observability/logging"
	"lendnet/observability/metrics"
)

const requestIDHeader = "X-Request-Id"

// requestID tags every request with a correlation id, keeping a
// client-supplied one when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// observe logs each request and feeds the API metrics. The Authorization
// header is masked before it reaches the log stream.
func (s *Server) observe(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		took := time.Since(start)
		metrics.Ledger().ObserveRequest(route, strconv.Itoa(rec.status), took)
		s.log.Info("rpc request",
			"route", route,
			"status", rec.status,
			"took", took,
			"requestId", w.Header().Get(requestIDHeader),
			"authorization", logging.MaskValue(r.Header.Get("Authorization")),
		)
	})
}

// limiters hands out one token bucket per client source address. Entries
// are pruned once the map grows past a soft cap to bound memory.
type limiters struct {
	mu      sync.Mutex
	clients map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

const maxTrackedClients = 4096

func newLimiters(rps float64, burst int) *limiters {
	return &limiters{
		clients: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (l *limiters) allow(source string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.clients[source]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.clients = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[source] = limiter
	}
	return limiter.Allow()
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiters.allow(clientSource(r)) {
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientSource(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
