package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5/request"
	"golang.org/x/time/rate"

	"github.com/SaiWorkProfile/manortha-website/internal/entity"
	"github.com/SaiWorkProfile/manortha-website/pkg/config"
	"github.com/SaiWorkProfile/manortha-website/pkg/logger"
)

const limiterIdleTTL = 5 * time.Minute

type SessionAuthorizer interface {
	ValidateToken(token string) (uuid.UUID, error)
	Authorize(ctx context.Context, id uuid.UUID, screen entity.ScreenID) error
}

type Middleware struct {
	cfg     config.Config
	auth    SessionAuthorizer
	limiter *RateLimiter
}

func NewMiddleware(cfg config.Config, auth SessionAuthorizer, limiter *RateLimiter) *Middleware {
	return &Middleware{
		cfg:     cfg,
		auth:    auth,
		limiter: limiter,
	}
}

func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.SetRequestID(r.Context(), uuid.Must(uuid.NewV4()).String())
		ctx = logger.SetMethod(ctx, r.Method)
		ctx = logger.SetURL(ctx, r.URL.Path)

		slog.InfoContext(ctx, "incoming request", "user_agent", r.UserAgent(), "remote_addr", r.RemoteAddr)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec != nil {
				slog.ErrorContext(r.Context(), "panic", "error", rec, "stack", string(debug.Stack()))
				sendErr(r.Context(), w, http.StatusInternalServerError, fmt.Errorf("panic: %v", rec), errInternalText)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Origin, Accept, Cache-Control")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) WithIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)

		ctx := context.WithValue(r.Context(), entity.CtxKeyIP{}, ip)
		ctx = logger.SetIP(ctx, ip)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP honours X-Forwarded-For only behind a trusted proxy.
func (m *Middleware) clientIP(r *http.Request) string {
	if m.cfg.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func (m *Middleware) sessionToken(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.cfg.Session.CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return request.BearerExtractor{}.ExtractToken(r)
}

// Session requires a valid session token.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := m.sessionToken(r)
		if err != nil {
			sendErr(ctx, w, http.StatusUnauthorized, err, "Session is missing")
			return
		}

		id, err := m.auth.ValidateToken(token)
		if err != nil {
			sendServiceErr(ctx, w, err)
			return
		}

		ctx = entity.WithSessionID(ctx, id)
		ctx = logger.SetSessionID(ctx, id.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalSession attaches the session when a valid token is present and
// lets the request through otherwise.
func (m *Middleware) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := m.sessionToken(r)
		if err == nil {
			id, err := m.auth.ValidateToken(token)
			if err == nil {
				ctx = entity.WithSessionID(ctx, id)
				ctx = logger.SetSessionID(ctx, id.String())
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScreen lets through sessions whose role may open screen.
func (m *Middleware) RequireScreen(screen entity.ScreenID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, ok := entity.SessionIDFromCtx(ctx)
			if !ok {
				sendServiceErr(ctx, w, entity.ErrUnauthorized)
				return
			}

			err := m.auth.Authorize(ctx, id, screen)
			if err != nil {
				sendServiceErr(ctx, w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit keys the bucket by session when one is attached, else by IP.
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		key := "ip:" + entity.IPFromCtx(ctx)
		if id, ok := entity.SessionIDFromCtx(ctx); ok {
			key = "session:" + id.String()
		} else if key == "ip:" {
			key += m.clientIP(r)
		}

		if !m.limiter.Allow(key) {
			ctx = logger.SetLogType(ctx, "security")
			sendErr(ctx, w, http.StatusTooManyRequests, errors.New("rate limit exceeded"), "Too many attempts, slow down")

			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimiter keeps a token bucket per client.
type RateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}

	b.seen = time.Now()

	return b.lim.Allow()
}

// Cleanup forgets clients idle since before now minus the idle TTL.
func (l *RateLimiter) Cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, b := range l.buckets {
		if now.Sub(b.seen) > limiterIdleTTL {
			delete(l.buckets, k)
		}
	}
}
