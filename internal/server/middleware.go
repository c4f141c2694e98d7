package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Anuraj-dev/student-erp/internal/auth"
	apperrors "github.com/Anuraj-dev/student-erp/internal/platform/errors"
	"github.com/Anuraj-dev/student-erp/internal/platform/requestctx"
)

const (
	defaultRateLimit  = 120
	defaultRateWindow = time.Minute
)

// withSecurityHeaders sets baseline response headers on every request.
func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter applies a fixed-window per-client request cap. The window
// resets wholesale rather than sliding; burst precision is not worth a
// dependency here.
type rateLimiter struct {
	mu      sync.Mutex
	counts  map[string]int
	limit   int
	window  time.Duration
	resetAt time.Time
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		counts:  make(map[string]int),
		limit:   limit,
		window:  window,
		resetAt: now().Add(window),
		now:     now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now := rl.now(); !now.Before(rl.resetAt) {
		rl.counts = make(map[string]int)
		rl.resetAt = now.Add(rl.window)
	}
	rl.counts[key]++
	return rl.counts[key] <= rl.limit
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.allow(host) {
			w.Header().Set("Retry-After", rl.resetAt.UTC().Format(http.TimeFormat))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":"RATE_LIMITED","message":"too many requests"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// auth wraps a handler with access-token validation. The validated
// principal is stored in the request context.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeError(w, r, apperrors.New(apperrors.CodeAuthTokenInvalid, "missing bearer token"))
			return
		}
		claims, err := auth.ValidateToken(token, auth.TokenUseAccess, s.tokens)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		revoked, err := s.stores.Revocations.IsTokenRevoked(r.Context(), claims.TokenID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if revoked {
			s.writeError(w, r, apperrors.New(apperrors.CodeAuthTokenRevoked, "token has been revoked"))
			return
		}
		principal := requestctx.Principal{
			Subject: claims.Subject,
			Role:    string(claims.Role),
			TokenID: claims.TokenID,
		}
		next(w, r.WithContext(requestctx.WithPrincipal(r.Context(), principal)))
	}
}

// requireRole gates a handler on a role predicate after authentication.
func (s *Server) requireRole(allowed func(requestctx.Principal) bool, next http.HandlerFunc) http.HandlerFunc {
	return s.auth(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := requestctx.PrincipalFromContext(r.Context())
		if !ok || !allowed(principal) {
			s.writeError(w, r, apperrors.New(apperrors.CodeAuthForbidden, "insufficient privileges"))
			return
		}
		next(w, r)
	})
}

func (s *Server) staffOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(requestctx.Principal.IsStaff, next)
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(requestctx.Principal.IsAdmin, next)
}

// facultyOnly admits faculty in addition to staff-or-above.
func (s *Server) facultyOnly(next http.HandlerFunc) http.HandlerFunc {
	return s.requireRole(func(p requestctx.Principal) bool {
		return p.Role == string(auth.RoleFaculty) || p.IsStaff()
	}, next)
}
