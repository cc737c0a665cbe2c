// Package api implements the Memora REST API using chi.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/starford/memora/internal/ratelimit"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeJWT      = "jwt"
)

// AuthConfig selects how callers are identified.
//
//   - disabled: every request acts as UserID.
//   - token: a static Bearer Token; the holder acts as UserID.
//   - jwt: an HS256 token signed with JWTSecret whose "sub" claim is the user id.
type AuthConfig struct {
	Mode      string
	Token     string
	UserID    string
	JWTSecret string
	JWTIssuer string
}

type userKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the authenticated user id, or "" when absent.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// RequestUserID is UserID for an *http.Request.
func RequestUserID(r *http.Request) string {
	return UserID(r.Context())
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	return tok, tok != ""
}

// AuthMiddleware resolves the caller and stores the user id in the request context.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			switch cfg.Mode {
			case AuthModeToken:
				tok, ok := bearer(r)
				if !ok || subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.Token)) != 1 {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				userID = cfg.UserID
			case AuthModeJWT:
				tok, ok := bearer(r)
				if !ok {
					writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
					return
				}
				sub, err := parseSubject(tok, cfg)
				if err != nil {
					writeJSON(w, http.StatusUnauthorized, errorBody("invalid token"))
					return
				}
				userID = sub
			default:
				userID = cfg.UserID
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func parseSubject(tok string, cfg AuthConfig) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if !t.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Limiter hands out request permits per key.
type Limiter interface {
	Allow(key string) ratelimit.Decision
}

// RateLimitMiddleware throttles requests per authenticated user, falling back to
// the client address for anonymous requests.
func RateLimitMiddleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserID(r.Context())
			if key == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				key = "ip:" + host
			}

			d := l.Allow(key)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeJSON(w, http.StatusTooManyRequests, errorBody("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
