package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"

	"github.com/itzhord/onecard-sub000/internal/infra/logging"
)

// ===== Caller identity =====

type ctxKey string

const ctxCallerID ctxKey = "caller_id"

// CallerID extracts the authenticated user id placed by authMiddleware.
func CallerID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxCallerID).(string); ok {
		return v
	}
	return ""
}

type callerClaims struct {
	jwt.RegisteredClaims
}

// AuthManager validates HMAC-signed bearer tokens whose subject is the
// internal user id. Session issuance lives in the auth service; this side
// only verifies.
type AuthManager struct {
	secret []byte
}

func NewAuthManager(secret string) *AuthManager {
	return &AuthManager{secret: []byte(secret)}
}

// Mint issues a token for userID. Used by tests and local tooling; production
// tokens come from the auth service with the same secret.
func (a *AuthManager) Mint(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) parse(token string) (string, error) {
	var claims callerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// authMiddleware requires a valid bearer token and stores the caller's user
// id on the request context.
func (a *AuthManager) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			writeError(w, http.StatusUnauthorized, "malformed authorization header")
			return
		}
		userID, err := a.parse(parts[1])
		if err != nil || userID == "" {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxCallerID, userID)
		ctx = logging.WithUserID(ctx, userID)
		if tid := middleware.GetReqID(ctx); tid != "" {
			ctx = logging.WithTraceID(ctx, tid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
