package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthManager mints and verifies the bearer tokens the platform frontend
// sends with buyer requests. HS256 with a shared secret; the subject claim
// is the platform user id.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	return &AuthManager{secret: []byte(secret), ttl: ttl}
}

type buyerClaims struct {
	jwt.RegisteredClaims
}

// Mint issues a token for the given user id. Used by dev tooling and tests;
// production tokens come from the platform's identity service sharing the
// same secret.
func (a *AuthManager) Mint(userID string) (string, error) {
	now := time.Now()
	claims := buyerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *AuthManager) verify(tokenString string) (string, error) {
	var claims buyerClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

type ctxKey string

const ctxBuyerID ctxKey = "buyer_id"

// BuyerID returns the authenticated buyer id placed in ctx by the auth
// middleware; "" when the request was not authenticated.
func BuyerID(ctx context.Context) string {
	if v := ctx.Value(ctxBuyerID); v != nil {
		return v.(string)
	}
	return ""
}

// Middleware authenticates the request and stores the buyer id in context.
func (a *AuthManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed bearer token")
			return
		}
		userID, err := a.verify(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxBuyerID, userID)))
	})
}
