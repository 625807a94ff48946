package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/contractorpay/invoice-reconciler/internal/models"
)

const issuer = "invoice-reconciler"

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims issued to an operator.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

type claimsKey struct{}

// Manager issues and verifies operator tokens.
type Manager struct {
	secret   []byte
	ttl      time.Duration
	username string
	hash     []byte
	now      func() time.Time
}

// NewManager builds a Manager from config. An empty secret disables auth:
// the middleware lets every request through.
func NewManager(cfg models.AuthConfig) (*Manager, error) {
	ttl := 24 * time.Hour
	if cfg.TokenTTL != "" {
		d, err := time.ParseDuration(cfg.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid token_ttl %q: %w", cfg.TokenTTL, err)
		}
		ttl = d
	}
	return &Manager{
		secret:   []byte(cfg.JWTSecret),
		ttl:      ttl,
		username: cfg.Username,
		hash:     []byte(cfg.PasswordHash),
		now:      time.Now,
	}, nil
}

// Enabled reports whether requests must carry a token.
func (m *Manager) Enabled() bool {
	return len(m.secret) > 0
}

// GenerateToken signs a token for username.
func (m *Manager) GenerateToken(username string) (string, error) {
	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.New().String(),
		},
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and verifies a token string.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWTMiddleware rejects requests without a valid bearer token. Paths in
// public are served without one.
func (m *Manager) JWTMiddleware(public ...string) func(http.Handler) http.Handler {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.Enabled() || open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := m.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

// GetClaimsFromContext returns the claims the middleware stored, if any.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
