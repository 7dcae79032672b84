package auth

import (
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID   uint64 `json:"sub"`
	Username string `json:"username"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	secretMu sync.RWMutex
	secret   []byte
)

// SetSecret overrides the signing secret; otherwise JWT_SECRET is used,
// falling back to a dev-only default.
func SetSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = []byte(s)
}

func getSecret() []byte {
	secretMu.RLock()
	if len(secret) > 0 {
		defer secretMu.RUnlock()
		return secret
	}
	secretMu.RUnlock()
	if env := os.Getenv("JWT_SECRET"); env != "" {
		return []byte(env)
	}
	return []byte("dev-secret")
}

func SignAccessToken(userID uint64, username string, ttl time.Duration) (string, time.Time, error) {
	return sign(userID, username, "access", ttl)
}

func SignRefreshToken(userID uint64, username string, ttl time.Duration) (string, time.Time, error) {
	return sign(userID, username, "refresh", ttl)
}

func sign(userID uint64, username, typ string, ttl time.Duration) (string, time.Time, error) {
	expiry := time.Now().Add(ttl)
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(getSecret())
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiry, nil
}

// ParseToken validates a signed token (access or refresh) and returns its
// claims.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return getSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}
