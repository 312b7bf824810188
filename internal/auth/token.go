package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openride/rideshare-api/internal/models"
)

// ErrInvalidToken is returned when a token cannot be parsed, has a bad
// signature, or is past its expiration.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity payload embedded in a bearer token. The claim keys
// (username, id, admin, exp) are part of the wire contract with clients.
type Claims struct {
	Username string `json:"username"`
	UserID   int    `json:"id"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-limited bearer tokens.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{Secret: []byte(secret), TTL: ttl}
}

// Issue produces a signed HS256 token for the user, expiring after the
// configured TTL. Pure computation, no side effects.
func (s *TokenService) Issue(user *models.User) (string, error) {
	claims := Claims{
		Username: user.Username,
		UserID:   user.ID,
		Admin:    user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.Secret)
}

// Parse validates signature, structure, and expiration and returns the
// embedded claims. Callers that gate requests must additionally re-check
// that the claimed user still exists so deleted accounts lose access
// before their tokens expire.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
