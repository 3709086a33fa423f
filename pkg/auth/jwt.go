package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a live session. They carry no permissions.
type Claims struct {
	SessionID string `json:"sid"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateToken(claims Claims, ttl time.Duration) (string, error)
	ValidateToken(token string) (*Claims, error)
}

type hmacService struct {
	secret []byte
	issuer string
}

// NewJWTService signs and verifies HS256 tokens.
func NewJWTService(secret, issuer string) JWTService {
	return &hmacService{secret: []byte(secret), issuer: issuer}
}

// GenerateToken signs claims. A zero ttl issues a token without expiry.
func (s *hmacService) GenerateToken(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.Issuer = s.issuer
	claims.Subject = claims.SessionID
	claims.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *hmacService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims, nil
}
