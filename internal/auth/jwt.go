package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the JWT token payload. Tokens carry only the user; tenant and
// role are resolved from the user's identity on every request.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	TokenType string `json:"typ"` // "access" or "refresh"
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	issuer = "complaintdesk"
)

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueAccessToken creates a signed JWT access token.
func IssueAccessToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	return issueToken(secret, userID, tokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed JWT refresh token.
func IssueRefreshToken(secret string, userID uuid.UUID, ttl time.Duration) (string, error) {
	return issueToken(secret, userID, tokenTypeRefresh, ttl)
}

func issueToken(secret string, userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
			Subject:   userID.String(),
		},
		UserID:    userID.String(),
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}

// AccessUserID validates an access token and returns its user.
func AccessUserID(secret, tokenString string) (uuid.UUID, error) {
	claims, err := ValidateToken(secret, tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.TokenType != tokenTypeAccess {
		return uuid.Nil, fmt.Errorf("auth.AccessUserID: not an access token: %w", ErrInvalidToken)
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("auth.AccessUserID: %w", ErrInvalidToken)
	}
	return id, nil
}
