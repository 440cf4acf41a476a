package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/gosuda/complaintdesk/internal/domain"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrWeakPassword       = errors.New("auth: password too short")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16

	minPasswordLen = 8
)

// Service authenticates users. It knows nothing about tenants or roles.
type Service struct {
	userRepo   domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a new auth service.
func NewService(userRepo domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Register creates a user with a username and password. The password is
// hashed with argon2id before storage.
func (s *Service) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("auth.Register: username is required: %w", domain.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("auth.Register: %w", ErrWeakPassword)
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return user, nil
}

// Login validates username/password and returns access + refresh JWT tokens.
func (s *Service) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !verifyPassword(password, user.PasswordHash) {
		return "", "", fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	accessToken, err = IssueAccessToken(s.jwtSecret, user.ID, s.accessTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	refreshToken, err = IssueRefreshToken(s.jwtSecret, user.ID, s.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("auth.Login: %w", err)
	}

	return accessToken, refreshToken, nil
}

// RefreshToken validates a refresh token and issues a new access token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: invalid user id: %w", ErrInvalidToken)
	}

	// Verify the user still exists.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user.ID, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
