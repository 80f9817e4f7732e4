package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/speaking-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionAlreadyActive = errors.New("another session is already active, please contact admin to reset")
	ErrNoActiveSession      = errors.New("no active session")
	ErrSessionInvalidated   = errors.New("session invalidated")
	errInvalidClaims        = errors.New("invalid token claims")
)

const tokenIssuer = "speaking-backend"

// TokenType distinguishes candidate vs admin tokens.
type TokenType string

const (
	TokenTypeCandidate TokenType = "candidate"
	TokenTypeAdmin     TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	UserID      int       `json:"user_id"`
	ExamNumber  string    `json:"exam_number,omitempty"` // Candidate only
	RoleID      int       `json:"role_id,omitempty"`     // Admin only
	Permissions []string  `json:"permissions,omitempty"` // Admin only
}

// AuthService signs and verifies tokens. Candidate logins are additionally
// pinned to a single device through a JTI stored in Redis.
type AuthService struct {
	cfg    *config.Config
	rdb    *redis.Client
	parser *jwt.Parser
}

// NewAuthService creates a new AuthService. rdb may be nil for tools that
// only hash passwords or issue admin tokens.
func NewAuthService(cfg *config.Config, rdb *redis.Client) *AuthService {
	return &AuthService{
		cfg: cfg,
		rdb: rdb,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateCandidateToken registers a new session for the candidate and
// returns its token. A second login while a session is live is refused
// with ErrSessionAlreadyActive until an admin resets it or it expires.
func (s *AuthService) GenerateCandidateToken(ctx context.Context, candidateID int, examNumber string) (string, error) {
	claims := s.newClaims(TokenTypeCandidate, candidateID)
	claims.ExamNumber = examNumber

	sessionKey := config.CacheKey.CandidateSessionKey(candidateID)
	ok, err := s.rdb.SetNX(ctx, sessionKey, claims.ID, s.cfg.JWTExpiry).Result()
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if !ok {
		return "", ErrSessionAlreadyActive
	}

	signed, err := s.sign(claims)
	if err != nil {
		s.rdb.Del(ctx, sessionKey)
		return "", err
	}
	return signed, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
// Admins may hold several sessions at once.
func (s *AuthService) GenerateAdminToken(adminID, roleID int, permissions []string) (string, error) {
	claims := s.newClaims(TokenTypeAdmin, adminID)
	claims.RoleID = roleID
	claims.Permissions = permissions
	return s.sign(claims)
}

// ValidateToken verifies signature, issuer and expiry. Expired tokens
// return an error wrapping jwt.ErrTokenExpired.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errInvalidClaims
	}
	switch claims.TokenType {
	case TokenTypeCandidate, TokenTypeAdmin:
		return claims, nil
	default:
		return nil, errInvalidClaims
	}
}

// ValidateCandidateSession checks that the token's JTI matches the active session in Redis.
func (s *AuthService) ValidateCandidateSession(ctx context.Context, candidateID int, jti string) error {
	stored, err := s.rdb.Get(ctx, config.CacheKey.CandidateSessionKey(candidateID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNoActiveSession
	}
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetCandidateSession removes a candidate's session from Redis, allowing a new login.
func (s *AuthService) ResetCandidateSession(ctx context.Context, candidateID int) error {
	return s.ResetCandidateSessions(ctx, []int{candidateID})
}

// ResetCandidateSessions removes the sessions of many candidates in one round trip.
func (s *AuthService) ResetCandidateSessions(ctx context.Context, candidateIDs []int) error {
	if len(candidateIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		keys = append(keys, config.CacheKey.CandidateSessionKey(id))
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *AuthService) newClaims(kind TokenType, userID int) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: kind,
		UserID:    userID,
	}
}

func (s *AuthService) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
