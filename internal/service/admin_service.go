package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

const (
	maxFailedLogins   = 5
	failedLoginWindow = 15 * time.Minute
)

var ErrTooManyLoginAttempts = errors.New("too many failed login attempts, try again later")

// AdminService handles admin authentication and lookups.
type AdminService struct {
	adminRepo *repository.AdminRepository
	roleRepo  *repository.RoleRepository
	auth      *AuthService
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewAdminService creates a new AdminService.
func NewAdminService(adminRepo *repository.AdminRepository, roleRepo *repository.RoleRepository, auth *AuthService, rdb *redis.Client, log zerolog.Logger) *AdminService {
	return &AdminService{
		adminRepo: adminRepo,
		roleRepo:  roleRepo,
		auth:      auth,
		rdb:       rdb,
		log:       log.With().Str("component", "admin_service").Logger(),
	}
}

// Login verifies an admin's password and issues a token carrying their
// permissions. Repeated failures lock the email out for a while.
func (s *AdminService) Login(ctx context.Context, req model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	failKey := config.CacheKey.LoginAttemptsKey(email)

	if n, err := s.rdb.Get(ctx, failKey).Int(); err == nil && n >= maxFailedLogins {
		return nil, ErrTooManyLoginAttempts
	}

	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			s.recordFailure(ctx, failKey)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		s.recordFailure(ctx, failKey)
		return nil, err
	}
	s.rdb.Del(ctx, failKey)

	permissions, err := s.roleRepo.GetPermissionsByRoleID(ctx, admin.RoleID)
	if err != nil {
		return nil, err
	}
	token, err := s.auth.GenerateAdminToken(admin.ID, admin.RoleID, permissions)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("admin_id", admin.ID).Msg("Admin logged in")
	return &model.AdminLoginResponse{Token: token, Admin: *admin, Permissions: permissions}, nil
}

func (s *AdminService) recordFailure(ctx context.Context, key string) {
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, failedLoginWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record failed login")
	}
}

// GetByEmail retrieves an admin by email.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return s.adminRepo.GetByEmail(ctx, email)
}

// GetByID retrieves an admin by ID.
func (s *AdminService) GetByID(ctx context.Context, id int) (*model.Admin, error) {
	return s.adminRepo.GetByID(ctx, id)
}

// GetPermissions retrieves permission codes for an admin's role.
func (s *AdminService) GetPermissions(ctx context.Context, roleID int) ([]string, error) {
	return s.roleRepo.GetPermissionsByRoleID(ctx, roleID)
}
