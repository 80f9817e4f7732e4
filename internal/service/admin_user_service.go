package service

import (
	"context"
	"errors"
	"strings"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
)

var (
	ErrProtectedAdmin = errors.New("superadmin accounts cannot be deleted")
	ErrDeleteSelf     = errors.New("cannot delete your own account")
	ErrUnknownRole    = errors.New("role does not exist")
)

// AdminUserService manages admin accounts.
type AdminUserService struct {
	adminRepo *repository.AdminRepository
	roleRepo  *repository.RoleRepository
	auth      *AuthService
}

func NewAdminUserService(adminRepo *repository.AdminRepository, roleRepo *repository.RoleRepository, auth *AuthService) *AdminUserService {
	return &AdminUserService{adminRepo: adminRepo, roleRepo: roleRepo, auth: auth}
}

// ListAdmins retrieves a paginated list of admins, optionally filtered by role.
func (s *AdminUserService) ListAdmins(ctx context.Context, roleID, page, perPage int) ([]model.Admin, *response.Pagination, error) {
	page, perPage, limit, offset := normalizePage(page, perPage)

	admins, total, err := s.adminRepo.ListPaginated(ctx, roleID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	if admins == nil {
		admins = []model.Admin{}
	}
	return admins, newPagination(page, perPage, total), nil
}

// CreateAdmin creates a new admin user.
func (s *AdminUserService) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (*model.Admin, error) {
	if err := s.checkRole(ctx, req.RoleID); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: hash,
		RoleID:       req.RoleID,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return s.adminRepo.GetByID(ctx, admin.ID)
}

// UpdateAdmin updates an existing admin user. An empty password keeps the stored hash.
func (s *AdminUserService) UpdateAdmin(ctx context.Context, id int, req model.UpdateAdminRequest) (*model.Admin, error) {
	if err := s.checkRole(ctx, req.RoleID); err != nil {
		return nil, err
	}

	admin := &model.Admin{
		ID:     id,
		Email:  strings.ToLower(strings.TrimSpace(req.Email)),
		Name:   req.Name,
		RoleID: req.RoleID,
	}
	if req.Password != "" {
		hash, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = hash
	}

	if err := s.adminRepo.Update(ctx, admin); err != nil {
		return nil, err
	}
	return s.adminRepo.GetByID(ctx, id)
}

// DeleteAdmin deletes an admin user. Superadmins and the caller's own
// account are protected.
func (s *AdminUserService) DeleteAdmin(ctx context.Context, callerID, id int) error {
	if callerID == id {
		return ErrDeleteSelf
	}
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if admin.RoleID == repository.SuperadminRoleID {
		return ErrProtectedAdmin
	}
	return s.adminRepo.Delete(ctx, id)
}

func (s *AdminUserService) checkRole(ctx context.Context, roleID int) error {
	if _, err := s.roleRepo.GetRoleByID(ctx, roleID); err != nil {
		if isNotFound(err) {
			return ErrUnknownRole
		}
		return err
	}
	return nil
}
