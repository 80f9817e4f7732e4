package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

var (
	ErrSystemRole        = errors.New("the superadmin role cannot be modified")
	ErrUnknownPermission = errors.New("unknown permission code")
)

// AdminRoleService handles business logic for admin roles.
type AdminRoleService struct {
	roleRepo *repository.RoleRepository
}

// NewAdminRoleService creates a new AdminRoleService.
func NewAdminRoleService(roleRepo *repository.RoleRepository) *AdminRoleService {
	return &AdminRoleService{roleRepo: roleRepo}
}

// ListRoles retrieves all roles with their permissions.
func (s *AdminRoleService) ListRoles(ctx context.Context) ([]model.RoleWithPermissions, error) {
	return s.roleRepo.ListRolesWithPermissions(ctx)
}

// GetRoleByID retrieves a specific role and its permissions.
func (s *AdminRoleService) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	return s.roleRepo.GetRoleByID(ctx, id)
}

// CreateRole creates a new role and assigns its permissions in one transaction.
func (s *AdminRoleService) CreateRole(ctx context.Context, req model.RoleRequest) (*model.RoleWithPermissions, error) {
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}
	id, err := s.roleRepo.CreateRole(ctx, req.Name, req.Permissions)
	if err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// UpdateRole renames a role and replaces its permissions.
func (s *AdminRoleService) UpdateRole(ctx context.Context, id int, req model.RoleRequest) (*model.RoleWithPermissions, error) {
	if id == repository.SuperadminRoleID {
		return nil, ErrSystemRole
	}
	if err := checkPermissions(req.Permissions); err != nil {
		return nil, err
	}
	if err := s.roleRepo.UpdateRole(ctx, id, req.Name, req.Permissions); err != nil {
		return nil, err
	}
	return s.GetRoleByID(ctx, id)
}

// DeleteRole deletes a role that no admin holds.
func (s *AdminRoleService) DeleteRole(ctx context.Context, id int) error {
	if id == repository.SuperadminRoleID {
		return ErrSystemRole
	}
	return s.roleRepo.DeleteRole(ctx, id)
}

// GetAllPermissions retrieves all available system permission codes.
func (s *AdminRoleService) GetAllPermissions() []string {
	perms := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		perms[i] = string(p)
	}
	return perms
}

func checkPermissions(codes []string) error {
	for _, c := range codes {
		if !model.ValidPermission(c) {
			return fmt.Errorf("%w: %s", ErrUnknownPermission, c)
		}
	}
	return nil
}
