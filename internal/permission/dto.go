package permission

import (
	"github.com/frahmantamala/access-control/internal/core/common/validation"
)

type CreatePermissionDTO struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Resource    string `json:"resource,omitempty" validate:"max=100"`
	Action      string `json:"action,omitempty" validate:"max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

func (dto CreatePermissionDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

// UpdatePermissionDTO leaves nil fields untouched.
type UpdatePermissionDTO struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Resource    *string `json:"resource,omitempty" validate:"omitempty,max=100"`
	Action      *string `json:"action,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (dto UpdatePermissionDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

type CreateRoleDTO struct {
	Name        string `json:"name" validate:"notblank,max=50"`
	Description string `json:"description,omitempty" validate:"max=500"`
}

func (dto CreateRoleDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

type UpdateRoleDTO struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=50"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (dto UpdateRoleDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

type SetRolePermissionsDTO struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required,dive,gt=0"`
}

func (dto SetRolePermissionsDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

type PermissionsResponse struct {
	Permissions []*Permission `json:"permissions"`
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}

type RolePermissionsResponse struct {
	RoleID      int64  `json:"role_id"`
	Permissions []Link `json:"permissions"`
}
