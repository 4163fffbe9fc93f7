package user

import (
	"github.com/frahmantamala/access-control/internal/core/common/validation"
)

type CreateUserDTO struct {
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"notblank,max=100"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Role      string `json:"role" validate:"notblank,max=50"`
}

func (dto CreateUserDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO leaves nil fields untouched.
type UpdateUserDTO struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,notblank,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,notblank,max=100"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role      *string `json:"role,omitempty" validate:"omitempty,notblank,max=50"`
}

func (dto UpdateUserDTO) Validate() error {
	if err := validation.Struct(dto); err != nil {
		return err
	}
	return nil
}

type UsersResponse struct {
	Users []*User `json:"users"`
}
