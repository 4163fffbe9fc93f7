package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/access-control/internal"
	userDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/user"
	"github.com/frahmantamala/access-control/internal/permission"
)

// Lookups return (nil, nil) when no row matches.
type Repository interface {
	// FindAll lists users newest first, skipping those holding excludeRole.
	FindAll(ctx context.Context, excludeRole string) ([]*userDatamodel.User, error)
	FindByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	Delete(ctx context.Context, id int64) (bool, error)
}

// RoleLookup reports whether a role exists. permission.Service satisfies it.
type RoleLookup interface {
	FindRoleByName(ctx context.Context, name string) (*permission.Role, error)
}

type Service struct {
	repo   Repository
	roles  RoleLookup
	logger *slog.Logger
}

func NewService(repo Repository, roles RoleLookup, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		roles:  roles,
		logger: logger,
	}
}

var errUserNotFound = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)

func userExists(email string) *internal.AppError {
	return internal.NewConflictError(fmt.Sprintf("User with email %s already exists", email), internal.ErrCodeUserExists)
}

func reservedUser(message string) *internal.AppError {
	return internal.NewForbiddenError(message, internal.ErrCodeReservedUser)
}

func isSuperAdmin(role string) bool {
	return permission.IsReservedRoleName(role)
}

// EnsureSuperAdmin creates the reserved super-admin account unless a user with
// that email already exists.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return errors.New("super admin email is empty")
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up super admin: %w", err)
	}
	if existing != nil {
		if !isSuperAdmin(existing.Role) {
			s.logger.Warn("reserved email belongs to a non super admin user", "email", email, "role", existing.Role)
		}
		return nil
	}

	record := &userDatamodel.User{
		FirstName: "Default",
		LastName:  "Admin",
		Email:     email,
		Role:      permission.RoleSuperAdmin,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create super admin: %w", err)
	}

	s.logger.Info("seeded super admin user", "email", email)
	return nil
}

// FindRoleByEmail reports the role of the user registered under email.
func (s *Service) FindRoleByEmail(ctx context.Context, email string) (string, bool, error) {
	record, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", false, err
	}
	if record == nil {
		return "", false, nil
	}
	return record.Role, true, nil
}

func (s *Service) ensureRole(ctx context.Context, name string) error {
	role, err := s.roles.FindRoleByName(ctx, name)
	if err != nil {
		return err
	}
	if role == nil {
		return internal.NewValidationFieldError("role", fmt.Sprintf("Role %s does not exist", name), internal.ErrCodeUnknownRole)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if isSuperAdmin(dto.Role) {
		return nil, reservedUser("Cannot create super_admin user")
	}
	if err := s.ensureRole(ctx, dto.Role); err != nil {
		return nil, err
	}

	email := NormalizeEmail(dto.Email)
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if existing != nil {
		return nil, userExists(email)
	}

	record := &userDatamodel.User{
		FirstName: dto.FirstName,
		LastName:  dto.LastName,
		Email:     email,
		Role:      dto.Role,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, userExists(email)
		}
		s.logger.Error("failed to create user", "email", email, "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user created", "user_id", record.ID, "role", record.Role)
	return FromDataModel(record), nil
}

func (s *Service) FindAll(ctx context.Context) ([]*User, error) {
	records, err := s.repo.FindAll(ctx, permission.RoleSuperAdmin)
	if err != nil {
		return nil, internal.NewInternalError("failed to list users", err)
	}

	users := make([]*User, 0, len(records))
	for _, r := range records {
		users = append(users, FromDataModel(r))
	}
	return users, nil
}

// FindOne hides the super admin behind NotFound.
func (s *Service) FindOne(ctx context.Context, id int64) (*User, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if record == nil || isSuperAdmin(record.Role) {
		return nil, errUserNotFound
	}
	return FromDataModel(record), nil
}

func (s *Service) Update(ctx context.Context, id int64, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up user", err)
	}
	if record == nil {
		return nil, errUserNotFound
	}
	if isSuperAdmin(record.Role) {
		return nil, reservedUser("Cannot edit super_admin user")
	}

	if dto.Role != nil {
		if isSuperAdmin(*dto.Role) {
			return nil, reservedUser("Cannot assign super_admin role")
		}
		if *dto.Role != record.Role {
			if err := s.ensureRole(ctx, *dto.Role); err != nil {
				return nil, err
			}
		}
		record.Role = *dto.Role
	}

	if dto.Email != nil {
		email := NormalizeEmail(*dto.Email)
		if email != record.Email {
			other, err := s.repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, internal.NewInternalError("failed to look up user", err)
			}
			if other != nil && other.ID != id {
				return nil, userExists(email)
			}
			record.Email = email
		}
	}
	if dto.FirstName != nil {
		record.FirstName = *dto.FirstName
	}
	if dto.LastName != nil {
		record.LastName = *dto.LastName
	}

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, userExists(record.Email)
		}
		return nil, internal.NewInternalError("failed to update user", err)
	}

	s.logger.Info("user updated", "user_id", id)
	return FromDataModel(record), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to look up user", err)
	}
	if record == nil {
		return errUserNotFound
	}
	if isSuperAdmin(record.Role) {
		return reservedUser("Cannot delete super_admin user")
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete user", err)
	}
	if !deleted {
		return errUserNotFound
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}
