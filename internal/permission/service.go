package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/access-control/internal"
	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
	"github.com/frahmantamala/access-control/internal/core/events"
)

// Lookups return (nil, nil) when no row matches.
type PermissionRepository interface {
	FindAll(ctx context.Context) ([]*permissionDatamodel.Permission, error)
	FindByID(ctx context.Context, id int64) (*permissionDatamodel.Permission, error)
	FindByName(ctx context.Context, name string) (*permissionDatamodel.Permission, error)
	Names(ctx context.Context) ([]string, error)
	Create(ctx context.Context, p *permissionDatamodel.Permission) error
	Update(ctx context.Context, p *permissionDatamodel.Permission) error
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id int64) (bool, error)
	// EnsureByName inserts p unless a permission with the same name exists.
	EnsureByName(ctx context.Context, p *permissionDatamodel.Permission) error
}

type RoleRepository interface {
	FindAll(ctx context.Context) ([]*permissionDatamodel.Role, error)
	FindByID(ctx context.Context, id int64) (*permissionDatamodel.Role, error)
	FindByName(ctx context.Context, name string) (*permissionDatamodel.Role, error)
	Create(ctx context.Context, r *permissionDatamodel.Role) error
	Update(ctx context.Context, r *permissionDatamodel.Role) error
	Delete(ctx context.Context, id int64) (bool, error)
	EnsureByName(ctx context.Context, r *permissionDatamodel.Role) error
}

type LinkRepository interface {
	GetLinks(ctx context.Context, roleID int64) ([]permissionDatamodel.PermissionLink, error)
	// ReplaceLinks swaps the role's whole link set atomically.
	ReplaceLinks(ctx context.Context, roleID int64, permissionIDs []int64) error
	EnsureLink(ctx context.Context, roleID, permissionID int64) error
	DeleteByRole(ctx context.Context, roleID int64) error
	DeleteByPermission(ctx context.Context, permissionID int64) error
}

type Service struct {
	permissions PermissionRepository
	roles       RoleRepository
	links       LinkRepository
	cache       *ResolutionCache
	publisher   events.Publisher
	logger      *slog.Logger
}

// NewService wires the engine. publisher may be nil.
func NewService(permissions PermissionRepository, roles RoleRepository, links LinkRepository, cache *ResolutionCache, publisher events.Publisher, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NewResolutionCache(DefaultCacheTTL)
	}
	return &Service{
		permissions: permissions,
		roles:       roles,
		links:       links,
		cache:       cache,
		publisher:   publisher,
		logger:      logger,
	}
}

var (
	errPermissionNotFound = internal.NewNotFoundError("Permission not found", internal.ErrCodePermissionNotFound)
	errRoleNotFound       = internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
)

func permissionExists(name string) *internal.AppError {
	return internal.NewConflictError(fmt.Sprintf("Permission with name %s exists", name), internal.ErrCodePermissionExists)
}

func roleExists(name string) *internal.AppError {
	return internal.NewConflictError(fmt.Sprintf("Role with name %s exists", name), internal.ErrCodeRoleExists)
}

func reservedRole(action string) *internal.AppError {
	return internal.NewForbiddenError(fmt.Sprintf("Cannot %s %s role", action, RoleSuperAdmin), internal.ErrCodeReservedRole)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

// ----------------- RESOLUTION -----------------

// GetPermissionsForRole resolves a role name to its permission names. The
// reserved role always gets every current permission and is never cached.
// An unknown role resolves to an empty set and is not cached either.
func (s *Service) GetPermissionsForRole(ctx context.Context, roleName string) ([]string, error) {
	if IsReservedRoleName(roleName) {
		return s.allPermissionNames(ctx)
	}
	return s.cache.Resolve(ctx, roleName, func(ctx context.Context) ([]string, bool, error) {
		return s.computeRolePermissions(ctx, roleName)
	})
}

// computeRolePermissions runs inside the cache's compute, so the role lookup
// is covered by the same invalidation check as the link query.
func (s *Service) computeRolePermissions(ctx context.Context, roleName string) ([]string, bool, error) {
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return nil, false, internal.NewInternalError("failed to look up role", err)
	}
	if role == nil {
		return []string{}, false, nil
	}
	if RoleFromDataModel(role).IsReserved() {
		names, err := s.allPermissionNames(ctx)
		return names, false, err
	}

	links, err := s.links.GetLinks(ctx, role.ID)
	if err != nil {
		return nil, false, internal.NewInternalError("failed to load role permissions", err)
	}
	resolved := LinksFromDataModel(links)
	names := make([]string, 0, len(resolved))
	for _, l := range resolved {
		names = append(names, l.Name)
	}
	return names, true, nil
}

func (s *Service) allPermissionNames(ctx context.Context) ([]string, error) {
	names, err := s.permissions.Names(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// HasPermission is an exact membership test.
func (s *Service) HasPermission(permissions []string, required string) bool {
	for _, p := range permissions {
		if p == required {
			return true
		}
	}
	return false
}

// ----------------- PERMISSIONS -----------------

func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.permissions.FindByName(ctx, dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up permission", err)
	}
	if existing != nil {
		return nil, permissionExists(dto.Name)
	}

	record := &permissionDatamodel.Permission{
		Name:        dto.Name,
		Resource:    dto.Resource,
		Action:      dto.Action,
		Description: dto.Description,
	}
	if err := s.permissions.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, permissionExists(dto.Name)
		}
		s.logger.Error("failed to create permission", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create permission", err)
	}

	s.logger.Info("permission created", "permission_id", record.ID, "name", record.Name)
	s.publish(ctx, events.NewPermissionEvent(events.EventTypePermissionCreated, record.ID, record.Name))

	return PermissionFromDataModel(record), nil
}

func (s *Service) FindAllPermissions(ctx context.Context) ([]*Permission, error) {
	records, err := s.permissions.FindAll(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list permissions", err)
	}

	out := make([]*Permission, 0, len(records))
	for _, r := range records {
		out = append(out, PermissionFromDataModel(r))
	}
	return out, nil
}

func (s *Service) FindPermission(ctx context.Context, id int64) (*Permission, error) {
	record, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up permission", err)
	}
	if record == nil {
		return nil, errPermissionNotFound
	}
	return PermissionFromDataModel(record), nil
}

func (s *Service) UpdatePermission(ctx context.Context, id int64, dto UpdatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up permission", err)
	}
	if record == nil {
		return nil, errPermissionNotFound
	}

	renamed := dto.Name != nil && *dto.Name != record.Name
	if renamed {
		other, err := s.permissions.FindByName(ctx, *dto.Name)
		if err != nil {
			return nil, internal.NewInternalError("failed to look up permission", err)
		}
		if other != nil && other.ID != id {
			return nil, permissionExists(*dto.Name)
		}
		record.Name = *dto.Name
	}
	if dto.Resource != nil {
		record.Resource = *dto.Resource
	}
	if dto.Action != nil {
		record.Action = *dto.Action
	}
	if dto.Description != nil {
		record.Description = *dto.Description
	}

	if err := s.permissions.Update(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, permissionExists(record.Name)
		}
		return nil, internal.NewInternalError("failed to update permission", err)
	}

	if renamed {
		s.cache.InvalidateAll()
	}

	s.publish(ctx, events.NewPermissionEvent(events.EventTypePermissionUpdated, record.ID, record.Name))
	return PermissionFromDataModel(record), nil
}

// DeletePermission removes the permission and every link to it, then clears the whole cache.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	record, err := s.permissions.FindByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to look up permission", err)
	}
	if record == nil {
		return errPermissionNotFound
	}

	deleted, err := s.permissions.Delete(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete permission", err)
	}
	if !deleted {
		return errPermissionNotFound
	}
	if err := s.links.DeleteByPermission(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete permission links", err)
	}

	s.cache.InvalidateAll()

	s.logger.Info("permission deleted", "permission_id", id, "name", record.Name)
	s.publish(ctx, events.NewPermissionEvent(events.EventTypePermissionDeleted, id, record.Name))
	return nil
}

// ----------------- ROLES -----------------

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if IsReservedRoleName(dto.Name) {
		return nil, reservedRole("create")
	}

	existing, err := s.roles.FindByName(ctx, dto.Name)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if existing != nil {
		return nil, roleExists(dto.Name)
	}

	record := &permissionDatamodel.Role{Name: dto.Name, Description: dto.Description}
	if err := s.roles.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, roleExists(dto.Name)
		}
		s.logger.Error("failed to create role", "name", dto.Name, "error", err)
		return nil, internal.NewInternalError("failed to create role", err)
	}

	s.logger.Info("role created", "role_id", record.ID, "name", record.Name)
	s.publish(ctx, events.NewRoleEvent(events.EventTypeRoleCreated, record.ID, record.Name, ""))

	return RoleFromDataModel(record), nil
}

func (s *Service) FindAllRoles(ctx context.Context) ([]*Role, error) {
	records, err := s.roles.FindAll(ctx)
	if err != nil {
		return nil, internal.NewInternalError("failed to list roles", err)
	}

	out := make([]*Role, 0, len(records))
	for _, r := range records {
		out = append(out, RoleFromDataModel(r))
	}
	return out, nil
}

func (s *Service) FindRole(ctx context.Context, id int64) (*Role, error) {
	record, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return nil, errRoleNotFound
	}
	return RoleFromDataModel(record), nil
}

// FindRoleByName returns (nil, nil) when no role has that name.
func (s *Service) FindRoleByName(ctx context.Context, name string) (*Role, error) {
	record, err := s.roles.FindByName(ctx, name)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return nil, nil
	}
	return RoleFromDataModel(record), nil
}

func (s *Service) UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	record, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return nil, errRoleNotFound
	}
	if RoleFromDataModel(record).IsReserved() {
		return nil, reservedRole("update")
	}

	previous := record.Name
	if dto.Name != nil && *dto.Name != record.Name {
		if IsReservedRoleName(*dto.Name) {
			return nil, reservedRole("rename to")
		}
		other, err := s.roles.FindByName(ctx, *dto.Name)
		if err != nil {
			return nil, internal.NewInternalError("failed to look up role", err)
		}
		if other != nil && other.ID != id {
			return nil, roleExists(*dto.Name)
		}
		record.Name = *dto.Name
	}
	if dto.Description != nil {
		record.Description = *dto.Description
	}

	if err := s.roles.Update(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, roleExists(record.Name)
		}
		return nil, internal.NewInternalError("failed to update role", err)
	}

	s.cache.Invalidate(previous)
	if record.Name != previous {
		s.cache.Invalidate(record.Name)
		s.logger.Info("role renamed", "role_id", id, "from", previous, "to", record.Name)
		s.publish(ctx, events.NewRoleEvent(events.EventTypeRoleUpdated, id, record.Name, previous))
	} else {
		s.publish(ctx, events.NewRoleEvent(events.EventTypeRoleUpdated, id, record.Name, ""))
	}

	return RoleFromDataModel(record), nil
}

func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	record, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return errRoleNotFound
	}
	if RoleFromDataModel(record).IsReserved() {
		return reservedRole("delete")
	}

	deleted, err := s.roles.Delete(ctx, id)
	if err != nil {
		return internal.NewInternalError("failed to delete role", err)
	}
	if !deleted {
		return errRoleNotFound
	}
	if err := s.links.DeleteByRole(ctx, id); err != nil {
		return internal.NewInternalError("failed to delete role links", err)
	}

	s.cache.Invalidate(record.Name)

	s.logger.Info("role deleted", "role_id", id, "name", record.Name)
	s.publish(ctx, events.NewRoleEvent(events.EventTypeRoleDeleted, id, record.Name, ""))
	return nil
}

// ----------------- LINKS -----------------

// GetRolePermissions reads the links straight from storage, bypassing the cache.
func (s *Service) GetRolePermissions(ctx context.Context, roleID int64) ([]Link, error) {
	record, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return nil, errRoleNotFound
	}
	return s.roleLinks(ctx, record)
}

func (s *Service) roleLinks(ctx context.Context, role *permissionDatamodel.Role) ([]Link, error) {
	if RoleFromDataModel(role).IsReserved() {
		all, err := s.permissions.FindAll(ctx)
		if err != nil {
			return nil, internal.NewInternalError("failed to list permissions", err)
		}
		out := make([]Link, 0, len(all))
		for _, p := range all {
			out = append(out, Link{PermissionID: p.ID, Name: p.Name})
		}
		return out, nil
	}

	links, err := s.links.GetLinks(ctx, role.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load role permissions", err)
	}
	return LinksFromDataModel(links), nil
}

// SetRolePermissions replaces the role's permission set and returns the stored result.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Link, error) {
	record, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, internal.NewInternalError("failed to look up role", err)
	}
	if record == nil {
		return nil, errRoleNotFound
	}
	if RoleFromDataModel(record).IsReserved() {
		return nil, reservedRole("change permissions of")
	}

	ids := dedupe(permissionIDs)
	if err := s.links.ReplaceLinks(ctx, roleID, ids); err != nil {
		if errors.Is(err, ErrUnknownPermission) {
			return nil, errPermissionNotFound
		}
		s.logger.Error("failed to replace role permissions", "role_id", roleID, "error", err)
		return nil, internal.NewInternalError("failed to replace role permissions", err)
	}

	s.cache.Invalidate(record.Name)

	s.logger.Info("role permissions replaced", "role_id", roleID, "role", record.Name, "count", len(ids))
	s.publish(ctx, events.NewRolePermissionsReplacedEvent(roleID, record.Name, ids))

	return s.roleLinks(ctx, record)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
