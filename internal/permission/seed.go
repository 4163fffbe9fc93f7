package permission

import (
	"context"
	"fmt"

	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
	"github.com/frahmantamala/access-control/internal/core/events"
)

// Seed inserts the canonical permissions, roles and baseline links when they
// are missing. Existing rows and extra links are left alone, so running it
// again is harmless. The cache is cleared once everything is written.
func (s *Service) Seed(ctx context.Context) error {
	for _, name := range AllPermissions {
		resource, action := SplitName(name)
		record := &permissionDatamodel.Permission{Name: name, Resource: resource, Action: action}
		if err := s.permissions.EnsureByName(ctx, record); err != nil {
			return fmt.Errorf("seed permission %s: %w", name, err)
		}
	}

	for _, name := range AllRoles {
		record := &permissionDatamodel.Role{Name: name, IsUniversal: IsReservedRoleName(name)}
		if err := s.roles.EnsureByName(ctx, record); err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}

	roles, err := s.roles.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: load roles: %w", err)
	}
	permissions, err := s.permissions.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: load permissions: %w", err)
	}

	roleByName := make(map[string]*permissionDatamodel.Role, len(roles))
	for _, r := range roles {
		roleByName[r.Name] = r
	}
	permissionByName := make(map[string]*permissionDatamodel.Permission, len(permissions))
	for _, p := range permissions {
		permissionByName[p.Name] = p
	}

	for _, roleName := range AllRoles {
		role, ok := roleByName[roleName]
		if !ok || RoleFromDataModel(role).IsReserved() {
			continue
		}
		for _, permName := range BaselinePermissions()[roleName] {
			perm, ok := permissionByName[permName]
			if !ok {
				continue
			}
			if err := s.links.EnsureLink(ctx, role.ID, perm.ID); err != nil {
				return fmt.Errorf("seed link %s -> %s: %w", roleName, permName, err)
			}
		}
	}

	s.cache.InvalidateAll()

	s.logger.Info("roles and permissions seeded", "permissions", len(permissions), "roles", len(roles))
	s.publish(ctx, events.NewSeededEvent(len(permissions), len(roles)))
	return nil
}
