package permission

import (
	"errors"
	"strings"
	"time"

	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
)

// Permission names. Add new ones here and to AllPermissions so seeding picks them up.
const (
	WordsRead        = "words:read"
	WordsWrite       = "words:write"
	TestsRead        = "tests:read"
	TestsWrite       = "tests:write"
	UsersRead        = "users:read"
	UsersWrite       = "users:write"
	RolesRead        = "roles:read"
	RolesWrite       = "roles:write"
	PermissionsRead  = "permissions:read"
	PermissionsWrite = "permissions:write"
)

const (
	RoleStudent    = "student"
	RoleTeacher    = "teacher"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

var AllPermissions = []string{
	WordsRead,
	WordsWrite,
	TestsRead,
	TestsWrite,
	UsersRead,
	UsersWrite,
	RolesRead,
	RolesWrite,
	PermissionsRead,
	PermissionsWrite,
}

var AllRoles = []string{RoleStudent, RoleTeacher, RoleAdmin, RoleSuperAdmin}

// Repository errors. Implementations translate driver errors into these.
var (
	ErrDuplicateName     = errors.New("name already exists")
	ErrUnknownPermission = errors.New("referenced permission does not exist")
)

// BaselinePermissions returns the permission subset seeding assigns to each
// non-reserved role. The reserved role has no entry.
func BaselinePermissions() map[string][]string {
	student := []string{WordsRead}
	teacher := append(append([]string{}, student...), WordsWrite, TestsRead, TestsWrite)
	admin := append(append([]string{}, teacher...),
		UsersRead, UsersWrite,
		RolesRead, RolesWrite,
		PermissionsRead, PermissionsWrite,
	)

	return map[string][]string{
		RoleStudent: student,
		RoleTeacher: teacher,
		RoleAdmin:   admin,
	}
}

// IsReservedRoleName reports whether name is the role that implicitly holds every permission.
func IsReservedRoleName(name string) bool {
	return name == RoleSuperAdmin
}

// SplitName derives resource and action from a "resource:action" permission name.
func SplitName(name string) (resource, action string) {
	resource, action, found := strings.Cut(name, ":")
	if !found {
		return name, ""
	}
	return resource, action
}

type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource,omitempty"`
	Action      string    `json:"action,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsUniversal bool      `json:"is_universal"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsReserved is true for the universal role. Rows created before the
// is_universal flag existed are recognised by name.
func (r *Role) IsReserved() bool {
	return r.IsUniversal || IsReservedRoleName(r.Name)
}

// Link is one role-permission association resolved to the permission name.
type Link struct {
	PermissionID int64  `json:"permission_id"`
	Name         string `json:"name"`
}

func PermissionToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func PermissionFromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func RoleToDataModel(r *Role) *permissionDatamodel.Role {
	return &permissionDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsUniversal: r.IsUniversal,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func RoleFromDataModel(r *permissionDatamodel.Role) *Role {
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsUniversal: r.IsUniversal,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func LinksFromDataModel(links []permissionDatamodel.PermissionLink) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Name == "" {
			continue
		}
		out = append(out, Link{PermissionID: l.PermissionID, Name: l.Name})
	}
	return out
}
