package permission

import "time"

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Resource    string    `gorm:"column:resource"`
	Action      string    `gorm:"column:action"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsUniversal bool      `gorm:"column:is_universal;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Role) TableName() string {
	return "roles"
}

// RolePermission is keyed by the (role_id, permission_id) pair.
type RolePermission struct {
	RoleID       int64     `gorm:"column:role_id;primaryKey;autoIncrement:false"`
	PermissionID int64     `gorm:"column:permission_id;primaryKey;autoIncrement:false;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// PermissionLink is the projection of a role_permissions row joined to its permission name.
type PermissionLink struct {
	PermissionID int64  `gorm:"column:permission_id"`
	Name         string `gorm:"column:name"`
}
