package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePermissionCreated       = "permission.created"
	EventTypePermissionUpdated       = "permission.updated"
	EventTypePermissionDeleted       = "permission.deleted"
	EventTypeRoleCreated             = "role.created"
	EventTypeRoleUpdated             = "role.updated"
	EventTypeRoleDeleted             = "role.deleted"
	EventTypeRolePermissionsReplaced = "role.permissions.replaced"
	EventTypeAuthzSeeded             = "authz.seeded"
	EventTypeTokenRevoked            = "token.revoked"
)

// AllAuthzEventTypes lists every event type the access-control core publishes.
var AllAuthzEventTypes = []string{
	EventTypePermissionCreated,
	EventTypePermissionUpdated,
	EventTypePermissionDeleted,
	EventTypeRoleCreated,
	EventTypeRoleUpdated,
	EventTypeRoleDeleted,
	EventTypeRolePermissionsReplaced,
	EventTypeAuthzSeeded,
	EventTypeTokenRevoked,
}

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

type PermissionEvent struct {
	BaseEvent
	PermissionID int64  `json:"permission_id"`
	Name         string `json:"name"`
}

func NewPermissionEvent(eventType string, permissionID int64, name string) *PermissionEvent {
	return &PermissionEvent{
		BaseEvent: newBaseEvent(eventType, map[string]interface{}{
			"permission_id": permissionID,
			"name":          name,
		}),
		PermissionID: permissionID,
		Name:         name,
	}
}

type RoleEvent struct {
	BaseEvent
	RoleID   int64  `json:"role_id"`
	Name     string `json:"name"`
	Previous string `json:"previous,omitempty"`
}

func NewRoleEvent(eventType string, roleID int64, name, previous string) *RoleEvent {
	data := map[string]interface{}{
		"role_id": roleID,
		"name":    name,
	}
	if previous != "" {
		data["previous"] = previous
	}
	return &RoleEvent{
		BaseEvent: newBaseEvent(eventType, data),
		RoleID:    roleID,
		Name:      name,
		Previous:  previous,
	}
}

type RolePermissionsReplacedEvent struct {
	BaseEvent
	RoleID        int64   `json:"role_id"`
	RoleName      string  `json:"role_name"`
	PermissionIDs []int64 `json:"permission_ids"`
}

func NewRolePermissionsReplacedEvent(roleID int64, roleName string, permissionIDs []int64) *RolePermissionsReplacedEvent {
	return &RolePermissionsReplacedEvent{
		BaseEvent: newBaseEvent(EventTypeRolePermissionsReplaced, map[string]interface{}{
			"role_id":        roleID,
			"role_name":      roleName,
			"permission_ids": permissionIDs,
		}),
		RoleID:        roleID,
		RoleName:      roleName,
		PermissionIDs: permissionIDs,
	}
}

type SeededEvent struct {
	BaseEvent
	Permissions int `json:"permissions"`
	Roles       int `json:"roles"`
}

func NewSeededEvent(permissions, roles int) *SeededEvent {
	return &SeededEvent{
		BaseEvent: newBaseEvent(EventTypeAuthzSeeded, map[string]interface{}{
			"permissions": permissions,
			"roles":       roles,
		}),
		Permissions: permissions,
		Roles:       roles,
	}
}

// TokenRevokedEvent never carries the token itself.
type TokenRevokedEvent struct {
	BaseEvent
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewTokenRevokedEvent(subject string, expiresAt time.Time) *TokenRevokedEvent {
	return &TokenRevokedEvent{
		BaseEvent: newBaseEvent(EventTypeTokenRevoked, map[string]interface{}{
			"subject":    subject,
			"expires_at": expiresAt,
		}),
		Subject:   subject,
		ExpiresAt: expiresAt,
	}
}
