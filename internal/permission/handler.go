package permission

import (
	"context"
	"net/http"

	"github.com/frahmantamala/access-control/internal/transport"
)

type ServiceAPI interface {
	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	FindAllPermissions(ctx context.Context) ([]*Permission, error)
	FindPermission(ctx context.Context, id int64) (*Permission, error)
	UpdatePermission(ctx context.Context, id int64, dto UpdatePermissionDTO) (*Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	FindAllRoles(ctx context.Context) ([]*Role, error)
	FindRole(ctx context.Context, id int64) (*Role, error)
	UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	DeleteRole(ctx context.Context, id int64) error

	GetRolePermissions(ctx context.Context, roleID int64) ([]Link, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) ([]Link, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.Service.FindAllPermissions(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: permissions})
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	permission, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreatePermission: service error", "error", err, "name", dto.Name)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, permission)
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	permission, err := h.Service.FindPermission(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, permission)
}

func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto UpdatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	permission, err := h.Service.UpdatePermission(r.Context(), id, dto)
	if err != nil {
		h.Logger.Warn("UpdatePermission: service error", "error", err, "permission_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, permission)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.DeletePermission(r.Context(), id); err != nil {
		h.Logger.Warn("DeletePermission: service error", "error", err, "permission_id", id)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.FindAllRoles(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	role, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreateRole: service error", "error", err, "name", dto.Name)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	role, err := h.Service.FindRole(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	role, err := h.Service.UpdateRole(r.Context(), id, dto)
	if err != nil {
		h.Logger.Warn("UpdateRole: service error", "error", err, "role_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.DeleteRole(r.Context(), id); err != nil {
		h.Logger.Warn("DeleteRole: service error", "error", err, "role_id", id)
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	links, err := h.Service.GetRolePermissions(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolePermissionsResponse{RoleID: id, Permissions: links})
}

func (h *Handler) SetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.PathID(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto SetRolePermissionsDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	links, err := h.Service.SetRolePermissions(r.Context(), id, dto.PermissionIDs)
	if err != nil {
		h.Logger.Warn("SetRolePermissions: service error", "error", err, "role_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolePermissionsResponse{RoleID: id, Permissions: links})
}
