package permission_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/access-control/internal/permission"
	permissionPostgres "github.com/frahmantamala/access-control/internal/permission/postgres"
	"github.com/frahmantamala/access-control/internal/testutil"
	"github.com/frahmantamala/access-control/internal/transport"
	"github.com/frahmantamala/access-control/pkg/logger"
)

var _ = Describe("Permission Handler Integration", func() {
	var (
		service *permission.Service
		router  *chi.Mux
	)

	BeforeEach(func() {
		db, err := testutil.OpenSQLite()
		Expect(err).NotTo(HaveOccurred())

		service = permission.NewService(
			permissionPostgres.NewPermissionRepository(db),
			permissionPostgres.NewRoleRepository(db),
			permissionPostgres.NewLinkRepository(db),
			permission.NewResolutionCache(time.Minute),
			nil,
			logger.Discard(),
		)
		Expect(service.Seed(context.Background())).To(Succeed())

		handler := permission.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		router = chi.NewRouter()
		router.Get("/permissions", handler.ListPermissions)
		router.Post("/permissions", handler.CreatePermission)
		router.Get("/permissions/{id}", handler.GetPermission)
		router.Patch("/permissions/{id}", handler.UpdatePermission)
		router.Delete("/permissions/{id}", handler.DeletePermission)
		router.Get("/roles", handler.ListRoles)
		router.Post("/roles", handler.CreateRole)
		router.Get("/roles/{id}", handler.GetRole)
		router.Patch("/roles/{id}", handler.UpdateRole)
		router.Delete("/roles/{id}", handler.DeleteRole)
		router.Get("/roles/{id}/permissions", handler.GetRolePermissions)
		router.Patch("/roles/{id}/permissions", handler.SetRolePermissions)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp.Error.Code
	}

	roleIDByName := func(name string) string {
		r, err := service.FindRoleByName(context.Background(), name)
		Expect(err).NotTo(HaveOccurred())
		return strconv.FormatInt(r.ID, 10)
	}

	It("should list seeded permissions sorted by name", func() {
		w := do(http.MethodGet, "/permissions", nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp permission.PermissionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Permissions).To(HaveLen(len(permission.AllPermissions)))
		Expect(resp.Permissions[0].Name).To(Equal(permission.PermissionsRead))
	})

	It("should create a permission and answer 409 for a duplicate", func() {
		w := do(http.MethodPost, "/permissions", map[string]string{"name": "reports:read"})
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(http.MethodPost, "/permissions", map[string]string{"name": "reports:read"})
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(errorCode(w)).To(Equal("PERMISSION_EXISTS"))
	})

	It("should answer 400 for malformed bodies and ids", func() {
		w := do(http.MethodPost, "/permissions", map[string]string{"unknown": "x"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = do(http.MethodGet, "/permissions/abc", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal("INVALID_ID"))
	})

	It("should answer 404 for an unknown permission", func() {
		w := do(http.MethodDelete, "/permissions/9999", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 403 when mutating the reserved role", func() {
		id := roleIDByName(permission.RoleSuperAdmin)

		w := do(http.MethodDelete, "/roles/"+id, nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(w)).To(Equal("RESERVED_ROLE"))

		w = do(http.MethodPatch, "/roles/"+id+"/permissions", map[string][]int64{"permission_ids": {}})
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = do(http.MethodPost, "/roles", map[string]string{"name": permission.RoleSuperAdmin})
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("should replace and read back a role's permissions", func() {
		id := roleIDByName(permission.RoleStudent)
		perms, err := service.FindAllPermissions(context.Background())
		Expect(err).NotTo(HaveOccurred())

		var testsRead int64
		for _, p := range perms {
			if p.Name == permission.TestsRead {
				testsRead = p.ID
			}
		}

		w := do(http.MethodPatch, "/roles/"+id+"/permissions", map[string][]int64{"permission_ids": {testsRead}})
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodGet, "/roles/"+id+"/permissions", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp permission.RolePermissionsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Permissions).To(HaveLen(1))
		Expect(resp.Permissions[0].Name).To(Equal(permission.TestsRead))
	})

	It("should answer 404 when setting an unknown permission id", func() {
		id := roleIDByName(permission.RoleStudent)

		w := do(http.MethodPatch, "/roles/"+id+"/permissions", map[string][]int64{"permission_ids": {9999}})
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(errorCode(w)).To(Equal("PERMISSION_NOT_FOUND"))
	})

	It("should reject a missing permission_ids field", func() {
		id := roleIDByName(permission.RoleStudent)

		w := do(http.MethodPatch, "/roles/"+id+"/permissions", map[string]string{})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal("VALIDATION_FAILED"))
	})

	It("should rename and delete an ordinary role", func() {
		w := do(http.MethodPost, "/roles", map[string]string{"name": "reviewer"})
		Expect(w.Code).To(Equal(http.StatusCreated))
		var created permission.Role
		Expect(json.NewDecoder(w.Body).Decode(&created)).To(Succeed())
		id := strconv.FormatInt(created.ID, 10)

		w = do(http.MethodPatch, "/roles/"+id, map[string]string{"name": "auditor"})
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodDelete, "/roles/"+id, nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))

		w = do(http.MethodGet, "/roles/"+id, nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})
