package postgres

import (
	"context"

	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
	"github.com/frahmantamala/access-control/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LinkRepository struct {
	db *gorm.DB
}

func NewLinkRepository(db *gorm.DB) permission.LinkRepository {
	return &LinkRepository{db: db}
}

// GetLinks joins the role's links to permission names. Links whose permission
// row is gone drop out of the inner join.
func (r *LinkRepository) GetLinks(ctx context.Context, roleID int64) ([]permissionDatamodel.PermissionLink, error) {
	var links []permissionDatamodel.PermissionLink
	err := r.db.WithContext(ctx).
		Table("role_permissions AS rp").
		Select("rp.permission_id, p.name").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("rp.role_id = ?", roleID).
		Order("p.name ASC").
		Scan(&links).Error
	return links, err
}

func (r *LinkRepository) ReplaceLinks(ctx context.Context, roleID int64, permissionIDs []int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&permissionDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if len(permissionIDs) == 0 {
			return nil
		}

		rows := make([]permissionDatamodel.RolePermission, 0, len(permissionIDs))
		for _, id := range permissionIDs {
			rows = append(rows, permissionDatamodel.RolePermission{RoleID: roleID, PermissionID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	return translate(err)
}

func (r *LinkRepository) EnsureLink(ctx context.Context, roleID, permissionID int64) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(&permissionDatamodel.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
	return translate(err)
}

func (r *LinkRepository) DeleteByRole(ctx context.Context, roleID int64) error {
	return r.db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Delete(&permissionDatamodel.RolePermission{}).Error
}

func (r *LinkRepository) DeleteByPermission(ctx context.Context, permissionID int64) error {
	return r.db.WithContext(ctx).
		Where("permission_id = ?", permissionID).
		Delete(&permissionDatamodel.RolePermission{}).Error
}
