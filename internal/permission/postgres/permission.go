package postgres

import (
	"context"
	"errors"

	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
	"github.com/frahmantamala/access-control/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.PermissionRepository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) FindAll(ctx context.Context) ([]*permissionDatamodel.Permission, error) {
	var permissions []*permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Order("name ASC").Find(&permissions).Error
	return permissions, err
}

func (r *PermissionRepository) FindByID(ctx context.Context, id int64) (*permissionDatamodel.Permission, error) {
	var p permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) FindByName(ctx context.Context, name string) (*permissionDatamodel.Permission, error) {
	var p permissionDatamodel.Permission
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PermissionRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&permissionDatamodel.Permission{}).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

func (r *PermissionRepository) Create(ctx context.Context, p *permissionDatamodel.Permission) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PermissionRepository) Update(ctx context.Context, p *permissionDatamodel.Permission) error {
	err := r.db.WithContext(ctx).
		Model(p).
		Select("name", "resource", "action", "description", "updated_at").
		Updates(p).Error
	return translate(err)
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&permissionDatamodel.Permission{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PermissionRepository) EnsureByName(ctx context.Context, p *permissionDatamodel.Permission) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(p).Error
	return translate(err)
}
