package postgres

import (
	"context"
	"errors"

	permissionDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/permission"
	"github.com/frahmantamala/access-control/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) permission.RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) FindAll(ctx context.Context) ([]*permissionDatamodel.Role, error) {
	var roles []*permissionDatamodel.Role
	err := r.db.WithContext(ctx).Order("name ASC").Find(&roles).Error
	return roles, err
}

func (r *RoleRepository) FindByID(ctx context.Context, id int64) (*permissionDatamodel.Role, error) {
	var role permissionDatamodel.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*permissionDatamodel.Role, error) {
	var role permissionDatamodel.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *permissionDatamodel.Role) error {
	return translate(r.db.WithContext(ctx).Create(role).Error)
}

func (r *RoleRepository) Update(ctx context.Context, role *permissionDatamodel.Role) error {
	err := r.db.WithContext(ctx).
		Model(role).
		Select("name", "description", "updated_at").
		Updates(role).Error
	return translate(err)
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&permissionDatamodel.Role{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RoleRepository) EnsureByName(ctx context.Context, role *permissionDatamodel.Role) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(role).Error
	return translate(err)
}
