package postgres

import (
	"context"
	"errors"

	userDatamodel "github.com/frahmantamala/access-control/internal/core/datamodel/user"
	"github.com/frahmantamala/access-control/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Join(user.ErrDuplicateEmail, err)
	}
	return err
}

func (r *UserRepository) FindAll(ctx context.Context, excludeRole string) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role <> ?", excludeRole).
		Order("created_at DESC").
		Order("id DESC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return translate(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).
		Model(u).
		Select("first_name", "last_name", "email", "role", "updated_at").
		Updates(u).Error
	return translate(err)
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&userDatamodel.User{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
