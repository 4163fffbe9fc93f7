package postgres

import (
	"errors"

	"github.com/frahmantamala/access-control/internal/permission"
	"gorm.io/gorm"
)

// translate maps gorm's dialect-neutral errors (gorm.Config.TranslateError)
// to the repository errors the service understands.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(permission.ErrDuplicateName, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.Join(permission.ErrUnknownPermission, err)
	default:
		return err
	}
}
