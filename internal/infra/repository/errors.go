package repository

import (
	"errors"

	repo "orderapp/internal/repository"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	mysqlDuplicateEntry  uint16 = 1062
	mysqlRowIsReferenced uint16 = 1451
	mysqlNoReferencedRow uint16 = 1452
)

// ドライバ固有のエラーを repository のエラーにそろえる
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Join(repo.ErrConflict, err)
		case pgForeignKeyViolation:
			return errors.Join(repo.ErrReferenced, err)
		}
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return errors.Join(repo.ErrConflict, err)
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return errors.Join(repo.ErrReferenced, err)
		}
	}
	return err
}
