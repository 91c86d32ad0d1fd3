package db

import (
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
	sqliteUniqueFailure = "UNIQUE constraint failed"
)

// IsDuplicateKey reports whether err came from a unique index rejecting a write.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}

	var mysqlErr *mysqldrv.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	return strings.Contains(err.Error(), sqliteUniqueFailure)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
