package db

import (
	"errors"
	"fmt"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pq.Error{Code: "23505"}, true},
		{"postgres fk", &pq.Error{Code: "23503"}, false},
		{"mysql duplicate", &mysqldrv.MySQLError{Number: 1062}, true},
		{"mysql other", &mysqldrv.MySQLError{Number: 1452}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: contacts.phone_number"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKey(tc.err))
		})
	}
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "sqlite", "mysql"} {
		d, err := Dialector(driver, "crm:secret@tcp(localhost:3306)/crm")
		assert.NoError(t, err, driver)
		assert.NotNil(t, d, driver)
	}

	_, err := Dialector("oracle", "")
	assert.Error(t, err)
}
