package database

import (
	"errors"
	"fmt"
	"testing"

	"branch-pos/internal/apperr"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"not found", gorm.ErrRecordNotFound, apperr.KindNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, apperr.KindConflict},
		{"postgres unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), apperr.KindConflict},
		{"mysql unique", &mysql.MySQLError{Number: 1062}, apperr.KindConflict},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, apperr.KindReference},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, apperr.KindReference},
		{"already classified", apperr.InsufficientStock("no"), apperr.KindInsufficientStock},
		{"anything else", errors.New("disk on fire"), apperr.KindInternal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, apperr.KindOf(Translate(c.err, "product")))
		})
	}
	assert.NoError(t, Translate(nil, "product"))
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(driver, "dsn")
		assert.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}
	_, err := Dialector("oracle", "dsn")
	assert.Error(t, err)
}
