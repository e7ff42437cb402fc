package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, "UPDATE t SET a=$1, b=$2 WHERE id=$3", pg.rebind("UPDATE t SET a=?, b=? WHERE id=?"))

	lite := &Store{dialect: SQLite}
	assert.Equal(t, "SELECT a FROM t WHERE id=?", lite.rebind("SELECT a FROM t WHERE id=?"))
}
