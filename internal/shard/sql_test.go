package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRejectsNonSelect(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Query("DELETE FROM kv", nil)
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestQueryRejectsReservedKeyword(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Query("SELECT * FROM kv; DROP TABLE kv", nil)
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestQueryRejectsReservedTable(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.KVSet("a", "1", KVSetOptions{})
	require.NoError(t, err)

	_, err = sh.Query("SELECT key, value FROM kv WHERE key = ?", []any{"a"})
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestQueryReturnsRowsAndColumnsForUserTable(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Execute("CREATE TABLE scratch (id INTEGER PRIMARY KEY, name TEXT)", nil)
	require.NoError(t, err)
	_, err = sh.Execute("INSERT INTO scratch (id, name) VALUES (1, 'a')", nil)
	require.NoError(t, err)

	result, err := sh.Query("SELECT id, name FROM scratch WHERE id = ?", []any{1})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, 1, result.RowCount)
}

func TestExecuteRejectsPragma(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Execute("PRAGMA journal_mode = DELETE", nil)
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestExecuteRejectsDropOfSystemTable(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Execute("DROP TABLE kv", nil)
	assert.ErrorIs(t, err, ErrRejectedStatement)
}

func TestExecuteAllowsUserTableMutation(t *testing.T) {
	sh := newTestShard(t)
	_, err := sh.Execute("CREATE TABLE scratch (id INTEGER PRIMARY KEY)", nil)
	require.NoError(t, err)

	n, err := sh.Execute("INSERT INTO scratch (id) VALUES (1)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestSchemaListsUserTables(t *testing.T) {
	sh := newTestShard(t)
	tables, err := sh.Schema()
	require.NoError(t, err)
	assert.NotEmpty(t, tables)
}
