package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrations_CreatesExtractionsTable(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "nested", "runs.db")

	require.NoError(t, RunMigrations(dbFile, "migrations"))
	// a second run has nothing to apply
	require.NoError(t, RunMigrations(dbFile, "migrations"))

	conn, err := NewSQLiteDB(dbFile)
	require.NoError(t, err)
	defer conn.Close()

	var name string
	err = conn.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'extractions'`)
	require.NoError(t, err)
	assert.Equal(t, "extractions", name)
}

func TestRunMigrations_MissingDirectory(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "runs.db")
	assert.Error(t, RunMigrations(dbFile, filepath.Join(t.TempDir(), "nope")))
}
