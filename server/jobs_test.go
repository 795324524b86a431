package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/beaconhq/beacon/server/models"
	"github.com/stretchr/testify/assert"
)

func TestRestoreSkipsWhenLocalDbExists(t *testing.T) {
	dir := t.TempDir()
	sqliteFilePath = filepath.Join(dir, models.DB_NAME)
	assert.Nil(t, os.WriteFile(sqliteFilePath, []byte("existing db"), 0600))

	// A present local db must win without any storage call - a nil client
	// would panic if one were attempted
	gStorageClient = nil
	restoreSqliteDb()

	contents, err := os.ReadFile(sqliteFilePath)
	assert.Nil(t, err)
	assert.Equal(t, "existing db", string(contents))
}

func TestBackupSkipsWhenLocalDbMissing(t *testing.T) {
	sqliteFilePath = filepath.Join(t.TempDir(), models.DB_NAME)

	gStorageClient = nil
	backupSqliteDb()
}
