package server

import (
	"os"

	"github.com/beaconhq/beacon/server/gstorage"
	"github.com/beaconhq/beacon/server/models"
	"github.com/beaconhq/beacon/shared"
	"github.com/beaconhq/beacon/utils"
	"github.com/go-co-op/gocron"
)

var (
	gStorageClient *gstorage.GStorage
	sqliteFilePath string
)

// setupBackupAndSync readies the storage client & pulls the last remote
// backup down when the local db file is missing. Must run before the db is
// opened. Returns whether backups are enabled, so shutdown knows to take a
// final copy.
func setupBackupAndSync(config *shared.ServerConfig, configDir string) bool {
	if !config.Google.Storage.EnableSqliteBackupAndSync {
		logg.Info("Sqlite backup & sync is disabled")
		return false
	}

	var err error
	sqliteFilePath, err = models.DbFilePath(configDir)
	fatalOnError(err)

	gStorageClient, err = gstorage.NewGStorage(
		config.Google.ApplicationCredentials,
		config.Google.Storage.Bucket,
		config.Google.Storage.Prefix)
	fatalOnError(err)

	restoreSqliteDb()
	return true
}

// scheduleBackups registers the recurring off-site copy of the encrypted
// sqlite db.
func scheduleBackups(cronScheduler *gocron.Scheduler, schedule string) {
	_, err := cronScheduler.Cron(schedule).
		Tag("backup_sqlite_db").
		Do(backupSqliteDb)
	fatalOnError(err)

	logg.Infof("Sqlite backups scheduled with '%v'", schedule)
}

func backupSqliteDb() {
	if !utils.FileExist(sqliteFilePath) {
		logg.Warnf("sqlite backup: %v does not exist yet, nothing to upload", sqliteFilePath)
		return
	}

	if err := gStorageClient.UploadFile(sqliteFilePath); err != nil {
		logg.Errorf("sqlite backup: %v", err)
	}
}

// restoreSqliteDb downloads the last backup onto a fresh host. A present
// local db always wins; the remote copy is only a seed.
func restoreSqliteDb() {
	if utils.FileExist(sqliteFilePath) {
		return
	}

	err := gStorageClient.DownloadFile(models.DB_NAME, sqliteFilePath)
	if err == gstorage.ErrObjectNotExist {
		logg.Infof("sqlite restore: no remote backup found, starting with a fresh db")
		return
	}
	if err != nil {
		logg.Errorf("sqlite restore: %v, starting with a fresh db", err)

		// A half-written file must not be opened as a db
		if removeErr := os.Remove(sqliteFilePath); removeErr != nil && !os.IsNotExist(removeErr) {
			logg.Errorf("sqlite restore: removing partial download: %v", removeErr)
		}
	}
}
