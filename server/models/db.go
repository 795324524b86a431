package models

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	sqliteEncrypt "github.com/Daskott/gorm-sqlite-cipher"
	"github.com/beaconhq/beacon/server/logger"
	"github.com/beaconhq/beacon/utils"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const DB_NAME = "beacon.db"

var logg = logger.NewLogger()
var db *gorm.DB

// AutoMigrate auto-migrates the db schema and inserts seed data
func AutoMigrate(passPhrase string, dbRootDir string) error {
	dbDSNVal, err := dbDSN(passPhrase, dbRootDir)
	if err != nil {
		return fmt.Errorf("failed to set sqlite DSN: %v", err)
	}

	err = openDB(dbDSNVal)
	if err != nil {
		return err
	}

	err = db.AutoMigrate(
		&RequestStatus{}, &User{}, &EmergencyContact{},
		&LocationRequest{}, &Notification{},
	)
	if err != nil {
		return err
	}

	populateDBWithSeedData()

	return nil
}

// InitializeTestDb sets up a fresh in-memory db for tests
func InitializeTestDb() {
	err := openDB("file::memory:?cache=shared")
	if err != nil {
		logg.Panic(err)
	}

	err = db.Migrator().DropTable(
		&RequestStatus{}, &User{}, &EmergencyContact{},
		&LocationRequest{}, &Notification{},
	)
	if err != nil {
		logg.Panic(err)
	}

	err = db.AutoMigrate(
		&RequestStatus{}, &User{}, &EmergencyContact{},
		&LocationRequest{}, &Notification{},
	)
	if err != nil {
		logg.Panic(err)
	}

	populateDBWithSeedData()
}

// DbFilePath returns the location of the sqlite db file
func DbFilePath(dbRootDir string) (string, error) {
	dbDir, err := dbDirectory(dbRootDir)
	if err != nil {
		return "", err
	}

	return filepath.Join(dbDir, DB_NAME), nil
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func openDB(dbDSNVal string) error {
	var err error

	db, err = gorm.Open(sqliteEncrypt.Open(dbDSNVal), &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				LogLevel:                  gormLogger.Silent,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	return nil
}

func populateDBWithSeedData() {
	if err := db.First(&RequestStatus{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'RequestStatus'")
		db.Create(&[]RequestStatus{
			{Name: PENDING_REQUEST}, {Name: ACCEPTED_REQUEST},
			{Name: DENIED_REQUEST}, {Name: TIMEOUT_REQUEST},
		})
	}
}

func dbDSN(passPhrase string, dbRootDir string) (string, error) {
	dbFilePath, err := DbFilePath(dbRootDir)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"file:%v?_pragma_key=%s&_pragma_cipher_page_size=4096&_journal_mode=WAL",
		dbFilePath,
		passPhrase,
	), nil
}

func dbDirectory(dbRootDir string) (string, error) {
	dbDir := filepath.Join(dbRootDir, "db")

	err := utils.CreateDirIfNotExist(dbDir)
	if err != nil {
		return "", err
	}

	return dbDir, nil
}
