package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/beaconhq/beacon/server/models"
	"github.com/beaconhq/beacon/shared"
	"github.com/beaconhq/beacon/utils"
	"github.com/go-co-op/gocron"
	"github.com/go-playground/validator"
	"github.com/spf13/viper"
)

// ---------------------------------------------------------------------------------//
// Handler Helper functions
// --------------------------------------------------------------------------------//

func writeResponse(rw http.ResponseWriter, payLoad ResponsePayload, statusCode int) {
	if statusCode >= http.StatusInternalServerError {
		logg.Error(payLoad.Errors)
	} else if statusCode >= http.StatusBadRequest {
		logg.Info(payLoad.Errors)
	}

	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(payLoad)
}

func decodeJSONBody(rw http.ResponseWriter, r *http.Request, data interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(data)
	if err != nil {
		writeResponse(rw, ResponsePayload{Errors: []string{"invalid request body"}}, http.StatusBadRequest)
		return false
	}
	return true
}

// validatePayload runs struct validation & writes a 400 with one error
// line per failed field when it doesn't hold.
func validatePayload(rw http.ResponseWriter, data interface{}) bool {
	errs := validate.Struct(data)
	if errs != nil {
		writeResponse(rw, ResponsePayload{Errors: strings.Split(errs.Error(), "\n")}, http.StatusBadRequest)
		return false
	}
	return true
}

func RegisterValidators(validate *validator.Validate) error {
	return validate.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return models.IsValidContactEmail(fl.Field().String())
	})
}

// ---------------------------------------------------------------------------------//
// Server Helper functions
// --------------------------------------------------------------------------------//

func parseServerConfig(config *viper.Viper) *shared.ServerConfig {
	serverConfig := &shared.ServerConfig{}

	err := config.Unmarshal(serverConfig)
	fatalOnError(err)

	err = validate.Struct(serverConfig)
	fatalOnError(err)

	return serverConfig
}

func serve(server *http.Server) {
	logg.Infof("Beacon server is listening on port:%v", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Fatal(err)
	}
}

func cleanup(cronScheduler *gocron.Scheduler, server *http.Server, backupDb bool) {
	// Stop the escalation sweep & any other scheduled jobs first, so no
	// broadcast fires mid-shutdown
	cronScheduler.Stop()

	if backupDb {
		backupSqliteDb()
	}

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutDown); err != nil {
		logg.Fatalf("Beacon server shutdown failed:%+s", err)
	}

	logg.Infof("Beacon server stopped properly")
}

// configDirectory retrieves the directory to store beacon configs & the
// sqlite db. Or logs an error message and then calls os.Exit if it's
// unable to.
func configDirectory(devMode bool) string {
	// Use 'beacon' folder in home directory for prod
	configFolderName := "beacon"
	rootDir, err := os.UserHomeDir()
	fatalOnError(err)

	// Use 'dev' folder in current directory for dev mode
	if devMode {
		configFolderName = "dev"
		rootDir, err = os.Getwd()
		fatalOnError(err)
	}

	configDir := filepath.Join(rootDir, configFolderName)

	err = utils.CreateDirIfNotExist(configDir)
	fatalOnError(err)

	return configDir
}

func fatalOnError(err error) {
	if err != nil {
		logg.Fatal(err)
	}
}
