package server

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/beaconhq/beacon/server/cron"
	"github.com/beaconhq/beacon/server/dispatch"
	"github.com/beaconhq/beacon/server/escalation"
	"github.com/beaconhq/beacon/server/logger"
	"github.com/beaconhq/beacon/server/mailer"
	"github.com/beaconhq/beacon/server/models"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

var (
	logg     = logger.NewLogger()
	validate = validator.New()

	dispatcher *dispatch.Dispatcher
	mailClient mailer.Mailer
)

func init() {
	fatalOnError(RegisterValidators(validate))
}

// Start brings up the full server: persistence, mailer, the escalation
// sweep & backup jobs, and the HTTP listener. Blocks until SIGINT/SIGTERM
// and then shuts everything down in order.
func Start(config *viper.Viper, devMode bool) {
	serverConfig := parseServerConfig(config)
	configDir := configDirectory(devMode)

	backupEnabled := setupBackupAndSync(serverConfig, configDir)

	fatalOnError(models.AutoMigrate(serverConfig.Sqlite.PassPhrase, configDir))

	mailClient = mailer.NewClient(serverConfig.Smtp, devMode)
	dispatcher = dispatch.NewDispatcher(mailClient)

	cronScheduler := cron.NewCronScheduler(serverConfig.Beacon.Cron.TimeZone)

	escalationScheduler := escalation.NewEscalationScheduler(
		cronScheduler, dispatcher, serverConfig.Beacon.Escalation.SweepSchedule)
	fatalOnError(escalationScheduler.ScheduleSweeps())

	if backupEnabled {
		scheduleBackups(cronScheduler, serverConfig.Google.Storage.SqliteBackupSchedule)
	}

	cronScheduler.StartAsync()

	router := mux.NewRouter()
	registerRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", serverConfig.Beacon.Listener.Port),
		Handler: router,
	}
	go serve(server)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cleanup(cronScheduler, server, backupEnabled)
}

func registerRoutes(router *mux.Router) {
	router.Use(loggingMiddleware, jsonContentTypeMiddleware)

	router.HandleFunc("/health", healthCheck).Methods("GET")

	// Alert fan-out routes sit behind a per-client limiter; everything
	// else is cheap enough to leave open
	limited := rateLimitMiddleware(NewRateLimiter(1, 5))

	router.Handle("/sos/manual", limited(http.HandlerFunc(triggerManualSOS))).Methods("POST")
	router.Handle("/location/request", limited(http.HandlerFunc(requestLocation))).Methods("POST")
	router.Handle("/location/accept", limited(http.HandlerFunc(acceptLocationRequest))).Methods("POST")
	router.Handle("/location/deny", limited(http.HandlerFunc(denyLocationRequest))).Methods("POST")

	router.HandleFunc("/emergency-contacts/{userEmail}", getContacts).Methods("GET")
	router.HandleFunc("/emergency-contacts/add", addContact).Methods("POST")
	router.HandleFunc("/emergency-contacts/remove", removeContact).Methods("POST")
	router.HandleFunc("/emergency-contacts/set", setContacts).Methods("POST")

	router.HandleFunc("/notifications/{email}", getNotifications).Methods("GET")
	router.HandleFunc("/notifications/read", markNotificationRead).Methods("POST")
	router.HandleFunc("/notifications/read-all", markAllNotificationsRead).Methods("POST")
}
