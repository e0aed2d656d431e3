package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/safenest/server/alerting"
	"github.com/Daskott/safenest/server/auth/key"
	"github.com/Daskott/safenest/server/geo"
	"github.com/Daskott/safenest/server/gstorage"
	"github.com/Daskott/safenest/server/insights"
	"github.com/Daskott/safenest/server/logger"
	"github.com/Daskott/safenest/server/models"
	"github.com/Daskott/safenest/server/realtime"
	"github.com/Daskott/safenest/server/twilio"
	"github.com/Daskott/safenest/server/work"
	"github.com/Daskott/safenest/server/zonecheck"
	"github.com/Daskott/safenest/shared"
	"github.com/Daskott/safenest/utils"
	"github.com/go-playground/validator"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

const DEFAULT_REQUEST_TIMEOUT = 10 * time.Second

var logg = logger.NewLogger()

type Server struct {
	config         shared.ServerConfig
	devMode        bool
	requestTimeout time.Duration

	store      *models.Store
	keyPair    *key.KeyPair
	validate   *validator.Validate
	hub        *realtime.Hub
	workerPool *work.WorkerPoolAdapter
	recorder   *alerting.Recorder
	checker    *zonecheck.Checker
	aggregator *insights.Aggregator
	gStorage   *gstorage.GStorage
}

// NewServer wires every component around the store. gStorage is optional,
// sqlite backups are skipped without it.
func NewServer(config shared.ServerConfig, store *models.Store, gStorage *gstorage.GStorage, devMode bool) (*Server, error) {
	keyPair, err := key.NewKeyPairFromRSAPrivateKeyPem(config.SafeNest.PrivateKeyPem)
	if err != nil {
		return nil, err
	}

	triggerMode, err := geo.ParseTriggerMode(config.Geofence.TriggerMode)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	err = RegisterValidators(validate)
	if err != nil {
		return nil, err
	}

	requestTimeout := DEFAULT_REQUEST_TIMEOUT
	if config.SafeNest.Listener.RequestTimeout > 0 {
		requestTimeout = time.Duration(config.SafeNest.Listener.RequestTimeout) * time.Second
	}

	recorder := alerting.NewRecorder(store, twilio.NewClient(config.Twilio, devMode))

	s := &Server{
		config:         config,
		devMode:        devMode,
		requestTimeout: requestTimeout,
		store:          store,
		keyPair:        keyPair,
		validate:       validate,
		hub:            realtime.NewHub(),
		workerPool:     work.NewWorkerAdapter(store, config.SafeNest.Cron.TimeZone, config.SafeNest.Workers.Concurrency),
		recorder:       recorder,
		checker:        zonecheck.NewChecker(store, recorder, triggerMode),
		aggregator:     insights.NewAggregator(store),
		gStorage:       gStorage,
	}

	err = s.registerJobHandlers()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/jwks", s.jwks).Methods("GET")
	router.Handle("/ws", s.hub.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.timeoutMiddleware, s.initialContextMiddleware)

	api.HandleFunc("/register", s.register).Methods("POST")
	api.HandleFunc("/login", s.login).Methods("POST")

	admin := api.PathPrefix("/jobs").Subrouter()
	admin.Use(adminRouteMiddleware)
	admin.HandleFunc("", s.jobs).Methods("GET")

	guardian := api.NewRoute().Subrouter()
	guardian.Use(protectedRouteMiddleware)

	guardian.HandleFunc("/family", s.familyMembers).Methods("GET")
	guardian.HandleFunc("/family", s.addFamilyMember).Methods("POST")
	guardian.HandleFunc("/family/{mid:[0-9]+}", s.deactivateFamilyMember).Methods("DELETE")

	guardian.HandleFunc("/locations", s.addLocation).Methods("POST")
	guardian.HandleFunc("/locations/current", s.currentLocations).Methods("GET")
	guardian.HandleFunc("/locations/{mid:[0-9]+}/history", s.locationHistory).Methods("GET")

	guardian.HandleFunc("/safezones", s.safeZones).Methods("GET")
	guardian.HandleFunc("/safezones", s.createSafeZone).Methods("POST")

	guardian.HandleFunc("/emergency", s.triggerEmergency).Methods("POST")
	guardian.HandleFunc("/alerts", s.alerts).Methods("GET")
	guardian.HandleFunc("/alerts/{aid:[0-9]+}/read", s.markAlertRead).Methods("PUT")

	guardian.HandleFunc("/insights", s.insights).Methods("GET")
	guardian.HandleFunc("/insights/history", s.insightsHistory).Methods("GET")
	guardian.HandleFunc("/chat", s.chat).Methods("POST")

	return router
}

// Run starts background work & serves http until a SIGINT/SIGTERM arrives
func (s *Server) Run() {
	err := s.workerPool.Start()
	fatalOnError(err)

	err = s.enqueueJobs()
	fatalOnError(err)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%v", s.config.SafeNest.Listener.Port),
		Handler: s.Handler(),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go serve(server)

	<-shutdown
	logg.Info("Shutting down SafeNest server...")
	s.cleanup(server)
}

func Start(configArg *viper.Viper, devMode bool) {
	config := shared.ServerConfig{}

	err := configArg.Unmarshal(&config)
	fatalOnError(err)

	err = validator.New().Struct(config)
	fatalOnError(err)

	configDir := configDirectory(devMode)

	var gStorage *gstorage.GStorage
	if config.Google.Storage.EnableSqliteBackupAndSync && isSqlite(config.Database) {
		gStorage, err = gstorage.NewGStorage(
			config.Google.ApplicationCredentials,
			config.Google.Storage.Bucket,
			config.Google.Storage.Prefix,
		)
		fatalOnError(err)

		err = restoreSqliteDb(gStorage, configDir)
		fatalOnError(err)
	}

	store, err := models.Open(config.Database, config.Sqlite, configDir)
	fatalOnError(err)

	err = store.AutoMigrate()
	fatalOnError(err)

	s, err := NewServer(config, store, gStorage, devMode)
	fatalOnError(err)

	s.Run()
}

// restoreSqliteDb pulls the last backup from google storage when there's no local db yet
func restoreSqliteDb(gStorage *gstorage.GStorage, configDir string) error {
	dbPath, err := models.SqliteDbPath(configDir)
	if err != nil {
		return err
	}

	if utils.FileExist(dbPath) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err = gStorage.DownloadFile(ctx, dbPath)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		logg.Info("No sqlite backup found, starting with a new db")
		return nil
	}

	return err
}

func isSqlite(dbConfig shared.DatabaseConfig) bool {
	return dbConfig.Type == "" || dbConfig.Type == models.SQLITE_DB
}
