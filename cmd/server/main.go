package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/buzkaaclicker/persona"
	"github.com/buzkaaclicker/persona/auth"
	"github.com/buzkaaclicker/persona/config"
	"github.com/buzkaaclicker/persona/persistent"
	"github.com/buzkaaclicker/persona/transport/rest"
	"github.com/buzkaaclicker/persona/transport/web"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
)

const clientEvictionInterval = time.Minute

func listenAndServe(ctx context.Context, cfg config.Config, bdb *buntdb.DB, db *bun.DB) (func() error, error) {
	accountStore := &persistent.AccountStore{DB: db}
	profileStore := &persistent.ProfileStore{DB: db}
	activityStore := &persistent.ActivityStore{DB: db}
	grantStore := &persistent.GrantStore{Buntdb: bdb}
	if err := grantStore.CreateIndexes(); err != nil {
		return nil, err
	}
	blobStore := &persistent.BlobStore{
		Dir:     cfg.Storage.Dir,
		BaseURL: cfg.Storage.PublicURL,
		Bucket:  persona.AvatarBucket,
	}

	authService := &auth.Service{
		Accounts:            accountStore,
		Grants:              grantStore,
		Activities:          activityStore,
		Tokens:              auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTTL),
		Log:                 logrus.WithField("component", "auth"),
		RefreshTTL:          cfg.Auth.RefreshTTL,
		RequireConfirmation: cfg.Auth.RequireConfirmation,
		SendConfirmation:    auth.LogConfirmation(logrus.WithField("component", "auth"), cfg.HTTP.PublicURL),
	}

	clients := web.NewClients(authService, profileStore, blobStore, cfg.HTTP.ClientIdleTTL,
		logrus.WithField("component", "web"))
	go clients.Run(ctx, clientEvictionInterval)

	server := fiber.New(fiber.Config{
		Views:        web.NewEngine(),
		ErrorHandler: web.ErrorHandler,
		BodyLimit:    cfg.HTTP.BodyLimit,
		Immutable:    true,
	})
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
		Immutable:    true,
	})
	api.Use(cors.New(cors.Config{AllowOrigins: cfg.HTTP.AllowOrigins}))

	requestAuthorizer := rest.RequestAuthorizer(authService)
	profileController := rest.ProfileController{Store: profileStore}
	sessionController := rest.SessionController{}
	activityController := rest.ActivityController{Store: activityStore}
	api.Get("/status", monitor.New())
	profileController.InstallTo(api)
	sessionController.InstallTo(requestAuthorizer, api)
	activityController.InstallTo(requestAuthorizer, api)
	api.Use(rest.NotFoundHandler)

	server.Mount("/api", api)

	web.ServeStorage(server, "/storage", cfg.Storage.Dir)

	webController := web.Controller{Clients: clients, SecureCookie: cfg.HTTP.SecureCookie}
	webController.InstallTo(server)

	server.Use(func(ctx *fiber.Ctx) error {
		return fiber.ErrNotFound
	})

	go func() {
		if err := server.Listen(cfg.HTTP.Addr); err != nil {
			logrus.WithError(err).Fatalln("Could not listen.")
		}
	}()

	return func() error {
		clients.Close()
		return server.Shutdown()
	}, nil
}

func setupLogger(verbose bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "persona")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not load config.")
	}
	setupLogger(cfg.Debug, cfg.Log.Syslog)
	logrus.Infoln("Starting persona.")

	if err := os.MkdirAll(filepath.Join(cfg.Storage.Dir, persona.AvatarBucket), 0o755); err != nil {
		logrus.WithError(err).Fatalln("Could not create storage dir.")
	}

	bdb, err := buntdb.Open(cfg.Sessions.Path)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open buntdb.")
	}
	defer bdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logrus.Infoln("Opening database.")
	db, err := persistent.Open(ctx, cfg.Database.DSN, cfg.Database.Verbose)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open database.")
	}
	defer db.Close()
	if err := persistent.CreateSchema(ctx, db); err != nil {
		logrus.WithError(err).Fatalln("Could not create database schema.")
	}

	logrus.Infoln("Starting listening... To shut down use ^C")
	shutdown, err := listenAndServe(ctx, cfg, bdb, db)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not start server.")
	}

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	cancel()
	if err := shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
}
