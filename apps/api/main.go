package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acevedod1974/gradebook/apps/api/echo"
	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/backup"
	"github.com/acevedod1974/gradebook/core/course"
	"github.com/acevedod1974/gradebook/services/email"
	"github.com/acevedod1974/gradebook/services/logger"
	"github.com/acevedod1974/gradebook/storage/blob/fsblob"
	"github.com/acevedod1974/gradebook/storage/blob/pgblob"
	"github.com/acevedod1974/gradebook/storage/blob/redisblob"
	"github.com/acevedod1974/gradebook/storage/database/inmem"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("%+v", err)
	}

	var appLogger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		appLogger = core.NewStdLogger(std)
	} else {
		appLogger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := inmemdb.Open()
	errAndDie(std, err)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}

	validate, translator := core.NewValidator()

	credStore := inmemdb.NewCredentialStore(db)
	courseRepo := inmemdb.NewCourseRepository(db)
	courseSvc := course.NewService(courseRepo, validate, credStore, mailSvc)
	authSvc := auth.NewService(credStore, conf)
	backupSvc := backup.NewService(courseRepo, credStore, appLogger, sinks(conf, appLogger))

	// rehydrate from the most recent local backup, if any
	restoreLatest(backupSvc, appLogger)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     appLogger,
		CourseSvc:  courseSvc,
		AuthSvc:    authSvc,
		BackupSvc:  backupSvc,
		Validate:   validate,
		Translator: translator,
	})

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- app.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-serverErrors:
		errAndDie(std, err)
	case <-quit:
	case <-app.ShutdownSignal():
	}

	// save a parting snapshot then stop
	if _, err = backupSvc.Save(context.Background(), "local"); err != nil {
		appLogger.Error("saving shutdown backup", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = app.Stop(ctx); err != nil {
		appLogger.Error("stopping server", err)
	}
}

// sinks wires every configured storage sink; the local directory sink is
// always available.
func sinks(conf *core.Config, logger core.Logger) map[string]backup.Storage {
	stores := make(map[string]backup.Storage, 3)

	local, err := fsblob.New(conf.Backup.Dir)
	if err != nil {
		logger.Fatal("opening local backup dir", err)
	}
	stores["local"] = local

	if conf.Redis.Addr != "" {
		store := redisblob.New(conf)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = store.Ping(ctx); err != nil {
			logger.Warn("redis sink unavailable", err)
		} else {
			stores["redis"] = store
		}
	}

	if conf.Database.User != "" {
		store, err := pgblob.Open(conf)
		if err != nil {
			logger.Warn("postgres sink unavailable", err)
		} else {
			stores["postgres"] = store
		}
	}
	return stores
}

// restoreLatest loads the newest local snapshot at startup so an in-memory
// store survives restarts.
func restoreLatest(svc *backup.Service, logger core.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	names, err := svc.List(ctx, "local")
	if err != nil || len(names) == 0 {
		return
	}
	if err = svc.Restore(ctx, "local", names[0]); err != nil {
		logger.Warn("restoring latest backup", err)
		return
	}
	logger.Info("state restored", map[string]interface{}{"backup": names[0]})
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatalf("%+v", err)
	}
}
