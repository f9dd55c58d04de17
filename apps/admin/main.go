package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/acevedod1974/gradebook/core"
	"github.com/acevedod1974/gradebook/core/auth"
	"github.com/acevedod1974/gradebook/core/backup"
	"github.com/acevedod1974/gradebook/core/course"
	"github.com/acevedod1974/gradebook/storage/blob/fsblob"
	"github.com/acevedod1974/gradebook/storage/blob/pgblob"
	"github.com/acevedod1974/gradebook/storage/blob/redisblob"
	"github.com/acevedod1974/gradebook/storage/database/inmem"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	db, err := inmemdb.Open()
	errAndDie(err)

	validate, _ := core.NewValidator()
	appLogger := core.NewStdLogger(logger)

	courseRepo := inmemdb.NewCourseRepository(db)
	credStore := inmemdb.NewCredentialStore(db)
	backupSvc := backup.NewService(courseRepo, credStore, appLogger, sinks(conf, appLogger))

	// the store is in-memory: rehydrate from the latest local snapshot so
	// commands operate on real state, and snapshot back after mutations.
	hydrate(backupSvc)

	cli := commandLine{
		conf:      conf,
		courseSvc: course.NewService(courseRepo, validate, credStore, nil),
		authSvc:   auth.NewService(credStore, conf),
		backupSvc: backupSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func sinks(conf *core.Config, appLogger core.Logger) map[string]backup.Storage {
	stores := make(map[string]backup.Storage, 3)

	local, err := fsblob.New(conf.Backup.Dir)
	errAndDie(err)
	stores["local"] = local

	if conf.Redis.Addr != "" {
		store := redisblob.New(conf)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err = store.Ping(ctx); err != nil {
			appLogger.Warn("redis sink unavailable", err)
		} else {
			stores["redis"] = store
		}
	}

	if conf.Database.User != "" {
		store, err := pgblob.Open(conf)
		if err != nil {
			appLogger.Warn("postgres sink unavailable", err)
		} else {
			stores["postgres"] = store
		}
	}
	return stores
}

func hydrate(svc *backup.Service) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	names, err := svc.List(ctx, "local")
	if err != nil || len(names) == 0 {
		return
	}
	errAndDie(svc.Restore(ctx, "local", names[0]))
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
