package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cashbackd/pkg/ocr"
	"cashbackd/pkg/store"
)

func main() {
	_ = godotenv.Load()

	log := newLogger()
	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	remote := store.NewRemote(store.RemoteConfig{
		DSN:        cfg.DBDSN,
		Bucket:     cfg.GCSBucket,
		PublicBase: cfg.PublicBaseURL,
	})

	// `./cashbackd migrate` creates the remote tables and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if !remote.Configured() {
			log.Fatal("migrate requires DB_DSN and GCS_BUCKET")
		}
		if err := remote.Migrate(context.Background()); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		fmt.Println("migration completed")
		return
	}

	engine, cleanup, err := newServer(cfg, remote, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer cleanup()

	if !remote.Configured() {
		log.Warn("remote store not configured, running local-only")
	}
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	return log
}

// newServer wires the stores, service and routes. An unconfigured or nil
// remote leaves the service in local-only mode.
func newServer(cfg Config, remote *store.Remote, log *logrus.Logger) (*gin.Engine, func(), error) {
	local, err := store.NewLocal(cfg.DataDir, cfg.UploadBase)
	if err != nil {
		return nil, nil, err
	}
	var primary store.Store
	if remote != nil && remote.Configured() {
		primary = remote
	}
	var opts []store.Option
	if cfg.OCRVerify {
		opts = append(opts, store.WithAfterCreate(verifyTotal(log)))
	}
	svc := store.NewService(primary, local, log, opts...)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(cors.New(corsConfig(cfg)))
	s := &server{cfg: cfg, svc: svc, log: log}
	s.setupRoutes(r)

	cleanup := func() { _ = local.Close() }
	return r, cleanup, nil
}

func corsConfig(cfg Config) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	if cfg.CORSOrigins == "" {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = strings.Split(cfg.CORSOrigins, ",")
	cc.AllowCredentials = true
	return cc
}

// verifyTotal is the advisory OCR check: it reads the first receipt photo
// off the request path and logs when the recognized amount disagrees with
// the claimed total. It never mutates the submission.
func verifyTotal(log *logrus.Logger) func(store.Record, []store.File) {
	return func(rec store.Record, files []store.File) {
		if len(files) == 0 {
			return
		}
		amt, err := ocr.ExtractAmount(files[0].Data)
		if err != nil {
			log.WithError(err).WithField("id", rec.ID).Debug("ocr verification skipped")
			return
		}
		if amt != rec.Total {
			log.WithFields(logrus.Fields{
				"id":      rec.ID,
				"claimed": rec.Total,
				"ocr":     amt,
			}).Warn("claimed total disagrees with receipt")
		}
	}
}
