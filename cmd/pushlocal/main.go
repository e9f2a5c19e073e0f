// pushlocal copies submissions captured by the local fallback store into the
// remote store. Run it after a remote outage to reconcile the two.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cashbackd/pkg/store"
)

func main() {
	dataDir := flag.String("data", "data", "local data directory")
	uploadBase := flag.String("uploads", "uploads", "local uploads directory")
	dryRun := flag.Bool("dry-run", false, "report what would be pushed without writing")
	flag.Parse()

	_ = godotenv.Load()
	log := logrus.New()

	remote := store.NewRemote(store.RemoteConfig{
		DSN:        os.Getenv("DB_DSN"),
		Bucket:     os.Getenv("GCS_BUCKET"),
		PublicBase: os.Getenv("PUBLIC_BASE_URL"),
	})
	if !remote.Configured() {
		log.Fatal("DB_DSN and GCS_BUCKET are required")
	}
	defer remote.Close()

	local, err := store.NewLocal(*dataDir, *uploadBase)
	if err != nil {
		log.WithError(err).Fatal("open local store")
	}
	defer local.Close()

	ctx := context.Background()
	if err := remote.Migrate(ctx); err != nil {
		log.WithError(err).Fatal("remote migrate")
	}

	locals, err := local.List(ctx)
	if err != nil {
		log.WithError(err).Fatal("read local index")
	}
	remotes, err := remote.List(ctx)
	if err != nil {
		log.WithError(err).Fatal("read remote submissions")
	}
	seen := make(map[string]bool, len(remotes))
	for _, r := range remotes {
		seen[r.ID] = true
	}

	pushed := 0
	for _, rec := range locals {
		if seen[rec.ID] {
			continue
		}
		if *dryRun {
			log.WithField("id", rec.ID).Info("would push")
			continue
		}
		files, err := loadFiles(*uploadBase, rec.Photos)
		if err != nil {
			log.WithError(err).WithField("id", rec.ID).Warn("skipping record with missing file")
			continue
		}
		if _, err := remote.Create(ctx, rec, files); err != nil {
			log.WithError(err).WithField("id", rec.ID).Error("push failed")
			continue
		}
		pushed++
	}
	fmt.Printf("pushed %d of %d local submissions\n", pushed, len(locals))
}

func loadFiles(uploadBase string, urls []string) ([]store.File, error) {
	files := make([]store.File, 0, len(urls))
	for _, u := range urls {
		name := strings.TrimPrefix(u, "/uploads/")
		data, err := os.ReadFile(filepath.Join(uploadBase, name))
		if err != nil {
			return nil, err
		}
		files = append(files, store.File{Name: name, ContentType: "image/jpeg", Data: data})
	}
	return files, nil
}
