package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cashbackd/models"
)

// remoteTimeout bounds every remote round-trip so a hung backend degrades
// into a fallback instead of stalling the request.
const remoteTimeout = 15 * time.Second

// RemoteConfig carries the credentials for the hosted backend. Empty DSN or
// Bucket leaves the remote store unconfigured (local-only mode).
type RemoteConfig struct {
	DSN        string
	Bucket     string
	PublicBase string // optional URL prefix for served objects
}

// Remote persists submission rows in Postgres and photo bytes in a GCS
// bucket. Clients are constructed lazily once per process and reused.
type Remote struct {
	dsn        string
	bucket     string
	publicBase string

	once    sync.Once
	db      *gorm.DB
	gcs     *gstorage.Client
	initErr error
}

func NewRemote(cfg RemoteConfig) *Remote {
	return &Remote{
		dsn:        cfg.DSN,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimSuffix(cfg.PublicBase, "/"),
	}
}

// Configured reports whether both the relational and object halves have
// credentials.
func (r *Remote) Configured() bool { return r.dsn != "" && r.bucket != "" }

func (r *Remote) init() error {
	r.once.Do(func() {
		db, err := gorm.Open(postgres.Open(r.dsn), &gorm.Config{})
		if err != nil {
			r.initErr = fmt.Errorf("connect postgres: %w", err)
			return
		}
		// Prefer ADC; GCS_CREDENTIALS_JSON overrides for local runs.
		var opts []option.ClientOption
		if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
		}
		gcs, err := gstorage.NewClient(context.Background(), opts...)
		if err != nil {
			r.initErr = fmt.Errorf("connect gcs: %w", err)
			return
		}
		r.db = db
		r.gcs = gcs
	})
	return r.initErr
}

// Migrate creates or updates the remote tables.
func (r *Remote) Migrate(ctx context.Context) error {
	if err := r.init(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).AutoMigrate(&models.Submission{}, &models.Photo{})
}

// Close releases the object storage client.
func (r *Remote) Close() error {
	if r.gcs != nil {
		return r.gcs.Close()
	}
	return nil
}

func (r *Remote) publicURL(object string) string {
	if r.publicBase != "" {
		return r.publicBase + "/" + object
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", r.bucket, object)
}

// Create uploads the files one at a time, then inserts the submission row and
// its photo rows. Objects uploaded before a later failure are not removed;
// the error reports how many were already stored.
func (r *Remote) Create(ctx context.Context, rec Record, files []File) (Record, error) {
	if err := r.init(); err != nil {
		return Record{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	urls := make([]string, 0, len(files))
	for _, f := range files {
		name := ObjectName(f.Name)
		w := r.gcs.Bucket(r.bucket).Object(name).NewWriter(ctx)
		w.ContentType = f.ContentType
		if _, err := w.Write(f.Data); err != nil {
			w.Close()
			return Record{}, fmt.Errorf("upload %s (%d objects already stored): %w", name, len(urls), err)
		}
		if err := w.Close(); err != nil {
			return Record{}, fmt.Errorf("upload %s (%d objects already stored): %w", name, len(urls), err)
		}
		urls = append(urls, r.publicURL(name))
	}

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}
	row := models.Submission{
		ID:        rec.ID,
		Date:      rec.Date,
		Username:  rec.Username,
		Plan:      rec.Plan,
		Total:     rec.Total,
		CreatedAt: createdAt,
		Status:    rec.Status,
		Note:      rec.Note,
	}
	for _, u := range urls {
		row.Photos = append(row.Photos, models.Photo{SubmissionID: rec.ID, URL: u})
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Record{}, fmt.Errorf("insert submission (%d objects already stored): %w", len(urls), err)
	}
	rec.Photos = urls
	return rec, nil
}

// List returns all submissions with photo rows flattened, newest first.
func (r *Remote) List(ctx context.Context) ([]Record, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	var rows []models.Submission
	if err := r.db.WithContext(ctx).Preload("Photos").Order("created_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out, nil
}

// UpdateStatus mutates status and note on the row and returns the updated
// record with its photos.
func (r *Remote) UpdateStatus(ctx context.Context, id, status string, note *string) (Record, error) {
	if err := r.init(); err != nil {
		return Record{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "note": note})
	if res.Error != nil {
		return Record{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Record{}, ErrNotFound
	}
	var row models.Submission
	if err := r.db.WithContext(ctx).Preload("Photos").First(&row, "id = ?", id).Error; err != nil {
		return Record{}, err
	}
	return toRecord(row), nil
}

func toRecord(row models.Submission) Record {
	photos := make([]string, 0, len(row.Photos))
	for _, p := range row.Photos {
		photos = append(photos, p.URL)
	}
	return Record{
		ID:        row.ID,
		Date:      row.Date,
		Username:  row.Username,
		Plan:      row.Plan,
		Total:     row.Total,
		Photos:    photos,
		CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		Status:    row.Status,
		Note:      row.Note,
	}
}
