package main

import "github.com/joeshaw/envdecode"

// Config holds every environment-provided setting. Leaving DBDSN or
// GCSBucket empty is a valid configuration meaning local-only mode.
type Config struct {
	Port          string `env:"PORT,default=8080"`
	DBDSN         string `env:"DB_DSN"`
	GCSBucket     string `env:"GCS_BUCKET"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`
	DataDir       string `env:"DATA_DIR,default=data"`
	UploadBase    string `env:"UPLOAD_BASE,default=uploads"`
	AdminUsername string `env:"ADMIN_USERNAME,default=chituchitu"`
	AdminPassword string `env:"ADMIN_PASSWORD,default=1234567890"`
	SessionSecret string `env:"SESSION_SECRET,default=dev-insecure-secret-change"`
	OCRVerify     bool   `env:"OCR_VERIFY,default=false"`
	CORSOrigins   string `env:"CORS_ORIGINS"`
}

func loadConfig() (Config, error) {
	var cfg Config
	err := envdecode.Decode(&cfg)
	return cfg, err
}
