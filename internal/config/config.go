package config

import (
	"os"
	"strconv"
)

type Config struct {
	Mail     MailConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Matcher  MatcherConfig
	Paths    PathsConfig
}

type MailConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	From     string // defaults to Username when empty
}

type StorageConfig struct {
	Endpoint  string // MinIO/S3 endpoint, e.g. localhost:9000
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string // public base URL for share links, e.g. https://files.example.com
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type MatcherConfig struct {
	Command        string // command that runs the external face matcher
	Prefix         string // file name prefix marking user-facing matches
	TimeoutSeconds int    // hard limit on a single matcher run
}

type PathsConfig struct {
	MatchedDir      string // root of per-session matched-image directories
	GalleryDir      string // reference gallery used by the matcher
	CredentialsFile string // fixed path of the uploaded credentials artifact
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// envBool treats "true" and "1" as true; anything else is false.
func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "true" || v == "1" || v == "True"
}

func Load() *Config {
	cfg := &Config{
		Mail: MailConfig{
			Host:     os.Getenv("MAIL_HOST"),
			Port:     envInt("MAIL_PORT", 587),
			UseTLS:   envBool("MAIL_USE_TLS"),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     os.Getenv("MAIL_FROM"),
		},
		Storage: StorageConfig{
			Endpoint:  envString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    envString("MINIO_BUCKET", "snapmatch"),
			UseSSL:    envBool("MINIO_USE_SSL"),
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matcher: MatcherConfig{
			Command:        envString("MATCH_COMMAND", "python3 match_faces.py"),
			Prefix:         envString("MATCH_PREFIX", "clean_"),
			TimeoutSeconds: envInt("MATCH_TIMEOUT_SECONDS", 120),
		},
		Paths: PathsConfig{
			MatchedDir:      envString("MATCHED_DIR", "static/matched"),
			GalleryDir:      envString("GALLERY_DIR", "static/gallery"),
			CredentialsFile: envString("CREDENTIALS_FILE", "storage_credentials.json"),
		},
	}

	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}
	if cfg.Storage.PublicURL == "" {
		scheme := "http"
		if cfg.Storage.UseSSL {
			scheme = "https"
		}
		cfg.Storage.PublicURL = scheme + "://" + cfg.Storage.Endpoint
	}

	return cfg
}
