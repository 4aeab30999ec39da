package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Media storage drivers.
const (
	MediaDriverLocal = "local"
	MediaDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Cache    CacheConfig
	Media    MediaConfig
	Portal   PortalConfig
	Contact  ContactConfig
	Live     LiveConfig
	Sweep    SweepConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled bool
	// URL, when set, overrides the host/port/password/db fields.
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	Issuer            string
	SingleSession     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
	File   LogFileConfig
}

// LogFileConfig enables an additional rotating file sink.
type LogFileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// CacheConfig governs caching of public read endpoints.
type CacheConfig struct {
	Enabled  bool
	TTL      time.Duration
	DraftTTL time.Duration
}

// MediaConfig selects and configures the object store backing uploads.
type MediaConfig struct {
	Driver           string
	Bucket           string
	BaseDir          string
	PublicBaseURL    string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	S3               S3Config
}

// S3Config carries credentials for the S3 driver. Empty keys fall back to the default AWS chain.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// PortalConfig holds presentation rules shared by the public endpoints.
type PortalConfig struct {
	Timezone        string
	TeamAdminPolicy string
}

// ContactConfig configures forwarding of contact form submissions.
type ContactConfig struct {
	ResendAPIKey string
	Inbox        string
	From         string
}

// LiveConfig toggles Postgres LISTEN/NOTIFY fan-out for change notifications.
type LiveConfig struct {
	UsePostgres bool
	Buffer      int
}

// SweepConfig controls the background retry of orphaned media deletes.
type SweepConfig struct {
	Enabled   bool
	Interval  time.Duration
	BatchSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		Issuer:            v.GetString("JWT_ISSUER"),
		SingleSession:     v.GetBool("JWT_SINGLE_SESSION"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
		File: LogFileConfig{
			Path:       v.GetString("LOG_FILE_PATH"),
			MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE_DAYS"),
			Compress:   v.GetBool("LOG_FILE_COMPRESS"),
		},
	}

	cfg.Cache = CacheConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		TTL:      parseDuration(v.GetString("CACHE_TTL"), time.Minute),
		DraftTTL: parseDuration(v.GetString("DRAFT_TTL"), 7*24*time.Hour),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 50 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		Driver:           strings.ToLower(v.GetString("MEDIA_DRIVER")),
		Bucket:           v.GetString("MEDIA_BUCKET"),
		BaseDir:          v.GetString("MEDIA_BASE_DIR"),
		PublicBaseURL:    strings.TrimRight(v.GetString("MEDIA_PUBLIC_BASE_URL"), "/"),
		MaxFileSizeBytes: maxMediaSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("MEDIA_ALLOWED_MIME_TYPES")),
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			ForcePathStyle:  v.GetBool("S3_FORCE_PATH_STYLE"),
		},
	}

	cfg.Portal = PortalConfig{
		Timezone:        v.GetString("PORTAL_TIMEZONE"),
		TeamAdminPolicy: strings.ToLower(v.GetString("TEAM_ADMIN_POLICY")),
	}

	cfg.Contact = ContactConfig{
		ResendAPIKey: v.GetString("RESEND_API_KEY"),
		Inbox:        v.GetString("CONTACT_INBOX"),
		From:         v.GetString("CONTACT_FROM"),
	}

	cfg.Live = LiveConfig{
		UsePostgres: v.GetBool("LIVE_USE_POSTGRES"),
		Buffer:      v.GetInt("LIVE_BUFFER"),
	}

	cfg.Sweep = SweepConfig{
		Enabled:   v.GetBool("ENABLE_MEDIA_SWEEP"),
		Interval:  parseDuration(v.GetString("MEDIA_SWEEP_INTERVAL"), time.Hour),
		BatchSize: v.GetInt("MEDIA_SWEEP_BATCH_SIZE"),
	}

	return cfg, nil
}

// Location resolves the portal time zone, falling back to UTC.
func (p PortalConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "council_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_ISSUER", "council-portal")
	v.SetDefault("JWT_SINGLE_SESSION", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_FILE_PATH", "")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 7)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_FILE_COMPRESS", true)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CACHE_TTL", "1m")
	v.SetDefault("DRAFT_TTL", "168h")

	v.SetDefault("MEDIA_DRIVER", MediaDriverLocal)
	v.SetDefault("MEDIA_BUCKET", "Gallery")
	v.SetDefault("MEDIA_BASE_DIR", "./media")
	v.SetDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080/media")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 50*1024*1024)
	v.SetDefault("MEDIA_ALLOWED_MIME_TYPES", "image/jpeg,image/png,image/webp,image/gif,video/mp4,video/webm,video/quicktime")
	v.SetDefault("S3_BUCKET", "council-portal-media")
	v.SetDefault("S3_REGION", "ap-south-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)

	v.SetDefault("PORTAL_TIMEZONE", "UTC")
	v.SetDefault("TEAM_ADMIN_POLICY", "category")

	v.SetDefault("RESEND_API_KEY", "")
	v.SetDefault("CONTACT_INBOX", "")
	v.SetDefault("CONTACT_FROM", "Council Web <no-reply@council.local>")

	v.SetDefault("LIVE_USE_POSTGRES", false)
	v.SetDefault("LIVE_BUFFER", 16)

	v.SetDefault("ENABLE_MEDIA_SWEEP", false)
	v.SetDefault("MEDIA_SWEEP_INTERVAL", "1h")
	v.SetDefault("MEDIA_SWEEP_BATCH_SIZE", 50)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
