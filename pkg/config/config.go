package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Device cache backends.
const (
	DeviceCacheRedis  = "redis"
	DeviceCacheMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Catalog     CatalogConfig
	Notes       NotesConfig
	DeviceCache DeviceCacheConfig
	Exports     ExportsConfig
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
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the verification settings for externally issued access tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CatalogConfig points at the static datasets loaded at start-up.
type CatalogConfig struct {
	VideosPath   string
	StudentsPath string
	PerPage      int
	MaxPerPage   int
	Language     string
}

// NotesConfig tunes the note record manager.
type NotesConfig struct {
	AutoSaveDelay   time.Duration
	ClassNotesLimit int
	WriteWorkers    int
	WriteBuffer     int
	ClassFeedTTL    time.Duration
}

// DeviceCacheConfig selects where device-local statuses and drafts live.
type DeviceCacheConfig struct {
	Backend   string
	KeyPrefix string
}

// ExportsConfig gates the progress report endpoint.
type ExportsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Catalog = CatalogConfig{
		VideosPath:   v.GetString("CATALOG_VIDEOS_PATH"),
		StudentsPath: v.GetString("CATALOG_STUDENTS_PATH"),
		PerPage:      v.GetInt("CATALOG_PER_PAGE"),
		MaxPerPage:   v.GetInt("CATALOG_MAX_PER_PAGE"),
		Language:     v.GetString("CATALOG_LANGUAGE"),
	}

	cfg.Notes = NotesConfig{
		AutoSaveDelay:   parseDuration(v.GetString("NOTES_AUTOSAVE_DELAY"), 2*time.Second),
		ClassNotesLimit: v.GetInt("NOTES_CLASS_LIMIT"),
		WriteWorkers:    v.GetInt("NOTES_WRITE_WORKERS"),
		WriteBuffer:     v.GetInt("NOTES_WRITE_BUFFER"),
		ClassFeedTTL:    parseDuration(v.GetString("NOTES_CLASS_CACHE_TTL"), 0),
	}

	backend := strings.ToLower(v.GetString("DEVICE_CACHE_BACKEND"))
	if backend != DeviceCacheRedis {
		backend = DeviceCacheMemory
	}
	cfg.DeviceCache = DeviceCacheConfig{
		Backend:   backend,
		KeyPrefix: v.GetString("DEVICE_CACHE_KEY_PREFIX"),
	}

	cfg.Exports = ExportsConfig{Enabled: v.GetBool("ENABLE_EXPORTS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "pack_progress")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CATALOG_VIDEOS_PATH", "./data/videos.json")
	v.SetDefault("CATALOG_STUDENTS_PATH", "./data/students.json")
	v.SetDefault("CATALOG_PER_PAGE", 50)
	v.SetDefault("CATALOG_MAX_PER_PAGE", 200)
	v.SetDefault("CATALOG_LANGUAGE", "fr")

	v.SetDefault("NOTES_AUTOSAVE_DELAY", "2s")
	v.SetDefault("NOTES_CLASS_LIMIT", 200)
	v.SetDefault("NOTES_WRITE_WORKERS", 4)
	v.SetDefault("NOTES_WRITE_BUFFER", 64)
	v.SetDefault("NOTES_CLASS_CACHE_TTL", "30s")

	v.SetDefault("DEVICE_CACHE_BACKEND", DeviceCacheMemory)
	v.SetDefault("DEVICE_CACHE_KEY_PREFIX", "device")

	v.SetDefault("ENABLE_EXPORTS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
