package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	Env                string
	Port               string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	PostgresURI        string
	AutoMigrate        bool
	StoreDriver        string
	MongoURI           string
	MongoDatabase      string
	RedisURI           string
	StatsCacheTTL      time.Duration
	FrontendURL        string
	R2                 R2
	SecretKey          string
	CookieName         string
	TokenTTL           time.Duration
	MediaMaxFiles      int
	MediaMaxBytes      int64
	DueSweepSpec       string
	WorkerConcurrency  int
}

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

func LoadConfig() *Config {
	return &Config{
		Env:                getEnv("APP_ENV", "dev"),
		Port:               getEnv("PORT", "3000"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", ""),
		PostgresURI:        getEnv("POSTGRES_URI", ""),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", false),
		StoreDriver:        getEnv("STORE_DRIVER", StorePostgres),
		MongoURI:           getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "tupae"),
		RedisURI:           getEnv("REDIS_URI", "localhost:6379"),
		StatsCacheTTL:      getEnvDuration("STATS_CACHE_TTL", time.Minute),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "tupae_session"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		MediaMaxFiles:     getEnvInt("MEDIA_MAX_FILES", 10),
		MediaMaxBytes:     int64(getEnvInt("MEDIA_MAX_BYTES", 10*1024*1024)),
		DueSweepSpec:      getEnv("DUE_SWEEP_SPEC", "0 * * * * *"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
