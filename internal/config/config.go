package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Mirror    MirrorConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	MinIO     MinIOConfig
	RateLimit RateLimitConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

type StoreConfig struct {
	Backend    string // file | memory
	Dir        string
	Extension  string
	LoadPolicy string // fail | skip
	Collision  string // overwrite | suffix
	KeyUTC     bool
}

type MirrorConfig struct {
	Timeout time.Duration
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	Mirror       bool
	MirrorPrefix string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_MAX_BODY_BYTES", 1<<20)
	v.SetDefault("STORE_BACKEND", "file")
	v.SetDefault("STORE_DIR", "routes")
	v.SetDefault("STORE_EXTENSION", ".json")
	v.SetDefault("STORE_LOAD_POLICY", "fail")
	v.SetDefault("STORE_KEY_COLLISION", "overwrite")
	v.SetDefault("STORE_KEY_UTC", false)
	v.SetDefault("MIRROR_TIMEOUT", 5)
	v.SetDefault("MONGODB_DATABASE", "jsonstash")
	v.SetDefault("MONGODB_COLLECTION", "documents")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_MIRROR", false)
	v.SetDefault("REDIS_MIRROR_PREFIX", "doc:")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_BUCKET", "jsonstash")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  time.Duration(v.GetInt("SERVER_READ_TIMEOUT")) * time.Second,
			WriteTimeout: time.Duration(v.GetInt("SERVER_WRITE_TIMEOUT")) * time.Second,
			MaxBodyBytes: v.GetInt64("SERVER_MAX_BODY_BYTES"),
		},
		Store: StoreConfig{
			Backend:    v.GetString("STORE_BACKEND"),
			Dir:        v.GetString("STORE_DIR"),
			Extension:  v.GetString("STORE_EXTENSION"),
			LoadPolicy: v.GetString("STORE_LOAD_POLICY"),
			Collision:  v.GetString("STORE_KEY_COLLISION"),
			KeyUTC:     v.GetBool("STORE_KEY_UTC"),
		},
		Mirror: MirrorConfig{
			Timeout: time.Duration(v.GetInt("MIRROR_TIMEOUT")) * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:        v.GetString("MONGODB_URI"),
			Database:   v.GetString("MONGODB_DATABASE"),
			Collection: v.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:         v.GetString("REDIS_HOST"),
			Port:         v.GetString("REDIS_PORT"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			Mirror:       v.GetBool("REDIS_MIRROR"),
			MirrorPrefix: v.GetString("REDIS_MIRROR_PREFIX"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Region:    v.GetString("MINIO_REGION"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and unusable settings.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "file", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be file or memory, got %q", c.Store.Backend)
	}
	switch c.Store.LoadPolicy {
	case "fail", "skip":
	default:
		return fmt.Errorf("STORE_LOAD_POLICY must be fail or skip, got %q", c.Store.LoadPolicy)
	}
	switch c.Store.Collision {
	case "overwrite", "suffix":
	default:
		return fmt.Errorf("STORE_KEY_COLLISION must be overwrite or suffix, got %q", c.Store.Collision)
	}
	if c.Store.Backend == "file" && c.Store.Dir == "" {
		return fmt.Errorf("STORE_DIR is required for the file backend")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("SERVER_MAX_BODY_BYTES must be positive")
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive when rate limiting is enabled")
	}
	return nil
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return c.Redis.Host + ":" + c.Redis.Port
}
