package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// devJWTSecret is only accepted when DEBUG is on.
const devJWTSecret = "food_ordering_dev_secret"

type Config struct {
	App   AppConfig
	Store StoreConfig
	JWT   JWTConfig
	Redis RedisConfig
	Kafka KafkaConfig
	Seed  SeedConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type StoreConfig struct {
	Driver        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	Timeout       time.Duration
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	RevalidateRefresh bool
}

type RedisConfig struct {
	Addr string
	TTL  time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Buffer  int
}

type SeedConfig struct {
	Enabled           bool
	InitialAdminEmail string
}

// Load reads .env (if present) and the environment. Environment variables
// win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// a missing .env is fine; variables may come from the environment
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetDefault("APP_NAME", "food-ordering-api")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "food_ordering.db")
	v.SetDefault("MONGODB_DATABASE", "food_ordering")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("JWT_ISSUER", "food-ordering-api")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("JWT_REFRESH_REVALIDATE", true)
	v.SetDefault("REDIS_TTL", "5m")
	v.SetDefault("KAFKA_TOPIC", "orders.events")
	v.SetDefault("KAFKA_BUFFER", 1024)
	v.SetDefault("SEED", false)
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("APP_NAME"),
			Port:    v.GetString("PORT"),
			Debug:   v.GetBool("DEBUG"),
			LogPath: v.GetString("LOG_PATH"),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(v.GetString("STORE_DRIVER")),
			DatabaseURL:   v.GetString("DATABASE_URL"),
			MongoURI:      v.GetString("MONGODB_URI"),
			MongoDatabase: v.GetString("MONGODB_DATABASE"),
			Timeout:       v.GetDuration("STORE_TIMEOUT"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			Issuer:            v.GetString("JWT_ISSUER"),
			AccessTTL:         v.GetDuration("JWT_ACCESS_TTL"),
			RefreshTTL:        v.GetDuration("JWT_REFRESH_TTL"),
			RevalidateRefresh: v.GetBool("JWT_REFRESH_REVALIDATE"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("REDIS_ADDR"),
			TTL:  v.GetDuration("REDIS_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			Buffer:  v.GetInt("KAFKA_BUFFER"),
		},
		Seed: SeedConfig{
			Enabled:           v.GetBool("SEED"),
			InitialAdminEmail: v.GetString("INITIAL_ADMIN_EMAIL"),
		},
	}

	if cfg.JWT.Secret == "" {
		if !cfg.App.Debug {
			return nil, errors.New("JWT_SECRET is required unless DEBUG=true")
		}
		cfg.JWT.Secret = devJWTSecret
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return nil, errors.New("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive durations")
	}
	if cfg.Store.Driver == "mongo" && cfg.Store.MongoURI == "" {
		return nil, errors.New("MONGODB_URI is required when STORE_DRIVER=mongo")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
