package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	MongoURI       string
	MongoDB        string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	UploadRoot     string
	UploadDir      string
	PageSize       int
	AuthRatePerMin int
	CORSOrigins    []string
	Env            string // "local" or "prod"
}

const devSecret = "somesupersecretsecret"

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := Config{
		Port:           port(getEnv("PORT", "8080")),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:        getEnv("MONGO_DB", "feed"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		TokenTTL:       getDuration("TOKEN_TTL", time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		UploadRoot:     getEnv("UPLOAD_ROOT", "."),
		UploadDir:      getEnv("UPLOAD_DIR", "images"),
		PageSize:       getInt("PAGE_SIZE", 2),
		AuthRatePerMin: getInt("AUTH_RATE_PER_MIN", 20),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		Env:            getEnv("APP_ENV", "local"),
	}

	if cfg.JWTSecret == "" {
		if cfg.Env != "local" {
			return Config{}, errors.New("JWT_SECRET must be set outside the local environment")
		}
		cfg.JWTSecret = devSecret
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 2
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not a number, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("config: %s=%q is not a duration, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func port(p string) string {
	if p[0] != ':' {
		return ":" + p
	}
	return p
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
