package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AppEnv                string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	AuthSecret            string
	AccessTokenTTLMinutes int
	PredictionTTLSeconds  int
	ROITTLSeconds         int
}

func Load() Config {
	// A missing .env file is fine; the environment may be set by the host.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	predictionTTL, err := strconv.Atoi(getEnv("PREDICTION_TTL_SECONDS", "300"))
	if err != nil || predictionTTL < 1 {
		predictionTTL = 300
	}
	roiTTL, err := strconv.Atoi(getEnv("ROI_TTL_SECONDS", "60"))
	if err != nil || roiTTL < 1 {
		roiTTL = 60
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AppEnv:                strings.ToLower(getEnv("APP_ENV", "development")),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		PredictionTTLSeconds:  predictionTTL,
		ROITTLSeconds:         roiTTL,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
