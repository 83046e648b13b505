package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	Store      string
	Env        string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "murmur"),
		DBPassword: getEnv("DB_PASSWORD", "murmur_dev_password"),
		DBName:     getEnv("DB_NAME", "murmur"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		Store:      getEnv("STORE", "postgres"),
		Env:        getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
