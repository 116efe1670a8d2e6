package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every externally supplied setting. Adapters receive the
// piece of it they need at construction; nothing reads the environment
// after Load returns.
type Config struct {
	Port       string
	DBURL      string
	CORSOrigin string

	Supabase SupabaseConfig
	SMTP     SMTPConfig
}

type SupabaseConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	JWTSecret  string
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	return Config{
		Port:       getEnv("PORT", "8080"),
		DBURL:      mustEnv("DB_URL"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		Supabase: SupabaseConfig{
			URL:        mustEnv("SUPABASE_URL"),
			AnonKey:    mustEnv("SUPABASE_ANON_KEY"),
			ServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:  mustEnv("SUPABASE_JWT_SECRET"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			From:     getEnv("SMTP_FROM", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
	}
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
