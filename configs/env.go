package configs

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config collects every setting the server needs. It is loaded once in main
// and handed to the components that use it.
type Config struct {
	Port     string
	MongoURI string
	DBName   string

	JWTSecret string

	RazorpayKeyID     string
	RazorpayKeySecret string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string

	AnthropicAPIKey string

	NotifyQueueSize int
}

// Load reads .env when present and collects settings from the environment.
func Load() Config {
	// Missing .env is fine in production; settings come from the environment.
	_ = godotenv.Load()

	return Config{
		Port:              getEnv("PORT", "3000"),
		MongoURI:          getEnv("MONGOURI", "mongodb://localhost:27017"),
		DBName:            getEnv("DB_NAME", "agrikart"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          getEnvInt("SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		EmailFrom:         getEnv("EMAIL_FROM", "no-reply@agrikart.example"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		NotifyQueueSize:   getEnvInt("NOTIFY_QUEUE_SIZE", 64),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
