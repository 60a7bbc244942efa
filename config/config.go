package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

var (
	MAIN_ROUTES    string
	PUBLIC_ROUTES  string
	APP_PORT       string
	PublicBaseURL  string
	JWTSecret      string
	JWTExpiration  int
	LogLevel       string
	SnowflakeNode  int
	NotifyWorkers  int
	NotifyQueue    int
	TokenCacheTTL  time.Duration
	StreamKeepTime time.Duration

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	UploadDir     string
	UploadRoute   string
	UploadBaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	allowedOrigins map[string]bool
)

// LoadConfig reads .env (if present) and fills the package settings.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Server
	MAIN_ROUTES = getEnv("MAIN_ROUTES", "/api/v1")
	PUBLIC_ROUTES = getEnv("PUBLIC_ROUTES", "/public/api/v1")
	APP_PORT = getEnv("APP_PORT", "9000")
	PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://127.0.0.1:3000"), "/")
	LogLevel = getEnv("LOG_LEVEL", "info")
	SnowflakeNode = getEnvAsInt("SNOWFLAKE_NODE", 1)
	NotifyWorkers = getEnvAsInt("NOTIFY_WORKERS", 2)
	NotifyQueue = getEnvAsInt("NOTIFY_QUEUE", 256)
	TokenCacheTTL = time.Duration(getEnvAsInt("TOKEN_CACHE_TTL", 300)) * time.Second
	StreamKeepTime = time.Duration(getEnvAsInt("STREAM_KEEPALIVE", 20)) * time.Second

	// JWT
	JWTSecret = getEnv("JWT_SECRET", "freshdock_dev_secret")
	JWTExpiration = getEnvAsInt("JWT_EXPIRATION", 86400)

	// Database
	DBDriver = getEnv("DB_DRIVER", "postgres")
	DBHost = getEnv("DB_HOST", "localhost")
	DBPort = getEnv("DB_PORT", "5432")
	DBUser = getEnv("DB_USER", "postgres")
	DBPassword = getEnv("DB_PASSWORD", "postgres")
	DBName = getEnv("DB_NAME", "freshdock")

	// Mail
	SMTPHost = getEnv("SMTP_HOST", "")
	SMTPPort = getEnvAsInt("SMTP_PORT", 587)
	SMTPUser = getEnv("SMTP_USER", "")
	SMTPPassword = getEnv("SMTP_PASSWORD", "")
	MailFrom = getEnv("MAIL_FROM", "no-reply@freshdock.local")

	// Uploads
	UploadDir = getEnv("UPLOAD_DIR", "./uploads")
	UploadRoute = getEnv("UPLOAD_ROUTE", "/uploads")
	UploadBaseURL = strings.TrimRight(getEnv("UPLOAD_BASE_URL", "http://127.0.0.1:"+APP_PORT+UploadRoute), "/")

	// Event sink
	KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	KafkaTopic = getEnv("KAFKA_TOPIC", "freshdock.dispatch-events")

	loadAllowedOrigins()
}

// MailEnabled reports whether an SMTP relay is configured.
func MailEnabled() bool {
	return SMTPHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadAllowedOrigins() {
	allowedOrigins = make(map[string]bool)
	origins := splitList(getEnv("ALLOWED_ORIGINS", ""))
	if len(origins) == 0 {
		allowedOrigins[PublicBaseURL] = true
		return
	}
	for _, origin := range origins {
		allowedOrigins[origin] = true
	}
}

func SetupCORS(app *fiber.App) {
	allowAny := getEnvAsBool("CORS_ALLOW_ANY", false)
	app.Use(func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if allowAny || allowedOrigins[origin] {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		// preflight
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	})
}
