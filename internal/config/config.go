package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// Storage
	StorageDriver string // "filesystem" or "s3"
	UploadDir     string
	S3BucketName  string
	S3Endpoint    string

	// OCR
	OCRProvider           string // "vision", "rekognition", "tesseract"
	GoogleCredentialsFile string

	// History; empty DBHost disables it
	DBDriver   string // "pgx" or "postgres"
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// OCR text cache; empty RedisAddr disables it
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	OCRCacheTTL   time.Duration

	AWSRegion         string
	SQSUploadQueueURL string
	IoTMQTTEndpoint   string
	IoTPlateTopic     string

	JWTSecret          string
	JWTExpirationHours time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	cacheTTLMinutes, _ := strconv.Atoi(getEnv("OCR_CACHE_TTL_MINUTES", "1440"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "3000"),

		StorageDriver: getEnv("STORAGE_DRIVER", "filesystem"),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		S3BucketName:  getEnv("S3_BUCKET_NAME", ""),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),

		OCRProvider:           getEnv("OCR_PROVIDER", "vision"),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		DBDriver:   getEnv("DB_DRIVER", "pgx"),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "plate_readings"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		OCRCacheTTL:   time.Duration(cacheTTLMinutes) * time.Minute,

		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SQSUploadQueueURL: getEnv("SQS_UPLOAD_QUEUE_URL", ""),
		IoTMQTTEndpoint:   getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTPlateTopic:     getEnv("IOT_PLATE_TOPIC", "lpr/plates"),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,
	}
}

// HistoryEnabled reports whether readings are persisted to PostgreSQL.
func (c *Config) HistoryEnabled() bool { return c.DBHost != "" }

// CacheEnabled reports whether OCR text is cached in Redis.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable '%s' not set, using default: '%s'", key, fallback)
	return fallback
}
