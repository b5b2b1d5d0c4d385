package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIPort     string
	AppBaseURL  string
	JWTKey      []byte
	JWTExp      time.Duration
	LogLevel    string
	CORSOrigins []string

	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	DBConnStr   string
	AutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageDriver     string
	StorageLocalDir   string
	FTPHost           string
	FTPPort           string
	FTPUser           string
	FTPPassword       string
	FTPRoot           string
	PublicBaseURL     string
	StorageSigningKey []byte
	SignedURLTTL      time.Duration
	MaxUploadBytes    int64

	Hint1Delay           time.Duration
	Hint2Delay           time.Duration
	AnswerTrimWhitespace bool
	GameStartAt          *time.Time

	SubmissionLockTTLSeconds int
	ScoreQueueName           string
	ScorePointsPerApproval   int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:     getEnv("API_PORT", "8080"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		JWTKey:      []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:      time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "user"),
		DBPassword:  getEnv("DB_PASSWORD", "password"),
		DBName:      getEnv("DB_NAME", "treasure_hunt_db"),
		DBSslMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		StorageDriver:   getEnv("STORAGE_DRIVER", "ftp"),
		StorageLocalDir: getEnv("STORAGE_LOCAL_DIR", "./data/storage"),
		FTPHost:         getEnv("FTP_HOST", "localhost"),
		FTPPort:         getEnv("FTP_PORT", "21"),
		FTPUser:         getEnv("FTP_USER", "anonymous"),
		FTPPassword:     getEnv("FTP_PASSWORD", ""),
		FTPRoot:         getEnv("FTP_ROOT", "/"),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080/api/v1/files"), "/"),
		SignedURLTTL:    getEnvAsDuration("SIGNED_URL_TTL", 24*time.Hour),
		MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		Hint1Delay:           getEnvAsDuration("HINT1_DELAY", 10*time.Minute),
		Hint2Delay:           getEnvAsDuration("HINT2_DELAY", 15*time.Minute),
		AnswerTrimWhitespace: getEnvAsBool("ANSWER_TRIM_WHITESPACE", true),

		SubmissionLockTTLSeconds: getEnvAsInt("SUBMISSION_LOCK_TTL_SECONDS", 30),
		ScoreQueueName:           getEnv("SCORE_QUEUE_NAME", "score_jobs_queue"),
		ScorePointsPerApproval:   getEnvAsInt("SCORE_POINTS_PER_APPROVAL", 10),
	}

	// Signed download links fall back to the session key when no dedicated key is set.
	AppConfig.StorageSigningKey = []byte(getEnv("STORAGE_SIGNING_KEY", string(AppConfig.JWTKey)))

	if raw := getEnv("GAME_START_AT", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			logrus.WithError(err).Warn("GAME_START_AT is not RFC3339, countdown disabled")
		} else {
			AppConfig.GameStartAt = &t
		}
	}

	if AppConfig.Hint1Delay > AppConfig.Hint2Delay {
		logrus.Fatalf("HINT1_DELAY (%s) must not exceed HINT2_DELAY (%s)", AppConfig.Hint1Delay, AppConfig.Hint2Delay)
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("90s", "10m") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
