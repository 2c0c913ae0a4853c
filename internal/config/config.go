package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Agent configures the headless and desktop trackers.
type Agent struct {
	ServerURL         string
	TimelogInterval   time.Duration
	SessionGoal       time.Duration
	HTTPTimeout       time.Duration
	ScreenshotDir     string
	Compress          bool
	JPEGQuality       int
	MaxWidth          uint
	ResumeResetsClock bool

	// Used by the headless agent only.
	Email    string
	Password string
	TaskID   uint
}

// Server configures the reference backend.
type Server struct {
	Port                 string
	DBName               string
	UploadDir            string
	JWTSecret            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	SeedFile             string
}

// Load reads a .env file into the process environment. Missing files are not
// an error: the system environment and defaults still apply.
func Load(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		log.Println("No .env file found, using system defaults.")
	}
}

func LoadAgent() Agent {
	return Agent{
		ServerURL:         getEnv("SERVER_URL", "http://127.0.0.1:5000"),
		TimelogInterval:   getSeconds("TIMELOG_INTERVAL_SEC", 300),
		SessionGoal:       getSeconds("SESSION_GOAL_SEC", 3600),
		HTTPTimeout:       getSeconds("HTTP_TIMEOUT_SEC", 20),
		ScreenshotDir:     getEnv("SCREENSHOT_DIR", filepath.Join(os.TempDir(), "worktracker")),
		Compress:          getBool("SCREENSHOT_COMPRESS", true),
		JPEGQuality:       getInt("SCREENSHOT_JPEG_QUALITY", 70),
		MaxWidth:          uint(getInt("SCREENSHOT_MAX_WIDTH", 0)),
		ResumeResetsClock: getBool("RESUME_RESETS_CLOCK", true),
		Email:             getEnv("EMPLOYEE_EMAIL", ""),
		Password:          getEnv("EMPLOYEE_PASSWORD", ""),
		TaskID:            uint(getInt("TASK_ID", 0)),
	}
}

func LoadServer() Server {
	return Server{
		Port:                 getEnv("SERVER_PORT", ":5000"),
		DBName:               getEnv("DB_NAME", "worktracker.db"),
		UploadDir:            getEnv("UPLOAD_DIR", "./uploads"),
		JWTSecret:            getEnv("JWT_SECRET", "change-me"),
		AccessTokenDuration:  getDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
		RefreshTokenDuration: getDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		SeedFile:             getEnv("SEED_FILE", "seed.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// getSeconds reads whole seconds; zero or garbage means unset.
func getSeconds(key string, fallback int) time.Duration {
	v := getInt(key, fallback)
	if v == 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
