package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Meeting provider modes.
const (
	MeetingProviderZoom      = "zoom"
	MeetingProviderSimulated = "simulated"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Timezone used to decide what "today" is and to combine an
	// appointment's date and display time into an instant.
	AppointmentTimezone string

	// Video meeting provider
	MeetingProvider            string
	MeetingAPIBaseURL          string
	MeetingTokenURL            string
	MeetingAccountID           string
	MeetingClientID            string
	MeetingClientSecret        string
	MeetingDefaultDurationMins int
	MeetingHTTPTimeout         time.Duration
	MeetingRateLimitRPS        float64
	MeetingRateLimitBurst      int
	TokenSafetyMargin          time.Duration
	SimulatedTokenTTL          time.Duration
	SimulatedMeetingBaseURL    string

	// Shared credential cache (optional)
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	HTTPRateLimitRPS   float64
	HTTPRateLimitBurst int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:                       getEnv("PORT", "8080"),
		Env:                        getEnv("ENV", "development"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		AppointmentTimezone:        getEnv("APPOINTMENT_TIMEZONE", "UTC"),
		MeetingProvider:            strings.ToLower(strings.TrimSpace(getEnv("MEETING_PROVIDER", MeetingProviderZoom))),
		MeetingAPIBaseURL:          getEnv("MEETING_API_BASE_URL", "https://api.zoom.us/v2"),
		MeetingTokenURL:            getEnv("MEETING_TOKEN_URL", "https://zoom.us/oauth/token"),
		MeetingAccountID:           getEnv("MEETING_ACCOUNT_ID", ""),
		MeetingClientID:            getEnv("MEETING_CLIENT_ID", ""),
		MeetingClientSecret:        getEnv("MEETING_CLIENT_SECRET", ""),
		MeetingDefaultDurationMins: getEnvAsInt("MEETING_DEFAULT_DURATION_MINS", 30),
		MeetingHTTPTimeout:         getEnvAsDuration("MEETING_HTTP_TIMEOUT", 15*time.Second),
		MeetingRateLimitRPS:        getEnvAsFloat("MEETING_RATE_LIMIT_RPS", 10),
		MeetingRateLimitBurst:      getEnvAsInt("MEETING_RATE_LIMIT_BURST", 20),
		TokenSafetyMargin:          getEnvAsDuration("TOKEN_SAFETY_MARGIN", 5*time.Minute),
		SimulatedTokenTTL:          getEnvAsDuration("SIMULATED_TOKEN_TTL", 10*time.Minute),
		SimulatedMeetingBaseURL:    getEnv("SIMULATED_MEETING_BASE_URL", "https://simulated-meetings.invalid"),
		RedisAddr:                  getEnv("REDIS_ADDR", ""),
		RedisPassword:              getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                   getEnvAsBool("REDIS_TLS", false),
		HTTPRateLimitRPS:           getEnvAsFloat("HTTP_RATE_LIMIT_RPS", 20),
		HTTPRateLimitBurst:         getEnvAsInt("HTTP_RATE_LIMIT_BURST", 40),
	}
}

// Location resolves AppointmentTimezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || strings.TrimSpace(c.AppointmentTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.AppointmentTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UseSimulatedMeetings reports whether the provider should never be called.
// Missing credentials force simulation so a bare dev setup still books.
func (c *Config) UseSimulatedMeetings() bool {
	if c.MeetingProvider == MeetingProviderSimulated {
		return true
	}
	return c.MeetingClientID == "" || c.MeetingClientSecret == ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
