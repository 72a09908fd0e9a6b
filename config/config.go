package config

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv             string
	AppPort            string
	AllowedOrigins     string
	DBDriver           string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	DBMaxIdleConns     int
	DBMaxOpenConns     int
	NatsURL            string
	JWTSecret          string
	JWTExpirationHours int
	WSSendQueueSize    int
	LogLevel           string
	LogFormat          string
}

var defaults = map[string]interface{}{
	"APP_ENV":              "development",
	"APP_PORT":             "8080",
	"ALLOWED_ORIGINS":      "*",
	"DB_DRIVER":            "postgres",
	"DB_HOST":              "localhost",
	"DB_PORT":              "5432",
	"DB_USER":              "notewiz",
	"DB_PASSWORD":          "notewiz",
	"DB_NAME":              "notewiz",
	"DB_MAX_IDLE_CONNS":    10,
	"DB_MAX_OPEN_CONNS":    100,
	"NATS_URL":             "nats://localhost:4222",
	"JWT_SECRET":           "your-super-secret-key-change-this-in-production",
	"JWT_EXPIRATION_HOURS": 24,
	"WS_SEND_QUEUE_SIZE":   256,
	"LOG_LEVEL":            "info",
	"LOG_FORMAT":           "console",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the environment, optionally layered on top of
// the file named by CONFIG_FILE.
func Load() Config {
	v := newViper()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to read config file, using environment only")
		} else {
			log.Info().Str("path", path).Msg("Loaded config file")
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	queueSize := v.GetInt("WS_SEND_QUEUE_SIZE")
	if queueSize <= 0 {
		log.Warn().Int("value", queueSize).Msg("Invalid WS_SEND_QUEUE_SIZE, defaulting to 256")
		queueSize = 256
	}

	return Config{
		AppEnv:             v.GetString("APP_ENV"),
		AppPort:            v.GetString("APP_PORT"),
		AllowedOrigins:     v.GetString("ALLOWED_ORIGINS"),
		DBDriver:           strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:             v.GetString("DB_HOST"),
		DBPort:             v.GetString("DB_PORT"),
		DBUser:             v.GetString("DB_USER"),
		DBPassword:         v.GetString("DB_PASSWORD"),
		DBName:             v.GetString("DB_NAME"),
		DBMaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		DBMaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		NatsURL:            v.GetString("NATS_URL"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpirationHours: v.GetInt("JWT_EXPIRATION_HOURS"),
		WSSendQueueSize:    queueSize,
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
	}
}
