package config

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type DatabaseConfig struct {
	Driver          string // postgres, mysql or sqlite
	URI             string // full DSN, takes precedence over the individual parts
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled      bool
	URI          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type WebSocketConfig struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
	HandlerTimeout time.Duration
	StatsInterval  time.Duration
}

type RateLimitConfig struct {
	SocketActions int
	SocketWindow  time.Duration
	APIRequests   int
	APIWindow     time.Duration
	Connections   int
	ConnWindow    time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CIVIC_HOST", "")
	v.SetDefault("CIVIC_PORT", "8080")
	v.SetDefault("CIVIC_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("CIVIC_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("CIVIC_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("CIVIC_SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "password")
	v.SetDefault("POSTGRES_DB", "civic")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 50)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("REDIS_MAX_RETRIES", 3)
	v.SetDefault("REDIS_POOL_SIZE", 100)
	v.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
	v.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)

	v.SetDefault("CIVIC_JWT_SECRET", "secret")
	v.SetDefault("CIVIC_JWT_ISSUER", "")

	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("WS_MAX_MESSAGE_SIZE", 64*1024)
	v.SetDefault("WS_PONG_WAIT", 60*time.Second)
	v.SetDefault("WS_WRITE_WAIT", 10*time.Second)
	v.SetDefault("WS_HANDLER_TIMEOUT", 10*time.Second)
	v.SetDefault("WS_STATS_INTERVAL", time.Minute)

	v.SetDefault("RATE_LIMIT_SOCKET_ACTIONS", 30)
	v.SetDefault("RATE_LIMIT_SOCKET_WINDOW", 10*time.Second)
	v.SetDefault("RATE_LIMIT_API_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_API_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_CONNECTIONS", 10)
	v.SetDefault("RATE_LIMIT_CONN_WINDOW", time.Minute)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// LoadConfig reads .env (when present) and the process environment once.
func LoadConfig() (*Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
		ConfigInstance = Load(viper.New())
	})

	return ConfigInstance, nil
}

// Load builds a Config from v without caching. Callers that need an isolated
// instance (tests, tools) use this instead of LoadConfig.
func Load(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Host:            v.GetString("CIVIC_HOST"),
			Port:            v.GetString("CIVIC_PORT"),
			ReadTimeout:     v.GetDuration("CIVIC_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("CIVIC_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("CIVIC_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("CIVIC_SHUTDOWN_TIMEOUT"),
			AllowedOrigins:  splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			URI:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetString("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			DBName:          v.GetString("POSTGRES_DB"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Enabled:      v.GetBool("REDIS_ENABLED"),
			URI:          v.GetString("REDIS_URL"),
			MaxRetries:   v.GetInt("REDIS_MAX_RETRIES"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: v.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("CIVIC_JWT_SECRET"),
			Issuer: v.GetString("CIVIC_JWT_ISSUER"),
		},
		WebSocket: WebSocketConfig{
			SendBufferSize: v.GetInt("WS_SEND_BUFFER"),
			MaxMessageSize: v.GetInt64("WS_MAX_MESSAGE_SIZE"),
			PongWait:       v.GetDuration("WS_PONG_WAIT"),
			WriteWait:      v.GetDuration("WS_WRITE_WAIT"),
			HandlerTimeout: v.GetDuration("WS_HANDLER_TIMEOUT"),
			StatsInterval:  v.GetDuration("WS_STATS_INTERVAL"),
		},
		RateLimit: RateLimitConfig{
			SocketActions: v.GetInt("RATE_LIMIT_SOCKET_ACTIONS"),
			SocketWindow:  v.GetDuration("RATE_LIMIT_SOCKET_WINDOW"),
			APIRequests:   v.GetInt("RATE_LIMIT_API_REQUESTS"),
			APIWindow:     v.GetDuration("RATE_LIMIT_API_WINDOW"),
			Connections:   v.GetInt("RATE_LIMIT_CONNECTIONS"),
			ConnWindow:    v.GetDuration("RATE_LIMIT_CONN_WINDOW"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
