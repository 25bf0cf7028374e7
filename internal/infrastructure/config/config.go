package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	EventsTopic   string
	PaymentsTopic string
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
	TLS           bool
}

// RedisConfig enables the shared lock when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	LockWait time.Duration
}

type JWTConfig struct {
	Secret        string
	PublicKeyPEM  string
	PublicKeyFile string
	Issuer        string
}

type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

// ScheduleConfig holds cron expressions for background jobs. An empty
// expression disables the job.
type ScheduleConfig struct {
	PenaltySweep  string
	SuspenseSweep string
	OutboxRelay   string
	OutboxBatch   int
}

type Config struct {
	GRPCPort     int
	HTTPPort     int
	ServiceName  string
	LogLevel     string
	LogFormat    string
	OTLPEndpoint string
	Reflection   bool

	// Storage selects "postgres" or "memory". SeedFile preloads products
	// and customers into memory storage.
	Storage  string
	SeedFile string
	DB       DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	JWT      JWTConfig
	TLS      TLSConfig
	Jobs     ScheduleConfig

	WorkerPoolSize     int
	MaxRestructureTerm int
}

// Validate reports configuration that cannot start the service.
func (c Config) Validate() error {
	var errs []error
	if c.Storage != "postgres" && c.Storage != "memory" {
		errs = append(errs, fmt.Errorf("STORAGE must be postgres or memory, got %q", c.Storage))
	}
	if c.Storage == "postgres" && c.DB.Password == "" {
		errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
	}
	if c.JWT.Secret == "" && c.JWT.PublicKeyPEM == "" && c.JWT.PublicKeyFile == "" {
		errs = append(errs, errors.New("one of JWT_SECRET, JWT_PUBLIC_KEY or JWT_PUBLIC_KEY_FILE is required"))
	}
	if c.WorkerPoolSize <= 0 {
		errs = append(errs, errors.New("WORKER_POOL_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads the environment, after merging a .env file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	maxConns := getEnvInt("DB_MAX_CONNS", 10)
	return Config{
		GRPCPort:     getEnvInt("GRPC_PORT", 9090),
		HTTPPort:     getEnvInt("HTTP_PORT", 8080),
		ServiceName:  getEnv("SERVICE_NAME", "loand"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Reflection:   getEnvBool("GRPC_REFLECTION", false),
		Storage:      getEnv("STORAGE", "postgres"),
		SeedFile:     getEnv("SEED_FILE", ""),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "sacco"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "sacco_lending"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: int32(maxConns),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", "localhost:9092"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "loand"),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "sacco.lending.events"),
			PaymentsTopic: getEnv("KAFKA_PAYMENTS_TOPIC", "sacco.payments.incoming"),
			SASLEnabled:   getEnvBool("KAFKA_SASL_ENABLED", false),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
			TLS:           getEnvBool("KAFKA_TLS", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("LOCK_TTL", 30*time.Second),
			LockWait: getEnvDuration("LOCK_WAIT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			PublicKeyPEM:  getEnv("JWT_PUBLIC_KEY", ""),
			PublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			Issuer:        getEnv("JWT_ISSUER", "sacco-gateway"),
		},
		TLS: TLSConfig{
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			ClientCAFile: getEnv("TLS_CLIENT_CA_FILE", ""),
		},
		Jobs: ScheduleConfig{
			PenaltySweep:  getEnv("PENALTY_SWEEP_CRON", "0 1 * * *"),
			SuspenseSweep: getEnv("SUSPENSE_SWEEP_CRON", "*/15 * * * *"),
			OutboxRelay:   getEnv("OUTBOX_RELAY_CRON", "@every 2s"),
			OutboxBatch:   getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		WorkerPoolSize:     getEnvInt("WORKER_POOL_SIZE", maxConns),
		MaxRestructureTerm: getEnvInt("MAX_RESTRUCTURE_TERM", 120),
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
