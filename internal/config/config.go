package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/pos-invoice/internal/core/engine"
)

type Backend string

const (
	BackendXLSX   Backend = "xlsx"
	BackendMySQL  Backend = "mysql"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

type Config struct {
	Backend  Backend
	HTTPPort string
	GRPCPort string

	MySQLDSN      string
	RedisAddr     string
	ProductsFile  string
	InvoicesFile  string
	MigrateOnBoot bool

	BusinessName    string
	PromoText       string
	CurrencySymbol  string
	DuplicatePolicy engine.DuplicatePolicy

	LockTTL            time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	BreakerTimeout     time.Duration
	BreakerMaxFailures uint32

	LogDev bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var errs []error

	policy, err := engine.ParseDuplicatePolicy(getEnv("DUPLICATE_POLICY", string(engine.RejectDuplicates)))
	errs = append(errs, err)

	lockTTL, err := getEnvDuration("LOCK_TTL", 10*time.Second)
	errs = append(errs, err)
	requestTimeout, err := getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	errs = append(errs, err)
	shutdownTimeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	errs = append(errs, err)
	breakerTimeout, err := getEnvDuration("BREAKER_TIMEOUT", 30*time.Second)
	errs = append(errs, err)
	maxFailures, err := getEnvInt("BREAKER_MAX_FAILURES", 5)
	errs = append(errs, err)
	migrate, err := getEnvBool("MIGRATE_ON_BOOT", true)
	errs = append(errs, err)
	logDev, err := getEnvBool("LOG_DEV", false)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg := &Config{
		Backend:            Backend(strings.ToLower(getEnv("POS_BACKEND", string(BackendXLSX)))),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50051"),
		MySQLDSN:           getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/pos?parseTime=true"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		ProductsFile:       getEnv("PRODUCTS_FILE", "products.xlsx"),
		InvoicesFile:       getEnv("INVOICES_FILE", "customers.xlsx"),
		MigrateOnBoot:      migrate,
		BusinessName:       getEnv("BUSINESS_NAME", "The Artsy Retreat"),
		PromoText:          getEnv("PROMO_TEXT", "We are happy to inform you that we do conduct workshops. If interested please ping us back!"),
		CurrencySymbol:     getEnv("CURRENCY_SYMBOL", "$"),
		DuplicatePolicy:    policy,
		LockTTL:            lockTTL,
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		BreakerTimeout:     breakerTimeout,
		BreakerMaxFailures: uint32(maxFailures),
		LogDev:             logDev,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendXLSX:
		if c.ProductsFile == "" || c.InvoicesFile == "" {
			return errors.New("xlsx backend requires PRODUCTS_FILE and INVOICES_FILE")
		}
	case BackendMySQL:
		if c.MySQLDSN == "" {
			return errors.New("mysql backend requires MYSQL_DSN")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis backend requires REDIS_ADDR")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown POS_BACKEND %q", c.Backend)
	}

	if c.BusinessName == "" {
		return errors.New("BUSINESS_NAME must not be empty")
	}
	if c.BreakerMaxFailures == 0 {
		return errors.New("BREAKER_MAX_FAILURES must be positive")
	}
	return nil
}

// Remote reports whether the backend is reached over the network.
func (c *Config) Remote() bool {
	return c.Backend == BackendMySQL || c.Backend == BackendRedis
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid non-negative integer %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}
