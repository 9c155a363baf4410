package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/gemelli/tenantcore/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files, looking in the working directory first
// and falling back to the nearest directory containing go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		if root, ok := findModuleRoot(); ok {
			for _, file := range envFiles {
				candidate := filepath.Join(root, file)
				if fs.FileExists(candidate) {
					existing = append(existing, candidate)
				}
			}
		}
	}

	if len(existing) == 0 {
		return 0, nil
	}

	return len(existing), godotenv.Load(existing...)
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// DatabaseOptions describe the master catalog database.
type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"tenantcore"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.Password, d.SSLMode,
	)
}

// TenantPoolOptions bound the per-organization connection pools.
type TenantPoolOptions struct {
	MaxConns        int32         `env:"TENANT_POOL_MAX_CONNS" envDefault:"8"`
	MinConns        int32         `env:"TENANT_POOL_MIN_CONNS" envDefault:"0"`
	MaxConnLifetime time.Duration `env:"TENANT_POOL_MAX_CONN_LIFETIME" envDefault:"30m"`
	MaxConnIdleTime time.Duration `env:"TENANT_POOL_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	SSLMode         string        `env:"TENANT_DB_SSLMODE" envDefault:"disable"`
	ConnectTimeout  time.Duration `env:"TENANT_DB_CONNECT_TIMEOUT" envDefault:"5s"`

	// Transient connect failures are retried this many times at session acquisition.
	AcquireRetries        int           `env:"TENANT_ACQUIRE_RETRIES" envDefault:"3"`
	AcquireInitialBackoff time.Duration `env:"TENANT_ACQUIRE_INITIAL_BACKOFF" envDefault:"100ms"`
	AcquireMaxBackoff     time.Duration `env:"TENANT_ACQUIRE_MAX_BACKOFF" envDefault:"2s"`
}

func (p *TenantPoolOptions) Validate() error {
	if p.MaxConns <= 0 {
		return fmt.Errorf("TENANT_POOL_MAX_CONNS must be positive, got %d", p.MaxConns)
	}
	if p.MinConns < 0 || p.MinConns > p.MaxConns {
		return fmt.Errorf("TENANT_POOL_MIN_CONNS must be within [0, %d], got %d", p.MaxConns, p.MinConns)
	}
	if p.AcquireRetries < 0 {
		return fmt.Errorf("TENANT_ACQUIRE_RETRIES must be non-negative, got %d", p.AcquireRetries)
	}
	return nil
}

type CacheOptions struct {
	Backend  string        `env:"CATALOG_CACHE_BACKEND" envDefault:"memory"` // memory, redis or none
	TTL      time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	RedisURL string        `env:"CATALOG_CACHE_REDIS_URL"`
	Prefix   string        `env:"CATALOG_CACHE_PREFIX" envDefault:"tenantcore:descriptor:"`
}

// Validate checks the cache configuration for errors
func (c *CacheOptions) Validate() error {
	switch c.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("CATALOG_CACHE_BACKEND must be 'memory', 'redis' or 'none', got '%s'", c.Backend)
	}
	if c.Backend == "redis" && c.RedisURL == "" {
		return fmt.Errorf("CATALOG_CACHE_REDIS_URL is required when CATALOG_CACHE_BACKEND is 'redis'")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be positive, got %s", c.TTL)
	}
	return nil
}

// IdentityOptions name the headers the upstream identity gateway injects.
type IdentityOptions struct {
	UserIDHeader       string `env:"IDENTITY_USER_ID_HEADER" envDefault:"X-User-ID"`
	UserNameHeader     string `env:"IDENTITY_USER_NAME_HEADER" envDefault:"X-User-Name"`
	UserEmailHeader    string `env:"IDENTITY_USER_EMAIL_HEADER" envDefault:"X-User-Email"`
	OrganizationHeader string `env:"IDENTITY_ORGANIZATION_HEADER" envDefault:"X-Organization"`
}

type MigrationOptions struct {
	// Tenant migrations run on every create/edit; master migrations run at startup.
	MigrateMasterOnStart bool          `env:"MIGRATE_MASTER_ON_START" envDefault:"true"`
	ProvisionOnFirstUse  bool          `env:"PROVISION_ON_FIRST_USE" envDefault:"true"`
	Timeout              time.Duration `env:"MIGRATION_TIMEOUT" envDefault:"2m"`
	LockID               int64         `env:"MIGRATION_LOCK_ID" envDefault:"5887940537704921958"`
}

type RateLimitOptions struct {
	Enabled   bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	PerTenant int           `env:"RATE_LIMIT_PER_TENANT" envDefault:"100"`
	Period    time.Duration `env:"RATE_LIMIT_PERIOD" envDefault:"1s"`
	Storage   string        `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string        `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.PerTenant <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_TENANT must be positive, got %d", r.PerTenant)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("RATE_LIMIT_STORAGE must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("RATE_LIMIT_REDIS_URL is required when RATE_LIMIT_STORAGE is 'redis'")
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"tenantcore"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type Configuration struct {
	Database      DatabaseOptions
	TenantPool    TenantPoolOptions
	Cache         CacheOptions
	Identity      IdentityOptions
	Migrations    MigrationOptions
	RateLimit     RateLimitOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Looked up on every request; a random uuidv4 is generated when missing.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Browser origins allowed to call the API; empty disables CORS handling.
	CorsAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) Validate() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("catalog cache configuration error: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.TenantPool.Validate(); err != nil {
		return fmt.Errorf("tenant pool configuration error: %w", err)
	}
	if strings.TrimSpace(c.Identity.OrganizationHeader) == "" {
		return fmt.Errorf("IDENTITY_ORGANIZATION_HEADER must not be empty")
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
