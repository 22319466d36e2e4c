package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
	"github.com/yigit/applytrack/internal/pkg/helpers"
	"github.com/yigit/applytrack/internal/pkg/validation"
)

// Supported document store drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	maxPoolSize           = 1000
	defaultConnectTimeout = 10 * time.Second
)

// Config structure represents the application configuration
type Config struct {
	Database struct {
		Driver         string `yaml:"driver" env:"DB_DRIVER"`
		URI            string `yaml:"uri" env:"DB_URI"`
		Name           string `yaml:"name" env:"DB_NAME"`
		ConnectTimeout string `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT"`
		MaxPoolSize    int    `yaml:"max_pool_size" env:"DB_MAX_POOL_SIZE"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Security struct {
		BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	} `yaml:"security"`

	Seed struct {
		AdminEmail     string `yaml:"admin_email" env:"SEED_ADMIN_EMAIL"`
		AdminPassword  string `yaml:"admin_password" env:"SEED_ADMIN_PASSWORD"`
		AdminFirstName string `yaml:"admin_first_name" env:"SEED_ADMIN_FIRST_NAME"`
		AdminLastName  string `yaml:"admin_last_name" env:"SEED_ADMIN_LAST_NAME"`
	} `yaml:"seed"`
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// the environment, in that order. envFile, when present on disk, is loaded
// into the process environment first without overriding variables that are
// already set.
func LoadConfig(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	config := &Config{}
	setDefaults(config)

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// defaults + env only
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Database.Driver = DriverMongo
	config.Database.URI = "mongodb://localhost:27017"
	config.Database.Name = "student_tracker"
	config.Database.ConnectTimeout = "10s"
	config.Database.MaxPoolSize = 20

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Security.BcryptCost = 12

	config.Seed.AdminEmail = "admin@example.com"
	config.Seed.AdminPassword = "admin123"
	config.Seed.AdminFirstName = "Admin"
	config.Seed.AdminLastName = "User"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	if err := processStructFields(config); err != nil {
		return err
	}

	// MONGO_URI is what existing deployments export.
	if _, set := os.LookupEnv("DB_URI"); !set {
		if uri, ok := os.LookupEnv("MONGO_URI"); ok && uri != "" {
			config.Database.URI = uri
		}
	}
	return nil
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	config.Database.Driver = strings.ToLower(strings.TrimSpace(config.Database.Driver))
	switch config.Database.Driver {
	case DriverMongo, DriverPostgres:
		if config.Database.URI == "" {
			return fmt.Errorf("database uri is required for driver %q", config.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Database.Driver == DriverMongo && config.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if _, err := time.ParseDuration(config.Database.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid database connect timeout: %w", err)
	}

	if !validation.NewNumericValidation(config.Database.MaxPoolSize).WithMax(maxPoolSize).Validate() {
		return fmt.Errorf("database max pool size must be between 0 and %d", maxPoolSize)
	}

	if !validation.IsEmail(config.Seed.AdminEmail) {
		return fmt.Errorf("seed admin email %q is not a valid email", config.Seed.AdminEmail)
	}
	if !validation.NewStringValidation(config.Seed.AdminPassword).WithMinLength(validation.PasswordMinLength).Validate() {
		return fmt.Errorf("seed admin password must have at least %d characters", validation.PasswordMinLength)
	}

	return nil
}

// ConnectTimeoutDuration returns the parsed connect timeout.
func (c *Config) ConnectTimeoutDuration() time.Duration {
	return helpers.ParseDuration(c.Database.ConnectTimeout, defaultConnectTimeout)
}

// PrettyLogs reports whether console (text) log output was requested.
func (c *Config) PrettyLogs() bool {
	return strings.EqualFold(c.Logging.Format, "text")
}
