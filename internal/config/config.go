package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
	CookieName  string `mapstructure:"cookie_name"`
	Secure      bool   `mapstructure:"secure"`
}

type SecurityConfig struct {
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console / json
	Output string `mapstructure:"output"` // stdout / stderr / file path
}

// StorageConfig selects where uploaded documents live.
type StorageConfig struct {
	Driver          string `mapstructure:"driver"` // local / gcs
	LocalDir        string `mapstructure:"local_dir"`
	PublicPrefix    string `mapstructure:"public_prefix"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	GCSCredentials  string `mapstructure:"gcs_credentials"`
	MaxUploadSizeMB int64  `mapstructure:"max_upload_size_mb"`
}

type BillingConfig struct {
	DefaultHourlyRate float64 `mapstructure:"default_hourly_rate"`
	DefaultDueDays    int     `mapstructure:"default_due_days"`
}

type BackupConfig struct {
	Dir string `mapstructure:"dir"`
}

type AppSubConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Backup   BackupConfig   `mapstructure:"backup"`
	App      AppSubConfig   `mapstructure:"app"`
}

var (
	appConfig *Config
	once      sync.Once
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.path", "data/lawdesk.db")
	v.SetDefault("jwt.issuer", "lawdesk")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("jwt.cookie_name", "ld_session")
	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "public/uploads")
	v.SetDefault("storage.public_prefix", "/uploads")
	v.SetDefault("storage.max_upload_size_mb", 25)
	v.SetDefault("billing.default_hourly_rate", 300)
	v.SetDefault("billing.default_due_days", 14)
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("app.page_size", 20)
}

// Load loads configuration from given file path (e.g. "config.yaml").
// If path is empty, it defaults to "config.yaml" in current working directory.
// A missing file is not an error when every required value comes from the environment.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		var c *Config
		c, err = read(path)
		if err == nil {
			appConfig = c
		}
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

func read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. LAWDESK_SERVER_PORT=9000
	v.SetEnvPrefix("LAWDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config validation failed: jwt.secret is required")
	}
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("config validation failed: security.encryption_key is required")
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("config validation failed: storage.local_dir is required")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("config validation failed: storage.gcs_bucket is required")
		}
	default:
		return fmt.Errorf("config validation failed: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Billing.DefaultHourlyRate <= 0 {
		return fmt.Errorf("config validation failed: billing.default_hourly_rate must be positive")
	}
	return nil
}
