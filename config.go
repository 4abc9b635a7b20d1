package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment variables read by the App.
const EnvPrefix = "CRBR"

const (
	DefaultPort       = "3000"
	DefaultSQLiteFile = "classicReads.sqlite"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string        `yaml:"git_commit" envconfig:"CRBR_GIT_COMMIT" json:"git_commit"`
	GitTag             string        `yaml:"git_tag" envconfig:"CRBR_GIT_TAG" json:"git_tag"`
	BuildTime          string        `yaml:"build_time" envconfig:"CRBR_BUILD_TIME" json:"build_time"`
	IsProduction       bool          `yaml:"is_production" envconfig:"CRBR_IS_PRODUCTION" json:"is_production"`
	LogLevel           zapcore.Level `yaml:"log_level" envconfig:"CRBR_LOG_LEVEL" json:"log_level"`
	LogFile            string        `yaml:"log_file" envconfig:"CRBR_LOG_FILE" json:"log_file"`
	OpsEndpointsEnable bool          `yaml:"ops_endpoints_enable" envconfig:"CRBR_OPS_ENDPOINTS_ENABLE" json:"ops_endpoints_enable"`
	ProfilerEnable     bool          `yaml:"profiler_enable" envconfig:"CRBR_PROFILER_ENABLE" json:"profiler_enable"`
	Server             ServerConfig  `yaml:"server" json:"server"`
	Store              StoreConfig   `yaml:"store" json:"store"`
	Archive            ArchiveConfig `yaml:"archive" json:"archive"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"CRBR_SERVER_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"CRBR_SERVER_PORT" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"CRBR_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"CRBR_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"CRBR_SERVER_REQUEST_TIMEOUT" json:"request_timeout"` // zero disables the timeout handler
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"CRBR_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
	StaticDir       string        `yaml:"static_dir" envconfig:"CRBR_SERVER_STATIC_DIR" json:"static_dir"`
	LandingPage     string        `yaml:"landing_page" envconfig:"CRBR_SERVER_LANDING_PAGE" json:"landing_page"`
	RateLimit       float64       `yaml:"rate_limit" envconfig:"CRBR_SERVER_RATE_LIMIT" json:"rate_limit"` // submissions per second and per client ip, zero disables
	RateBurst       int           `yaml:"rate_burst" envconfig:"CRBR_SERVER_RATE_BURST" json:"rate_burst"`
	TrustProxy      bool          `yaml:"trust_proxy" envconfig:"CRBR_SERVER_TRUST_PROXY" json:"trust_proxy"` // honor X-Real-IP and X-Forwarded-For
}

type StoreConfig struct {
	Driver      string        `yaml:"driver" envconfig:"CRBR_STORE_DRIVER" json:"driver"`
	DSN         string        `yaml:"dsn" envconfig:"CRBR_STORE_DSN" json:"-"`
	PingTimeout time.Duration `yaml:"ping_timeout" envconfig:"CRBR_STORE_PING_TIMEOUT" json:"ping_timeout"`
}

type ArchiveConfig struct {
	Enabled   bool         `yaml:"enabled" envconfig:"CRBR_ARCHIVE_ENABLED" json:"enabled"`
	QueueName string       `yaml:"queue_name" envconfig:"CRBR_ARCHIVE_QUEUE_NAME" json:"queue_name"`
	Redis     RedisConfig  `yaml:"redis" json:"redis"`
	BoltDB    BoltDBConfig `yaml:"boltdb" json:"boltdb"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"CRBR_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"CRBR_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"CRBR_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"CRBR_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"CRBR_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"CRBR_REDIS_POOL_SIZE" json:"pool_size"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"CRBR_REDIS_POOL_TIMEOUT" json:"pool_timeout"`
	Username      string        `yaml:"username" envconfig:"CRBR_REDIS_USERNAME" json:"-"`
	Password      string        `yaml:"password" envconfig:"CRBR_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"CRBR_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"CRBR_BOLTDB_FILE_PATH" json:"filepath"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"CRBR_BOLTDB_TIMEOUT" json:"timeout"`
	BucketName string        `yaml:"bucket_name" envconfig:"CRBR_BOLTDB_BUCKET_NAME" json:"bucket_name"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides matching App config values.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Port) == 0 {
		config.Server.Port = DefaultPort
	}

	switch config.Store.Driver {
	case "":
		config.Store.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}

	if len(config.Store.DSN) == 0 {
		if config.Store.Driver != DriverSQLite {
			return errors.New("make sure to set valid store dsn in configuration file")
		}
		config.Store.DSN = DefaultSQLiteFile
	}

	if config.Store.PingTimeout == 0 {
		config.Store.PingTimeout = 5 * time.Second
	}

	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if len(config.Server.StaticDir) == 0 {
		config.Server.StaticDir = "public_html"
	}

	if len(config.Server.LandingPage) == 0 {
		config.Server.LandingPage = "/home.html"
	}

	if len(config.LogFile) == 0 {
		config.LogFile = "logs/app.log"
	}

	if config.Archive.Enabled {
		if len(config.Archive.Redis.Host) == 0 || len(config.Archive.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port when archive is enabled")
		}
		if len(config.Archive.BoltDB.FilePath) == 0 || len(config.Archive.BoltDB.BucketName) == 0 {
			return errors.New("make sure to set valid boltdb file and bucket when archive is enabled")
		}
		if len(config.Archive.QueueName) == 0 {
			config.Archive.QueueName = ArchiveQueue
		}
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// the env file is optional. variables may come from the real environment.
	err = godotenv.Load(envFile)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Printf("config: env file %s not found. using process environment only.\n", envFile)
	} else if err != nil {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
