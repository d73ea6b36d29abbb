package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/onepay-cm/onepay/internal/logger"
)

const (
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultWorkers      = 10

	defaultOrangeAddr = "https://api.orange.cm"
	defaultMTNAddr    = "https://momodeveloper.mtn.com"
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Database to connect to
	DatabaseDSN string

	// Redis address for the limits and balance caches.
	// When empty the in-memory cache is used instead
	RedisAddr     string
	RedisPassword string

	// Message bus worker count
	Workers int

	// Orange Money API
	OrangeAddr      string
	OrangeAPIKey    string
	OrangeAPISecret string

	// MTN MoMo API
	MTNAddr            string
	MTNSubscriptionKey string
	MTNAPIToken        string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
		Workers:     defaultWorkers,
		OrangeAddr:  defaultOrangeAddr,
		MTNAddr:     defaultMTNAddr,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}
	setInt := func(o *int) func(value string) {
		return func(value string) {
			if parsed, err := strconv.Atoi(value); err == nil {
				*o = parsed
			}
		}
	}

	envMap := map[string]func(string){
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
		"REDIS_ADDRESS":        setString(&c.RedisAddr),
		"REDIS_PASSWORD":       setString(&c.RedisPassword),
		"BUS_WORKERS":          setInt(&c.Workers),
		"ORANGE_API_ADDRESS":   setString(&c.OrangeAddr),
		"ORANGE_API_KEY":       setString(&c.OrangeAPIKey),
		"ORANGE_API_SECRET":    setString(&c.OrangeAPISecret),
		"MTN_API_ADDRESS":      setString(&c.MTNAddr),
		"MTN_SUBSCRIPTION_KEY": setString(&c.MTNSubscriptionKey),
		"MTN_API_TOKEN":        setString(&c.MTNAPIToken),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("onepay", pflag.ContinueOnError)

	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address, empty for in-memory cache")
	fs.IntVarP(&c.Workers, "workers", "w", c.Workers, "Message bus worker count")

	return fs.Parse(args)
}
