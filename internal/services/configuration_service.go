package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"calmchat/internal/logger"
	"calmchat/pkg/chattypes"
)

// Configuration keys understood by calmchat.
const (
	ConfigLogLevel          = "log-level"
	ConfigLogFile           = "log-file"
	ConfigTestMode          = "test-mode"
	ConfigAttemptTimeout    = "attempt-timeout"
	ConfigQuickReplyTimeout = "quick-reply-timeout"
	ConfigMaxOutputTokens   = "max-output-tokens"
	ConfigUserName          = "user.name"
	ConfigUserOccupation    = "user.occupation"
	ConfigUserHabits        = "user.habits"
	ConfigUserHobbies       = "user.hobbies"
)

// EnvPrefix is prepended to every environment variable read through viper.
const EnvPrefix = "CALMCHAT"

// ConfigurationService loads calmchat settings from layered sources.
// Priority (highest to lowest): flags bound on the viper instance >
// CALMCHAT_* environment variables > local .env > config .env >
// config.yaml > defaults.
type ConfigurationService struct {
	initialized bool
	v           *viper.Viper
	configDir   string
	workDir     string
}

// NewConfigurationService creates a ConfigurationService backed by v.
// A nil v gets a fresh viper instance.
func NewConfigurationService(v *viper.Viper) *ConfigurationService {
	if v == nil {
		v = viper.New()
	}
	return &ConfigurationService{
		initialized: false,
		v:           v,
	}
}

// Name returns the service name "configuration" for registration.
func (c *ConfigurationService) Name() string {
	return "configuration"
}

// SetPaths overrides the configuration and working directories.
// It must be called before Initialize.
func (c *ConfigurationService) SetPaths(configDir, workDir string) {
	c.configDir = configDir
	c.workDir = workDir
}

// Initialize loads defaults, .env files, config.yaml and the environment.
func (c *ConfigurationService) Initialize() error {
	if c.initialized {
		return nil
	}
	logger.ServiceOperation("configuration", "initialize", "starting")

	if err := c.resolvePaths(); err != nil {
		return err
	}

	c.v.SetDefault(ConfigLogLevel, "info")
	c.v.SetDefault(ConfigAttemptTimeout, 60*time.Second)
	c.v.SetDefault(ConfigQuickReplyTimeout, 20*time.Second)
	c.v.SetDefault(ConfigMaxOutputTokens, 1024)

	// godotenv never overrides variables that are already set, so the local
	// file is loaded first to win over the config directory one.
	for _, path := range []string{
		filepath.Join(c.workDir, ".env"),
		filepath.Join(c.configDir, ".env"),
	} {
		if !fileExists(path) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		logger.Debug("Loaded env file", "path", path)
	}

	c.v.SetConfigName("config")
	c.v.SetConfigType("yaml")
	c.v.AddConfigPath(c.configDir)
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		logger.Debug("Loaded config file", "path", c.v.ConfigFileUsed())
	}

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	c.initialized = true
	logger.ServiceOperation("configuration", "initialize", "completed")
	return nil
}

func (c *ConfigurationService) resolvePaths() error {
	if c.configDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config directory: %w", err)
		}
		c.configDir = filepath.Join(base, "calmchat")
	}
	if c.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		c.workDir = wd
	}
	return nil
}

// GetAPIKey returns the API key stored under envVar.
// CALMCHAT_<envVar> wins over an api_keys entry in config.yaml, which wins
// over the plain environment variable.
func (c *ConfigurationService) GetAPIKey(envVar string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}
	if envVar == "" {
		return "", fmt.Errorf("API key variable name cannot be empty")
	}

	if key := strings.TrimSpace(os.Getenv(EnvPrefix + "_" + envVar)); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(c.v.GetString("api_keys." + strings.ToLower(envVar))); key != "" {
		return key, nil
	}
	if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("API key not configured (expected %s_%s or %s)", EnvPrefix, envVar, envVar)
}

// AttemptTimeout bounds a single backend call during failover.
func (c *ConfigurationService) AttemptTimeout() time.Duration {
	return c.v.GetDuration(ConfigAttemptTimeout)
}

// QuickReplyTimeout bounds the quick-reply request.
func (c *ConfigurationService) QuickReplyTimeout() time.Duration {
	return c.v.GetDuration(ConfigQuickReplyTimeout)
}

// MaxOutputTokens is the default reply length limit for providers that do
// not set their own.
func (c *ConfigurationService) MaxOutputTokens() int {
	return c.v.GetInt(ConfigMaxOutputTokens)
}

// TestMode reports whether deterministic test mode is enabled.
func (c *ConfigurationService) TestMode() bool {
	return c.v.GetBool(ConfigTestMode)
}

// UserProfile returns the profile fields used to build system instructions.
func (c *ConfigurationService) UserProfile() chattypes.UserProfile {
	return chattypes.UserProfile{
		Name:       c.v.GetString(ConfigUserName),
		Occupation: c.v.GetString(ConfigUserOccupation),
		Habits:     c.v.GetString(ConfigUserHabits),
		Hobbies:    c.v.GetString(ConfigUserHobbies),
	}
}

// GetConfigValue returns a raw configuration value as a string.
func (c *ConfigurationService) GetConfigValue(key string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}
	return c.v.GetString(key), nil
}

// SetConfigValue overrides a configuration value. Primarily for tests.
func (c *ConfigurationService) SetConfigValue(key string, value interface{}) error {
	if !c.initialized {
		return fmt.Errorf("configuration service not initialized")
	}
	c.v.Set(key, value)
	return nil
}

// ConfigDir returns the resolved configuration directory.
func (c *ConfigurationService) ConfigDir() string {
	return c.configDir
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
