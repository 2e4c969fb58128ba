package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret string
		// RequireCode withholds session tokens from enrolled users until their code is verified.
		RequireCode bool
	}
	Authy struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
		Region  string
	}
	Storage struct {
		Bucket        string
		KeyPrefix     string
		Region        string
		Endpoint      string
		PublicBaseURL string
	}
	AWS struct {
		Profile string
	}
	Events struct {
		MaxBacklog int
	}
	RateLimit struct {
		RPS   float64
		Burst int
	}
}

// Load reads configuration from environment variables, an optional .env file
// and an optional config file in the working directory.
func Load() (Config, error) {
	// variables already present in the environment win over .env entries
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("WORKORDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.shutdowntimeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "data/workorders.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.requirecode", false)
	v.SetDefault("authy.apikey", "")
	v.SetDefault("authy.baseurl", "https://api.authy.com")
	v.SetDefault("authy.timeout", 10*time.Second)
	v.SetDefault("authy.region", "US")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "comment-photos")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicbaseurl", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("events.maxbacklog", 0)
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the process cannot start without.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwtsecret is required"))
	}
	if strings.TrimSpace(c.Authy.APIKey) == "" {
		errs = append(errs, errors.New("authy.apikey is required"))
	}
	if c.Authy.Timeout <= 0 {
		errs = append(errs, errors.New("authy.timeout must be positive"))
	}
	if c.Events.MaxBacklog < 0 {
		errs = append(errs, errors.New("events.maxbacklog cannot be negative"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("ratelimit.rps and ratelimit.burst must be positive"))
	}
	return errors.Join(errs...)
}
