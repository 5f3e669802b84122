package config

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCodeValidityHours        = 24
	DefaultMaxInvitationMessageLen  = 500
	DefaultEmailValidationPattern   = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	DefaultInvitationAcceptWindowHr = 0
)

type CodeConfig struct {
	ValidityHours     int    `mapstructure:"validity_hours"`
	SupersedePrevious bool   `mapstructure:"supersede_previous"`
	PublicURLTemplate string `mapstructure:"public_url_template"`
	FingerprintKey    string `mapstructure:"fingerprint_key"`
}

// Validity returns the code validity window as a duration.
func (c CodeConfig) Validity() time.Duration {
	return time.Duration(c.ValidityHours) * time.Hour
}

type InvitationConfig struct {
	MaxMessageLength        int    `mapstructure:"max_message_length"`
	EmailPattern            string `mapstructure:"email_pattern"`
	AcceptWindowHours       int    `mapstructure:"accept_window_hours"`
	RegistrationURLTemplate string `mapstructure:"registration_url_template"`
}

// AcceptWindow optionally extends acceptance past code expiry. Zero ties an
// invitation's lifetime to its code's validity window.
func (c InvitationConfig) AcceptWindow() time.Duration {
	return time.Duration(c.AcceptWindowHours) * time.Hour
}

// EmailRegexp compiles EmailPattern.
func (c InvitationConfig) EmailRegexp() (*regexp.Regexp, error) {
	return regexp.Compile(c.EmailPattern)
}

type EmailConfig struct {
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// NotifyOwners mails owners a copy of their in-app notifications.
	NotifyOwners bool `mapstructure:"notify_owners"`
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Config struct {
	DatabaseURL    string           `mapstructure:"database_url"`
	ServerPort     string           `mapstructure:"server_port"`
	JWTSecret      string           `mapstructure:"jwt_secret"`
	HookSecret     string           `mapstructure:"hook_secret"`
	DataKey        string           `mapstructure:"data_key"`
	AllowedOrigins []string         `mapstructure:"allowed_origins"`
	Codes          CodeConfig       `mapstructure:"codes"`
	Invitations    InvitationConfig `mapstructure:"invitations"`
	Email          EmailConfig      `mapstructure:"email"`
	Temporal       TemporalConfig   `mapstructure:"temporal"`
	Worker         WorkerConfig     `mapstructure:"worker"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	cfg, err := Parse(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// Parse applies defaults and environment overrides (DISLINK_CODES_VALIDITY_HOURS
// and so on) to v, then unmarshals and validates the result.
func Parse(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("dislink")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("codes.validity_hours", DefaultCodeValidityHours)
	v.SetDefault("codes.supersede_previous", true)
	v.SetDefault("codes.public_url_template", "https://dislink.app/share/%s")
	v.SetDefault("invitations.max_message_length", DefaultMaxInvitationMessageLen)
	v.SetDefault("invitations.email_pattern", DefaultEmailValidationPattern)
	v.SetDefault("invitations.accept_window_hours", DefaultInvitationAcceptWindowHr)
	v.SetDefault("invitations.registration_url_template", "https://dislink.app/register?invitation=%s")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("worker.sweep_interval", 5*time.Minute)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if config.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret must be set")
	}
	if config.HookSecret == "" {
		return nil, fmt.Errorf("hook_secret must be set")
	}
	if config.DataKey == "" {
		return nil, fmt.Errorf("data_key must be set")
	}
	if config.Codes.ValidityHours <= 0 {
		return nil, fmt.Errorf("codes.validity_hours must be positive")
	}
	if config.Invitations.MaxMessageLength <= 0 {
		return nil, fmt.Errorf("invitations.max_message_length must be positive")
	}
	if config.Invitations.AcceptWindowHours < 0 {
		return nil, fmt.Errorf("invitations.accept_window_hours must not be negative")
	}
	if _, err := config.Invitations.EmailRegexp(); err != nil {
		return nil, fmt.Errorf("invitations.email_pattern: %w", err)
	}
	if !strings.Contains(config.Codes.PublicURLTemplate, "%s") {
		return nil, fmt.Errorf("codes.public_url_template must contain %%s")
	}
	if !strings.Contains(config.Invitations.RegistrationURLTemplate, "%s") {
		return nil, fmt.Errorf("invitations.registration_url_template must contain %%s")
	}
	if config.Worker.SweepInterval <= 0 {
		config.Worker.SweepInterval = 5 * time.Minute
	}

	return &config, nil
}
