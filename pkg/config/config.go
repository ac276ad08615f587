// Package config assembles the server's immutable runtime configuration
// from a config file, environment variables and defaults, validating it
// before the listener binds.
package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/shoresys/httpd/pkg/constants"
	"github.com/shoresys/httpd/pkg/errors"
	"github.com/shoresys/httpd/pkg/tlsconfig"
)

// KeepAliveMode is Off or On.
type KeepAliveMode int

const (
	KeepAliveOff KeepAliveMode = iota
	KeepAliveOn
)

// KeepAlivePolicy is either Off, or On with a timeout, a maximum number of
// requests to serve before closing, and whether to advertise the policy
// with a Keep-Alive response header.
type KeepAlivePolicy struct {
	Mode           KeepAliveMode
	Timeout        time.Duration
	MaxRequests    int
	IncludeHeader  bool
}

// Config is the server's immutable runtime configuration.
type Config struct {
	Root      string
	Port      int
	HTTPS     bool
	CertPath  string
	KeyPath   string
	KeepAlive KeepAlivePolicy
	Timeout   time.Duration
	RulesPath string

	// WatchRules enables hot-reloading RulesPath on write. When false and
	// RulesPath is non-empty, the rule file is loaded once at startup.
	WatchRules bool
	// LogLevel is a level name logrus.ParseLevel accepts, such as "debug",
	// "info", "warn" or "error".
	LogLevel string
	// LogFormat is "text" or "json".
	LogFormat string
	// TLSProfile names a tlsconfig.VersionProfile ("modern", "secure",
	// "compatible" or "legacy"), applied to the TLS listener when HTTPS
	// is enabled.
	TLSProfile string
}

// Default returns the configuration defaults: root "web", port 80, https
// off, keep_alive on with a 10s timeout, 100 max requests, the Keep-Alive
// header advertised, info-level text logging, the secure TLS profile, and
// rule-file hot-reloading enabled.
func Default() Config {
	return Config{
		Root:  constants.DefaultRoot,
		Port:  constants.DefaultPort,
		HTTPS: false,
		KeepAlive: KeepAlivePolicy{
			Mode:          KeepAliveOn,
			Timeout:       constants.DefaultKeepAliveTimeout,
			MaxRequests:   constants.DefaultKeepAliveMaxReqs,
			IncludeHeader: constants.DefaultKeepAliveAdvertise,
		},
		Timeout:    constants.DefaultConnTimeout,
		WatchRules: true,
		LogLevel:   constants.DefaultLogLevel,
		LogFormat:  constants.DefaultLogFormat,
		TLSProfile: constants.DefaultTLSProfile,
	}
}

// Load builds a Config from, in ascending priority, the built-in
// defaults, an optional config file at path (if non-empty), and
// HTTPD_-prefixed environment variables (e.g. HTTPD_PORT).
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("HTTPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", cfg.Root)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("https", cfg.HTTPS)
	v.SetDefault("keep_alive.mode", "on")
	v.SetDefault("keep_alive.timeout_seconds", int(cfg.KeepAlive.Timeout.Seconds()))
	v.SetDefault("keep_alive.max_requests", cfg.KeepAlive.MaxRequests)
	v.SetDefault("keep_alive.include_header", cfg.KeepAlive.IncludeHeader)
	v.SetDefault("timeout_seconds", int(cfg.Timeout.Seconds()))
	v.SetDefault("watch_rules", cfg.WatchRules)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("tls_profile", cfg.TLSProfile)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.NewValidationError("reading config file: " + err.Error())
		}
	}

	cfg.Root = v.GetString("root")
	cfg.Port = v.GetInt("port")
	cfg.HTTPS = v.GetBool("https")
	cfg.CertPath = v.GetString("cert_path")
	cfg.KeyPath = v.GetString("key_path")
	cfg.RulesPath = v.GetString("rules_path")
	cfg.Timeout = time.Duration(v.GetInt("timeout_seconds")) * time.Second
	cfg.WatchRules = v.GetBool("watch_rules")
	cfg.LogLevel = v.GetString("log_level")
	cfg.LogFormat = v.GetString("log_format")
	cfg.TLSProfile = v.GetString("tls_profile")

	if strings.EqualFold(v.GetString("keep_alive.mode"), "off") {
		cfg.KeepAlive = KeepAlivePolicy{Mode: KeepAliveOff}
	} else {
		cfg.KeepAlive = KeepAlivePolicy{
			Mode:          KeepAliveOn,
			Timeout:       time.Duration(v.GetInt("keep_alive.timeout_seconds")) * time.Second,
			MaxRequests:   v.GetInt("keep_alive.max_requests"),
			IncludeHeader: v.GetBool("keep_alive.include_header"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports a *errors.Error of type ErrorTypeValidation for any
// configuration that would make the server unable to start or behave
// per spec.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.NewValidationError("root must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.NewValidationError("port must be between 1 and 65535")
	}
	if c.HTTPS {
		if c.CertPath == "" || c.KeyPath == "" {
			return errors.NewValidationError("cert_path and key_path are required when https is enabled")
		}
	}
	if c.KeepAlive.Mode == KeepAliveOn {
		if c.KeepAlive.Timeout <= 0 {
			return errors.NewValidationError("keep_alive timeout must be positive")
		}
		if c.KeepAlive.MaxRequests <= 0 {
			return errors.NewValidationError("keep_alive max_requests must be positive")
		}
	} else if c.Timeout <= 0 {
		return errors.NewValidationError("timeout must be positive when keep_alive is off")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level must be one of debug, info, warn, error")
	}
	if !strings.EqualFold(c.LogFormat, "text") && !strings.EqualFold(c.LogFormat, "json") {
		return errors.NewValidationError("log_format must be text or json")
	}
	if _, ok := tlsconfig.ProfileByName(c.TLSProfile); !ok {
		return errors.NewValidationError("tls_profile must be one of modern, secure, compatible, legacy")
	}
	return nil
}

// TLSPort returns the port the TLS listener binds to when HTTPS is
// enabled: a fixed well-known port, separate from the plaintext Port.
func (c Config) TLSPort() int {
	return constants.DefaultTLSPort
}
