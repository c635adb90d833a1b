package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the driver process.
// All values come from env (or an env-file loaded by the process runner).
// No package below cmd/ reads environment variables directly.
type Config struct {
	App    AppConfig
	Device DeviceConfig
	Redis  RedisConfig
	Auth   AuthConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DeviceConfig struct {
	Host string
	// Port is optional; zero means the scheme default.
	Port     int
	Scheme   string
	Username string
	Password string

	// Auth is basic or digest.
	Auth        string
	InsecureTLS bool
	Timeout     time.Duration

	// Model selects the model family profile: trio or vvx.
	Model string
	// MappingFile overrides the built-in statistics mapping.
	MappingFile string
	// LockTTL bounds how long a crashed replica can hold the device lock.
	LockTTL time.Duration
}

// RedisConfig is optional. Without a host, requests are only serialized
// within this process.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Device.Host = strings.TrimSpace(os.Getenv("DEVICE_HOST"))
	{
		n, err := optionalInt("DEVICE_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Device.Port = n
	}
	c.Device.Scheme = strings.ToLower(strings.TrimSpace(os.Getenv("DEVICE_SCHEME")))
	c.Device.Username = strings.TrimSpace(os.Getenv("DEVICE_USERNAME"))
	c.Device.Password = os.Getenv("DEVICE_PASSWORD")
	c.Device.Auth = strings.ToLower(strings.TrimSpace(os.Getenv("DEVICE_AUTH")))
	{
		b, err := optionalBool("DEVICE_INSECURE_TLS")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Device.InsecureTLS = b
	}
	c.Device.Model = strings.ToLower(strings.TrimSpace(os.Getenv("DEVICE_MODEL")))
	c.Device.MappingFile = strings.TrimSpace(os.Getenv("DEVICE_MAPPING_FILE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Device.Timeout = mustDuration("DEVICE_TIMEOUT")
	c.Device.LockTTL = mustDuration("DEVICE_LOCK_TTL")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills defaults for optional
// values, hence the pointer receiver.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Device.Host == "" {
		errs = append(errs, errors.New("DEVICE_HOST is required"))
	}
	if c.Device.Port < 0 || c.Device.Port > 65535 {
		errs = append(errs, fmt.Errorf("DEVICE_PORT must be a valid port, got %d", c.Device.Port))
	}
	if c.Device.Scheme == "" {
		c.Device.Scheme = "https"
	} else if c.Device.Scheme != "https" && c.Device.Scheme != "http" {
		errs = append(errs, fmt.Errorf("DEVICE_SCHEME must be http or https, got %q", c.Device.Scheme))
	}
	if c.Device.Username == "" {
		errs = append(errs, errors.New("DEVICE_USERNAME is required"))
	}
	if c.Device.Auth == "" {
		c.Device.Auth = "basic"
	} else if c.Device.Auth != "basic" && c.Device.Auth != "digest" {
		errs = append(errs, fmt.Errorf("DEVICE_AUTH must be basic or digest, got %q", c.Device.Auth))
	}
	if c.Device.Model == "" {
		c.Device.Model = "trio"
	} else if c.Device.Model != "trio" && c.Device.Model != "vvx" {
		errs = append(errs, fmt.Errorf("DEVICE_MODEL must be trio or vvx, got %q", c.Device.Model))
	}
	if c.Device.Timeout <= 0 {
		c.Device.Timeout = 30 * time.Second
	}
	if c.Device.LockTTL <= 0 {
		// Must outlast the slowest single device request.
		c.Device.LockTTL = max(time.Minute, 2*c.Device.Timeout)
	}
	if c.Device.LockTTL <= c.Device.Timeout {
		errs = append(errs, fmt.Errorf("DEVICE_LOCK_TTL (%s) must exceed DEVICE_TIMEOUT (%s)", c.Device.LockTTL, c.Device.Timeout))
	}
	if c.IsProduction() && c.Device.Scheme == "http" {
		errs = append(errs, errors.New("DEVICE_SCHEME http is not allowed in production"))
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// DeviceURL is scheme://host[:port] of the phone.
func (c Config) DeviceURL() string {
	host := c.Device.Host
	if c.Device.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(c.Device.Port))
	}
	return c.Device.Scheme + "://" + host
}

// RedisAddr is empty when Redis is not configured.
func (c Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return net.JoinHostPort(c.Redis.Host, strconv.Itoa(c.Redis.Port))
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
