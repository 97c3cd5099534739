package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ZizzPj/fly-nyasa-ops/internal/domain"
	"github.com/ZizzPj/fly-nyasa-ops/internal/validation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Access   AccessConfig   `yaml:"access"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// Location resolves the timezone operators enter flight times in.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

type HTTPConfig struct {
	Address       string `yaml:"address"`
	SecureCookies bool   `yaml:"secure_cookies"`
	CSRFKey       string `yaml:"csrf_key"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int32  `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	OpsTopic string   `yaml:"ops_topic"`
	GroupID  string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldPolicy         domain.HoldPolicy `yaml:"hold_policy"`
	DefaultHoldMinutes int               `yaml:"default_hold_minutes"`
	ViewCacheTTL       int               `yaml:"view_cache_ttl_seconds"`
}

type AccessConfig struct {
	DemoMode     bool     `yaml:"demo_mode"`
	DemoToken    string   `yaml:"demo_token"`
	DemoUserID   string   `yaml:"demo_user_id"`
	Allowlist    []string `yaml:"allowlist"`
	CookieSecret string   `yaml:"cookie_secret"`
	JWTSecret    string   `yaml:"jwt_secret"`
	LoginURL     string   `yaml:"login_url"`
}

type WorkerConfig struct {
	ReleaseHoldsCron string `yaml:"release_holds_cron"`
	CloseCutoffCron  string `yaml:"close_cutoff_cron"`
	Concurrency      int    `yaml:"concurrency"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the values used for keys the config file leaves out.
func Default() *Config {
	return &Config{
		App:  AppConfig{Name: "fly-nyasa-ops", Timezone: "Africa/Blantyre"},
		HTTP: HTTPConfig{Address: ":8080"},
		Database: DatabaseConfig{
			Port:     5432,
			SSLMode:  "require",
			MaxConns: 10,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{OpsTopic: "ops-events", GroupID: "ops-audit"},
		Booking: BookingConfig{
			HoldPolicy:         domain.HoldPolicyOpenOnly,
			DefaultHoldMinutes: 60,
			ViewCacheTTL:       30,
		},
		Access: AccessConfig{LoginURL: "/login"},
		Worker: WorkerConfig{
			ReleaseHoldsCron: "*/1 * * * *",
			CloseCutoffCron:  "*/5 * * * *",
			Concurrency:      2,
		},
		Log: LogConfig{Path: "logs/"},
	}
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	if v, ok := lookup("OPS_DEMO_MODE"); ok {
		c.Access.DemoMode, _ = strconv.ParseBool(strings.TrimSpace(v))
	}
	if v, ok := lookup("OPS_DEMO_TOKEN"); ok {
		c.Access.DemoToken = v
	}
	if v, ok := lookup("OPS_DEMO_USER_ID"); ok {
		c.Access.DemoUserID = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPS_ALLOWLIST"); ok {
		c.Access.Allowlist = strings.Split(v, ",")
	}
	if v, ok := lookup("OPS_COOKIE_SECRET"); ok {
		c.Access.CookieSecret = v
	}
	if v, ok := lookup("OPS_AUTH_JWT_SECRET"); ok {
		c.Access.JWTSecret = v
	}
	if v, ok := lookup("OPS_CSRF_KEY"); ok {
		c.HTTP.CSRFKey = v
	}
	if v, ok := lookup("DATABASE_URL"); ok {
		c.Database.URL = v
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Access.DemoMode && c.Access.DemoToken == "" {
		errs = append(errs, errors.New("access.demo_token is required in demo mode"))
	}
	if !c.Access.DemoMode && c.Access.JWTSecret == "" {
		errs = append(errs, errors.New("access.jwt_secret is required outside demo mode"))
	}
	if len(c.Access.CookieSecret) < 32 {
		errs = append(errs, errors.New("access.cookie_secret must be at least 32 bytes"))
	}
	if len(c.HTTP.CSRFKey) != 32 {
		errs = append(errs, errors.New("http.csrf_key must be exactly 32 bytes"))
	}
	if c.Access.DemoUserID != "" {
		if err := validation.UUID(c.Access.DemoUserID, "access.demo_user_id"); err != nil {
			errs = append(errs, err)
		}
	}
	if !c.Booking.HoldPolicy.Valid() {
		errs = append(errs, fmt.Errorf("booking.hold_policy %q is not one of %s, %s", c.Booking.HoldPolicy, domain.HoldPolicyOpenOnly, domain.HoldPolicyNotClosed))
	}
	if err := validation.HoldMinutes(c.Booking.DefaultHoldMinutes); err != nil {
		errs = append(errs, fmt.Errorf("booking.default_hold_minutes: %w", err))
	}
	if _, err := c.App.Location(); err != nil {
		errs = append(errs, fmt.Errorf("app.timezone: %w", err))
	}

	return errors.Join(errs...)
}
