package config

import (
	"fmt"
	"net"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Booking   BookingConfig   `yaml:"booking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	Email     EmailConfig     `yaml:"email"`
	Worker    WorkerConfig    `yaml:"worker"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerFile    string   `yaml:"swagger_file"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers          []string `yaml:"brokers"`
	BookingTopic     string   `yaml:"booking_topic"`
	SideEffectsTopic string   `yaml:"side_effects_topic"`
	GroupID          string   `yaml:"group_id"`
}

type BookingConfig struct {
	Timezone               string         `yaml:"timezone"`
	LocationType           string         `yaml:"location_type"`
	DefaultDurationMinutes int            `yaml:"default_duration_minutes"`
	Durations              map[string]int `yaml:"durations"`
	ClaimLeaseMinutes      int            `yaml:"claim_lease_minutes"`
	EventTypesCacheSeconds int            `yaml:"event_types_cache_seconds"`
	SlotSearchMaxDays      int            `yaml:"slot_search_max_days"`
}

// DurationFor returns the configured length of a consultation type, falling
// back to the default for unknown types.
func (b BookingConfig) DurationFor(consultationType string) time.Duration {
	if m, ok := b.Durations[consultationType]; ok && m > 0 {
		return time.Duration(m) * time.Minute
	}
	return time.Duration(b.DefaultDurationMinutes) * time.Minute
}

type RateLimitConfig struct {
	Backend  string                  `yaml:"backend"`
	Prefix   string                  `yaml:"prefix"`
	Policies map[string]PolicyConfig `yaml:"policies"`
}

type PolicyConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	Limit         int `yaml:"limit"`
}

type CalendarConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	CalendarID      string `yaml:"calendar_id"`
	CreateMeet      bool   `yaml:"create_meet"`
}

type EmailConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SMTPHost   string `yaml:"smtp_host"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	From       string `yaml:"from"`
	StaffEmail string `yaml:"staff_email"`
	FirmName   string `yaml:"firm_name"`
}

type WorkerConfig struct {
	LeaseSweepMinutes     int `yaml:"lease_sweep_minutes"`
	MaxSideEffectAttempts int `yaml:"max_side_effect_attempts"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the booking flow cannot run without.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking.timezone %q: %w", c.Booking.Timezone, err)
	}
	p, ok := c.RateLimit.Policies["booking"]
	if !ok {
		return fmt.Errorf("rate_limit.policies.booking is required")
	}
	if p.Limit <= 0 || p.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.policies.booking needs a positive limit and window")
	}
	switch c.RateLimit.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	for _, proxy := range c.HTTP.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid http.trusted_proxies entry %q", proxy)
			}
		}
	}
	if c.Email.Enabled && c.Email.SMTPHost == "" {
		return fmt.Errorf("email.smtp_host is required when email is enabled")
	}
	if c.Calendar.Enabled && c.Calendar.CredentialsFile == "" {
		return fmt.Errorf("calendar.credentials_file is required when calendar is enabled")
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" && c.Calendar.CredentialsFile == "" {
		c.Calendar.CredentialsFile = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.BookingTopic == "" {
		c.Kafka.BookingTopic = "booking.events"
	}
	if c.Kafka.SideEffectsTopic == "" {
		c.Kafka.SideEffectsTopic = "booking.side_effects"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "booking-worker"
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "Australia/Sydney"
	}
	if c.Booking.LocationType == "" {
		c.Booking.LocationType = "google_meet"
	}
	if c.Booking.DefaultDurationMinutes <= 0 {
		c.Booking.DefaultDurationMinutes = 30
	}
	if c.Booking.Durations == nil {
		c.Booking.Durations = map[string]int{
			"Initial Consultation": 30,
			"Strategy Session":     60,
			"Contract Review":      45,
		}
	}
	if c.Booking.ClaimLeaseMinutes <= 0 {
		c.Booking.ClaimLeaseMinutes = 15
	}
	if c.Booking.EventTypesCacheSeconds <= 0 {
		c.Booking.EventTypesCacheSeconds = 300
	}
	if c.Booking.SlotSearchMaxDays <= 0 {
		c.Booking.SlotSearchMaxDays = 31
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "redis"
	}
	if c.RateLimit.Prefix == "" {
		c.RateLimit.Prefix = "rl"
	}
	if c.RateLimit.Policies == nil {
		c.RateLimit.Policies = map[string]PolicyConfig{}
	}
	if _, ok := c.RateLimit.Policies["booking"]; !ok {
		c.RateLimit.Policies["booking"] = PolicyConfig{WindowSeconds: 3600, Limit: 5}
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.FirmName == "" {
		c.Email.FirmName = "Medical Practice Legal"
	}
	if c.Worker.LeaseSweepMinutes <= 0 {
		c.Worker.LeaseSweepMinutes = 5
	}
	if c.Worker.MaxSideEffectAttempts <= 0 {
		c.Worker.MaxSideEffectAttempts = 3
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
