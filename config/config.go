package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	KeyAcumenURL        = "acumen.url"
	KeyCalendarID       = "calendar.id"
	KeyCalendarTimezone = "calendar.timezone"
	KeySyncMaxRetries   = "sync.max_retries"
	KeySyncBackoff      = "sync.initial_backoff"
	KeySyncCallTimeout  = "sync.call_timeout"
	KeySyncRunDeadline  = "sync.run_deadline"
	KeyEmployees        = "employees"
)

type Config struct {
	Acumen   AcumenConfig   `mapstructure:"acumen" validate:"required"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Mail     MailConfig     `mapstructure:"mail"`
	Sync     SyncConfig     `mapstructure:"sync"`
	// Employees is the roster the run is parameterized over; credentials are
	// env-var references, never stored in the file itself.
	Employees []Employee `mapstructure:"employees"`
}

type AcumenConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

type CalendarConfig struct {
	ID          string `mapstructure:"id"`
	Timezone    string `mapstructure:"timezone"`
	Credentials string `mapstructure:"credentials"`
}

type MailConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
}

type SyncConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	CallTimeout    time.Duration `mapstructure:"call_timeout"`
	RunDeadline    time.Duration `mapstructure:"run_deadline"`
}

type Employee struct {
	Name        string `mapstructure:"name"`
	EmailEnv    string `mapstructure:"email_env"`
	PasswordEnv string `mapstructure:"password_env"`
	NotifyEmail string `mapstructure:"notify_email"`
	// ColorID is the Google Calendar color assigned to this employee's events.
	ColorID string `mapstructure:"color_id"`
}

// SetDefaults sets default values if not provided
func SetDefaults() {
	setDefaults(viper.GetViper())
}

// LoadAndValidate loads config from Viper and validates it
func LoadAndValidate() (*Config, error) {
	return loadAndValidateFromViper(viper.GetViper())
}

// ValidateYAMLContent validates configuration from raw YAML content.
func ValidateYAMLContent(content []byte) (*Config, error) {
	local := viper.New()
	setDefaults(local)
	local.SetConfigType("yaml")
	if err := local.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("read config content: %w", err)
	}
	return loadAndValidateFromViper(local)
}

// ExampleYAML returns the default configuration template.
func ExampleYAML() string {
	return `# acumensync configuration
acumen:
  url: "https://acumen.dcisoftware.com/"

calendar:
  id: "primary"
  timezone: "America/Los_Angeles"
  credentials: "credentials.json"

mail:
  host: ""
  port: 587
  from: ""

sync:
  max_retries: 4
  initial_backoff: 500ms
  call_timeout: 30s
  run_deadline: 15m

employees:
  - name: "Jesus"
    email_env: "JESUS_EMAIL"
    password_env: "JESUS_PASSWORD"
    notify_email: ""
    color_id: "2"
  - name: "Enrique"
    email_env: "ENRIQUE_EMAIL"
    password_env: "ENRIQUE_PASSWORD"
    notify_email: ""
    color_id: "9"
`
}

func loadAndValidateFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if err := validateEmployees(cfg.Employees); err != nil {
		return nil, err
	}
	if err := validateSync(cfg.Sync); err != nil {
		return nil, err
	}
	if cfg.Calendar.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Calendar.Timezone); err != nil {
			return nil, fmt.Errorf("validation failed: calendar.timezone %q: %w", cfg.Calendar.Timezone, err)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAcumenURL, "https://acumen.dcisoftware.com/")
	v.SetDefault(KeyCalendarID, "primary")
	v.SetDefault(KeyCalendarTimezone, "America/Los_Angeles")
	v.SetDefault(KeySyncMaxRetries, 4)
	v.SetDefault(KeySyncBackoff, "500ms")
	v.SetDefault(KeySyncCallTimeout, "30s")
	v.SetDefault(KeySyncRunDeadline, "15m")
	v.SetDefault(KeyEmployees, []map[string]any{})
}

func validateEmployees(employees []Employee) error {
	seen := make(map[string]struct{}, len(employees))
	for i, employee := range employees {
		name := strings.TrimSpace(employee.Name)
		if name == "" {
			return fmt.Errorf("validation failed: employees[%d].name is required", i)
		}
		key := strings.ToLower(name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("validation failed: duplicate employee name %q", name)
		}
		seen[key] = struct{}{}
		if strings.TrimSpace(employee.EmailEnv) == "" || strings.TrimSpace(employee.PasswordEnv) == "" {
			return fmt.Errorf("validation failed: employees[%d] requires email_env and password_env", i)
		}
	}
	return nil
}

func validateSync(sync SyncConfig) error {
	if sync.MaxRetries < 0 {
		return fmt.Errorf("validation failed: sync.max_retries must be >= 0")
	}
	if sync.InitialBackoff < 0 || sync.CallTimeout < 0 || sync.RunDeadline < 0 {
		return fmt.Errorf("validation failed: sync durations must be >= 0")
	}
	return nil
}

// Timezone returns the configured calendar location, falling back to Local.
func (c *Config) Timezone() *time.Location {
	if c.Calendar.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
