package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds every runtime setting of the service.
type Config struct {
	AppName     string
	Version     string
	Environment string
	HTTPAddr    string

	DB        DBConfig
	Otel      OtelConfig
	Pricing   PricingConfig
	Revenue   RevenueConfig
	Export    ExportConfig
	CORS      CORSConfig
	Bootstrap BootstrapConfig
}

type DBConfig struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type OtelConfig struct {
	TracingEnabled   bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type PricingConfig struct {
	CourseCacheTTL time.Duration
}

// RevenueConfig carries the assumed per-unit impacts used by projection growth
// factors, in minor currency units.
type RevenueConfig struct {
	NewInstitutionImpact int64
	PlanUpgradeImpact    int64
	NewEnrollmentImpact  int64
}

type ExportConfig struct {
	RateLimit  int
	RateWindow time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type BootstrapConfig struct {
	EnsureDefaultPlans bool
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// DSN returns the postgres connection string, preferring DATABASE_URL.
func (c DBConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return strings.TrimSpace(c.URL)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		AppName:     v.GetString("APP_NAME"),
		Version:     v.GetString("APP_VERSION"),
		Environment: strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV"))),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		DB: DBConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Otel: OtelConfig{
			TracingEnabled:   v.GetBool("OTEL_TRACING_ENABLED"),
			ExporterEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ExporterProtocol: v.GetString("OTEL_EXPORTER_OTLP_PROTOCOL"),
			SamplingRatio:    v.GetFloat64("OTEL_SAMPLING_RATIO"),
		},
		Pricing: PricingConfig{
			CourseCacheTTL: v.GetDuration("PRICING_COURSE_CACHE_TTL"),
		},
		Revenue: RevenueConfig{
			NewInstitutionImpact: v.GetInt64("PROJECTION_NEW_INSTITUTION_IMPACT"),
			PlanUpgradeImpact:    v.GetInt64("PROJECTION_PLAN_UPGRADE_IMPACT"),
			NewEnrollmentImpact:  v.GetInt64("PROJECTION_NEW_ENROLLMENT_IMPACT"),
		},
		Export: ExportConfig{
			RateLimit:  v.GetInt("EXPORT_RATE_LIMIT"),
			RateWindow: v.GetDuration("EXPORT_RATE_WINDOW"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Bootstrap: BootstrapConfig{
			EnsureDefaultPlans: v.GetBool("BOOTSTRAP_DEFAULT_PLANS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "lingua")
	v.SetDefault("APP_VERSION", "dev")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lingua")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	v.SetDefault("OTEL_TRACING_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	v.SetDefault("OTEL_SAMPLING_RATIO", 0.1)

	v.SetDefault("PRICING_COURSE_CACHE_TTL", 30*time.Second)

	v.SetDefault("PROJECTION_NEW_INSTITUTION_IMPACT", 50000)
	v.SetDefault("PROJECTION_PLAN_UPGRADE_IMPACT", 20000)
	v.SetDefault("PROJECTION_NEW_ENROLLMENT_IMPACT", 5000)

	v.SetDefault("EXPORT_RATE_LIMIT", 10)
	v.SetDefault("EXPORT_RATE_WINDOW", time.Minute)

	v.SetDefault("BOOTSTRAP_DEFAULT_PLANS", true)
}

func (c Config) validate() error {
	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Environment)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("config: HTTP_ADDR is required")
	}
	if c.Revenue.NewInstitutionImpact < 0 || c.Revenue.PlanUpgradeImpact < 0 || c.Revenue.NewEnrollmentImpact < 0 {
		return errors.New("config: projection impacts must not be negative")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
