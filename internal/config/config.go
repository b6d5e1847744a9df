package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                   string
	Port                  string
	LogLevel              string
	SessionSecret         string
	JWTSecret             string // JWT_SECRET for bearer tokens; falls back to SESSION_SECRET
	CookieDomain          string
	DatabaseURL           string
	RedisURL              string
	StripeSecretKey       string
	StripeWebhookSecret   string
	FrontendURLEndsWith   string
	DevPassword           string
	AllowCrossSiteDev     bool
	HealthAdminKey        string
	SendinblueAPIKey      string // SENDINBLUE_API_KEY for offer notifications (Brevo)
	MailFrom              string
	GitHubToken           string
	BillingAdminFee       float64
	BillingCommissionRate float64
	PageSize              int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAIL_FROM", "noreply@estate.example")
	viper.SetDefault("BILLING_ADMIN_FEE", 100.0)
	viper.SetDefault("BILLING_COMMISSION_RATE", 0.06)
	viper.SetDefault("PAGE_SIZE", 20)

	env := viper.GetString("APP_ENV")

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	jwtSecret := viper.GetString("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = viper.GetString("SESSION_SECRET")
	}
	pageSize := viper.GetInt("PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 20
	}

	return &Config{
		Env:                   env,
		Port:                  viper.GetString("PORT"),
		LogLevel:              viper.GetString("LOG_LEVEL"),
		SessionSecret:         viper.GetString("SESSION_SECRET"),
		JWTSecret:             jwtSecret,
		CookieDomain:          viper.GetString("COOKIE_DOMAIN"),
		DatabaseURL:           dbURL,
		RedisURL:              viper.GetString("REDIS_URL"),
		StripeSecretKey:       viper.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   viper.GetString("STRIPE_WEBHOOK_SECRET"),
		FrontendURLEndsWith:   viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:           viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:     strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:        viper.GetString("HEALTH_ADMIN_KEY"),
		SendinblueAPIKey:      viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:              viper.GetString("MAIL_FROM"),
		GitHubToken:           viper.GetString("GITHUB_TOKEN"),
		BillingAdminFee:       viper.GetFloat64("BILLING_ADMIN_FEE"),
		BillingCommissionRate: viper.GetFloat64("BILLING_COMMISSION_RATE"),
		PageSize:              pageSize,
	}, nil
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SetupLogger applies LOG_LEVEL to the global zerolog logger. Unknown levels fall back to info.
func SetupLogger(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}
