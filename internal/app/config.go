package app

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
	"github.com/yungbote/estrella-backend/internal/platform/envutil"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	Version     string
	CORSOrigins []string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DBDriver         string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	PostgresSSLMode  string
	SQLitePath       string
	CatalogSeed      bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	CartStore        string
	CartTTL          time.Duration
	SessionIdleTTL   time.Duration
	SweepInterval    time.Duration
	DeliveryFee      decimal.Decimal
	MinContactLen    int
	OrderIntakeURL   string
	ServiceIntakeURL string
	IntakeToken      string
	IntakeTimeout    time.Duration

	WhatsAppNumber   string
	ScheduleTimezone string
	TariffsYAML      string

	MetricsAddr string

	AdminEmail    string
	AdminPassword string
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        envutil.String("PORT", "8080", log),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "estrella-backend", log),
		Environment: envutil.String("APP_ENV", "development", log),
		Version:     envutil.String("APP_VERSION", "dev", log),
		CORSOrigins: splitList(envutil.String("CORS_ALLOWED_ORIGINS", "", log)),

		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL: envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour, log),

		DBDriver:         strings.ToLower(envutil.String("DB_DRIVER", "postgres", log)),
		PostgresHost:     envutil.String("POSTGRES_HOST", "localhost", log),
		PostgresPort:     envutil.String("POSTGRES_PORT", "5432", log),
		PostgresUser:     envutil.String("POSTGRES_USER", "postgres", log),
		PostgresPassword: envutil.String("POSTGRES_PASSWORD", "", log),
		PostgresName:     envutil.String("POSTGRES_NAME", "estrella", log),
		PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable", log),
		SQLitePath:       envutil.String("SQLITE_PATH", "estrella.db", log),
		CatalogSeed:      envutil.Bool("CATALOG_SEED", true, log),

		RedisAddr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "", log)),
		RedisPassword: envutil.String("REDIS_PASSWORD", "", log),
		RedisDB:       envutil.Int("REDIS_DB", 0, log),
		RedisChannel:  envutil.String("REDIS_CHANNEL", "estrella:sse", log),

		CartStore:        strings.ToLower(envutil.String("CART_STORE", "memory", log)),
		CartTTL:          envutil.Seconds("CART_TTL", 24*time.Hour, log),
		SessionIdleTTL:   envutil.Seconds("SESSION_IDLE_TTL", 2*time.Hour, log),
		SweepInterval:    envutil.Seconds("SESSION_SWEEP_INTERVAL", 5*time.Minute, log),
		DeliveryFee:      envutil.Decimal("DELIVERY_FEE", decimal.NewFromInt(25), log),
		MinContactLen:    envutil.Int("MIN_CONTACT_LENGTH", 10, log),
		OrderIntakeURL:   strings.TrimSpace(envutil.String("ORDER_INTAKE_URL", "", log)),
		ServiceIntakeURL: strings.TrimSpace(envutil.String("SERVICE_INTAKE_URL", "", log)),
		IntakeToken:      envutil.String("INTAKE_TOKEN", "", log),
		IntakeTimeout:    envutil.Seconds("INTAKE_TIMEOUT_SECONDS", 15*time.Second, log),

		WhatsAppNumber:   envutil.String("SUPPORT_WHATSAPP_NUMBER", "", log),
		ScheduleTimezone: envutil.String("SCHEDULE_TIMEZONE", "America/Mexico_City", log),
		TariffsYAML:      envutil.String("TARIFFS_YAML", "", log),

		MetricsAddr: envutil.String("METRICS_ADDR", "", log),

		AdminEmail:    envutil.String("ADMIN_EMAIL", "", log),
		AdminPassword: envutil.String("ADMIN_PASSWORD", "", log),
	}
}
