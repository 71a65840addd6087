package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const minScopedSecretLen = 32

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	AWSRegion      string `mapstructure:"AWS_REGION"`
	AWSEndpointURL string `mapstructure:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `mapstructure:"AWS_SECRET_ACCESS_KEY"`

	TableUsers        string `mapstructure:"DYNAMO_TABLE_USERS"`
	TableUserSecurity string `mapstructure:"DYNAMO_TABLE_USER_SECURITY"`
	TableTransactions string `mapstructure:"DYNAMO_TABLE_TRANSACTIONS"`
	TableSyncLog      string `mapstructure:"DYNAMO_TABLE_SYNC_LOG"`

	S3BucketName  string        `mapstructure:"S3_BUCKET_NAME"`
	ExportURLTTL  time.Duration `mapstructure:"EXPORT_URL_TTL"`
	BcryptCost    int           `mapstructure:"BCRYPT_COST"`
	JWTExpiry     time.Duration `mapstructure:"JWT_EXPIRY"`
	JWTPrivateKey string        `mapstructure:"JWT_PRIVATE_KEY_PATH"`
	JWTPublicKey  string        `mapstructure:"JWT_PUBLIC_KEY_PATH"`

	// ScopedTokenSecret signs password-reset capability tokens. Required.
	ScopedTokenSecret string `mapstructure:"SCOPED_TOKEN_SECRET"`

	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`

	MailDriver   string `mapstructure:"MAIL_DRIVER"` // "smtp" | "sns"
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SNSRegion    string `mapstructure:"SNS_REGION"`
	SNSTopicARN  string `mapstructure:"SNS_TOPIC_ARN"`

	OTLPEndpoint   string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"` // comma separated

	// TrustProxyHeaders takes the client address from X-Forwarded-For /
	// X-Real-Ip. Enable only behind a load balancer that sets them.
	TrustProxyHeaders bool `mapstructure:"TRUST_PROXY_HEADERS"`
}

// Load reads configuration from the environment. A .env file is read by the
// caller (godotenv) before Load runs, so values from it are visible here too.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ENDPOINT_URL", "")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("DYNAMO_TABLE_USERS", "users")
	v.SetDefault("DYNAMO_TABLE_USER_SECURITY", "user_security")
	v.SetDefault("DYNAMO_TABLE_TRANSACTIONS", "transactions")
	v.SetDefault("DYNAMO_TABLE_SYNC_LOG", "sync_log")
	v.SetDefault("S3_BUCKET_NAME", "fiscus-exports")
	v.SetDefault("EXPORT_URL_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("JWT_EXPIRY", "168h")
	v.SetDefault("JWT_PRIVATE_KEY_PATH", "./private_key.pem")
	v.SetDefault("JWT_PUBLIC_KEY_PATH", "./public_key.pem")
	v.SetDefault("SCOPED_TOKEN_SECRET", "")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("MAIL_DRIVER", "smtp")
	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", "1025")
	v.SetDefault("SMTP_FROM", "noreply@example.com")
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SNS_REGION", "us-east-1")
	v.SetDefault("SNS_TOPIC_ARN", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("TRUST_PROXY_HEADERS", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.ScopedTokenSecret) < minScopedSecretLen {
		return fmt.Errorf("config: SCOPED_TOKEN_SECRET must be at least %d bytes", minScopedSecretLen)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	switch c.MailDriver {
	case "smtp":
	case "sns":
		if c.SNSTopicARN == "" {
			return errors.New("config: SNS_TOPIC_ARN is required when MAIL_DRIVER=sns")
		}
	default:
		return fmt.Errorf("config: unknown MAIL_DRIVER %q", c.MailDriver)
	}
	if c.JWTExpiry <= 0 {
		return errors.New("config: JWT_EXPIRY must be positive")
	}
	return nil
}

// Origins returns the CORS allowed origins from the comma-separated setting.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// DynamoTables groups the table names passed to the bootstrapper.
type DynamoTables struct {
	Users        string
	UserSecurity string
	Transactions string
	SyncLog      string
}

func (c *Config) Tables() DynamoTables {
	return DynamoTables{
		Users:        c.TableUsers,
		UserSecurity: c.TableUserSecurity,
		Transactions: c.TableTransactions,
		SyncLog:      c.TableSyncLog,
	}
}
