package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the fraud risk scoring service
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Elasticsearch ElasticsearchConfig
	Kafka         KafkaConfig
	S3            S3Config
	Auth          AuthConfig
	Logging       LoggingConfig
	Registry      RegistryConfig
	Ledger        LedgerConfig
	GeoIP         GeoIPConfig
	Scoring       ScoringConfig
	Anomaly       AnomalyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL configuration for the risk-list source
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the database connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ElasticsearchConfig holds Elasticsearch configuration
type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// KafkaConfig holds Kafka configuration for alert publication
type KafkaConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brokers    []string `mapstructure:"brokers"`
	AlertTopic string   `mapstructure:"alert_topic"`
}

// S3Config holds AWS S3 configuration for the risk-list source
type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	AddressListKey string `mapstructure:"address_list_key"`
	CountryListKey string `mapstructure:"country_list_key"`
	Endpoint       string `mapstructure:"endpoint"` // For local testing with MinIO
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTPublicKeyPath string `mapstructure:"jwt_public_key_path"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RegistryConfig selects where risk lists are loaded from at startup
type RegistryConfig struct {
	// Source is one of "static", "postgres", "s3"
	Source string `mapstructure:"source"`
}

// LedgerConfig holds ledger-explorer API settings
type LedgerConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	// CallBudget bounds how long a single analyze call may wait on
	// external ledger lookups before degrading to "no history".
	CallBudget time.Duration `mapstructure:"call_budget"`
}

// GeoIPConfig holds geo-IP resolution settings
type GeoIPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ScoringConfig holds channel weights and stablecoin settings.
// The three weights must sum to 1.0; absent channels have their weight
// redistributed proportionally at merge time.
type ScoringConfig struct {
	FiatWeight         float64 `mapstructure:"fiat_weight"`
	CryptoWeight       float64 `mapstructure:"crypto_weight"`
	StablecoinWeight   float64 `mapstructure:"stablecoin_weight"`
	StablecoinSymbol   string  `mapstructure:"stablecoin_symbol"`
	StablecoinContract string  `mapstructure:"stablecoin_contract"`
}

// Validate checks the weight configuration
func (c ScoringConfig) Validate() error {
	sum := c.FiatWeight + c.CryptoWeight + c.StablecoinWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// AnomalyConfig holds fiat anomaly-model settings
type AnomalyConfig struct {
	Contamination        float64 `mapstructure:"contamination"`
	Seed                 int64   `mapstructure:"seed"`
	Trees                int     `mapstructure:"trees"`
	SampleSize           int     `mapstructure:"sample_size"`
	ModelWeight          float64 `mapstructure:"model_weight"`
	RuleWeight           float64 `mapstructure:"rule_weight"`
	LargeAmountThreshold float64 `mapstructure:"large_amount_threshold"`
	ModelAlertThreshold  float64 `mapstructure:"model_alert_threshold"`
}

// Load loads configuration from environment and config files
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FRAUD")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Scoring.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8086)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "fraud_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Elasticsearch
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	v.SetDefault("elasticsearch.username", "elastic")
	v.SetDefault("elasticsearch.password", "changeme")
	v.SetDefault("elasticsearch.index", "risk-assessments")

	// Kafka
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.alert_topic", "banking.fraud.alerts")

	// S3
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "banking-risk-lists")
	v.SetDefault("s3.address_list_key", "lists/addresses.json")
	v.SetDefault("s3.country_list_key", "lists/jurisdictions.json")

	// Auth
	v.SetDefault("auth.jwt_public_key_path", "./keys/jwt_public.pem")
	v.SetDefault("auth.jwt_issuer", "banking-auth-service")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Registry
	v.SetDefault("registry.source", "static")

	// Ledger
	v.SetDefault("ledger.base_url", "https://api.etherscan.io/api")
	v.SetDefault("ledger.api_key", "")
	v.SetDefault("ledger.requests_per_second", 5)
	v.SetDefault("ledger.request_timeout", "10s")
	v.SetDefault("ledger.call_budget", "5s")

	// GeoIP
	v.SetDefault("geoip.base_url", "https://ipinfo.io")
	v.SetDefault("geoip.timeout", "2s")

	// Scoring
	v.SetDefault("scoring.fiat_weight", 0.4)
	v.SetDefault("scoring.crypto_weight", 0.4)
	v.SetDefault("scoring.stablecoin_weight", 0.2)
	v.SetDefault("scoring.stablecoin_symbol", "USDC")
	v.SetDefault("scoring.stablecoin_contract", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	// Anomaly model
	v.SetDefault("anomaly.contamination", 0.05)
	v.SetDefault("anomaly.seed", 42)
	v.SetDefault("anomaly.trees", 100)
	v.SetDefault("anomaly.sample_size", 256)
	v.SetDefault("anomaly.model_weight", 0.7)
	v.SetDefault("anomaly.rule_weight", 0.3)
	v.SetDefault("anomaly.large_amount_threshold", 10000)
	v.SetDefault("anomaly.model_alert_threshold", 0.7)
}
