package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	LogLevel   string           `mapstructure:"log_level"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Security   SecurityConfig   `mapstructure:"security"`
	SparkPost  SparkPostConfig  `mapstructure:"sparkpost"`
	Sender     SenderConfig     `mapstructure:"sender"`
	Tracking   TrackingConfig   `mapstructure:"tracking"`
	Workers    WorkersConfig    `mapstructure:"workers"`
}

type SecurityConfig struct {
	APIKeyHeader string            `mapstructure:"apiKeyHeader"`
	APIKeys      map[string]string `mapstructure:"apiKeys"`
}

type MonitoringConfig struct {
	PrometheusPort int    `mapstructure:"prometheusPort"`
	MetricsPath    string `mapstructure:"metricsPath"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RabbitMQConfig struct {
	URL       string `mapstructure:"url"`
	Exchange  string `mapstructure:"exchange"`
	QueueName string `mapstructure:"queueName"`
}

type ServerConfig struct {
	Port int
	Host string
}

type SparkPostConfig struct {
	APIKey  string `mapstructure:"apiKey"`
	BaseURL string `mapstructure:"baseUrl"`
}

type SenderConfig struct {
	FromAddress string `mapstructure:"fromAddress"`
	CompanyName string `mapstructure:"companyName"`
}

type TrackingConfig struct {
	// BaseURL is the public root baked into tracking pixels and redirects.
	BaseURL string `mapstructure:"baseUrl"`
	// DefaultRedirect is where unresolvable click hits land.
	DefaultRedirect string `mapstructure:"defaultRedirect"`
}

type WorkersConfig struct {
	DeliveryIntervalSeconds int `mapstructure:"deliveryIntervalSeconds"`
	SweepIntervalSeconds    int `mapstructure:"sweepIntervalSeconds"`
	BatchSize               int `mapstructure:"batchSize"`
}

func Load() (*Config, error) {
	// Local development convenience; .env is absent in production.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("monitoring.prometheusPort", 9090)
	viper.SetDefault("monitoring.metricsPath", "/metrics")
	viper.SetDefault("mongodb.database", "campaign_engine")
	viper.SetDefault("rabbitmq.exchange", "events")
	viper.SetDefault("rabbitmq.queueName", "event_dispatch")
	viper.SetDefault("sender.companyName", "Acme")
	viper.SetDefault("tracking.defaultRedirect", "https://example.com")
	viper.SetDefault("workers.deliveryIntervalSeconds", 30)
	viper.SetDefault("workers.sweepIntervalSeconds", 300)
	viper.SetDefault("workers.batchSize", 100)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if port := os.Getenv("APP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if promPort := os.Getenv("PROMETHEUS_PORT"); promPort != "" {
		if p, err := strconv.Atoi(promPort); err == nil {
			cfg.Monitoring.PrometheusPort = p
		}
	}

	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		cfg.MongoDB.URI = uri
	}
	if db := os.Getenv("MONGODB_DATABASE"); db != "" {
		cfg.MongoDB.Database = db
	}

	// Support both CLOUDAMQP_URL and RABBITMQ_URI
	if cloudamqpURL := os.Getenv("CLOUDAMQP_URL"); cloudamqpURL != "" {
		cfg.RabbitMQ.URL = cloudamqpURL
	} else if rabbitURL := os.Getenv("RABBITMQ_URI"); rabbitURL != "" {
		cfg.RabbitMQ.URL = rabbitURL
	}

	if exchange := os.Getenv("RABBITMQ_EXCHANGE"); exchange != "" {
		cfg.RabbitMQ.Exchange = exchange
	}
	if queue := os.Getenv("RABBITMQ_QUEUE"); queue != "" {
		cfg.RabbitMQ.QueueName = queue
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if header := os.Getenv("API_KEY_HEADER"); header != "" {
		cfg.Security.APIKeyHeader = header
	}
	if cfg.Security.APIKeyHeader == "" {
		cfg.Security.APIKeyHeader = "X-API-Key"
	}

	if key := os.Getenv("SPARKPOST_API_KEY"); key != "" {
		cfg.SparkPost.APIKey = key
	}
	if base := os.Getenv("SPARKPOST_BASE_URL"); base != "" {
		cfg.SparkPost.BaseURL = base
	}

	if from := os.Getenv("SENDER_FROM_ADDRESS"); from != "" {
		cfg.Sender.FromAddress = from
	}
	if company := os.Getenv("SENDER_COMPANY_NAME"); company != "" {
		cfg.Sender.CompanyName = company
	}

	if base := os.Getenv("TRACKING_BASE_URL"); base != "" {
		cfg.Tracking.BaseURL = base
	}
	if redirect := os.Getenv("TRACKING_DEFAULT_REDIRECT"); redirect != "" {
		cfg.Tracking.DefaultRedirect = redirect
	}

	if batch := os.Getenv("WORKER_BATCH_SIZE"); batch != "" {
		if b, err := strconv.Atoi(batch); err == nil {
			cfg.Workers.BatchSize = b
		}
	}

	cfg.Security.APIKeys = loadAPIKeysFromEnv(cfg.Security.APIKeys)

	return &cfg, nil
}

// loadAPIKeysFromEnv merges CLIENT_<NAME>_API_KEY environment variables
// into the configured key set.
func loadAPIKeysFromEnv(configured map[string]string) map[string]string {
	apiKeys := make(map[string]string)
	for client, key := range configured {
		apiKeys[client] = key
	}

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		envName := parts[0]
		envValue := parts[1]

		if strings.HasPrefix(envName, "CLIENT_") && strings.HasSuffix(envName, "_API_KEY") {
			clientName := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(envName, "CLIENT_"), "_API_KEY"))
			apiKeys[clientName] = envValue
		}
	}

	return apiKeys
}
