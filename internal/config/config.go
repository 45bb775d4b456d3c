package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Mode            string   `validate:"oneof=cli server both"`
	Port            string   `validate:"required,numeric"`
	TotalSpots      int      `validate:"min=1,max=100"`
	QueueCapacity   int      `validate:"min=1,max=20"`
	RatePerHour     float64  `validate:"gt=0"`
	ActivityLogSize int      `validate:"min=1"`
	OTelServiceName string   `validate:"required"`
	OTelEndpoint    string   `validate:"required,url"`
	Environment     string   `validate:"required"`
	LogLevel        string   `validate:"omitempty,oneof=debug info warn error"`
	KafkaBrokers    []string `validate:"dive,hostname_port"`
	KafkaTopic      string   `validate:"required_with=KafkaBrokers"`
}

// Load reads the configuration from the environment. Values in a .env file in
// the working directory are used for variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Mode:            envOr("APP_MODE", "cli"),
		Port:            envOr("APP_PORT", "8080"),
		TotalSpots:      envOrInt("PARKING_TOTAL_SPOTS", 10),
		QueueCapacity:   envOrInt("PARKING_QUEUE_CAPACITY", 5),
		RatePerHour:     envOrFloat("PARKING_RATE_PER_HOUR", 5.0),
		ActivityLogSize: envOrInt("ACTIVITY_LOG_SIZE", 200),
		OTelServiceName: envOr("OTEL_SERVICE_NAME", "parking-lot-queue"),
		OTelEndpoint:    envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Environment:     envOr("APP_ENV", "development"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		KafkaBrokers:    envList("KAFKA_BROKERS"),
		KafkaTopic:      envOr("KAFKA_ACTIVITY_TOPIC", "parking.activity"),
	}
}

func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, fmt.Sprintf("%s (%s=%v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envList(key string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
