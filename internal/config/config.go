package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName = "fulfillment"

	DefaultOrdersTopic        = "orders"
	DefaultConfirmationsTopic = "order-confirmations"
	DefaultDeadLetterTopic    = "fulfillment-dead-letter"
)

type Config struct {
	MySQLDSN  string
	RedisAddr string

	KafkaBrokers       []string
	OrdersTopic        string
	ConfirmationsTopic string
	DeadLetterTopic    string
	ConsumerGroup      string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	MetricsAddr string
	IngressAddr string

	OutboxInterval  time.Duration
	OutboxBatchSize int
}

func Load() *Config {
	return &Config{
		MySQLDSN:  getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/fulfillment?parseTime=true"),
		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		KafkaBrokers:       strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrdersTopic:        getenv("ORDERS_TOPIC", DefaultOrdersTopic),
		ConfirmationsTopic: getenv("CONFIRMATIONS_TOPIC", DefaultConfirmationsTopic),
		DeadLetterTopic:    getenv("DEAD_LETTER_TOPIC", DefaultDeadLetterTopic),
		ConsumerGroup:      getenv("CONSUMER_GROUP", "fulfillment-worker"),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getenv("MINIO_BUCKET", "invoices"),
		MinioUseSSL:    getenvBool("MINIO_USE_SSL", false),

		MetricsAddr: getenv("METRICS_ADDR", ":9102"),
		IngressAddr: getenv("INGRESS_ADDR", ":8080"),

		OutboxInterval:  getenvDuration("OUTBOX_INTERVAL", time.Second),
		OutboxBatchSize: getenvInt("OUTBOX_BATCH_SIZE", 100),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
