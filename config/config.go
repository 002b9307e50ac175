// Package config loads fern settings from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Source drivers
const (
	SourceFirestore = "firestore"
	SourceMongo     = "mongo"
	SourceFile      = "file"
)

type Config struct {
	AppName            string
	LogLevel           string `validate:"oneof=debug info warn error"`
	PrettyLogs         bool
	Port               int `validate:"min=1,max=65535"`
	StartupMaxAttempts int `validate:"min=1"`

	// Graph database (Neo4j / Memgraph over Bolt)
	GraphDBURI      string
	GraphDBHost     string `validate:"required_without=GraphDBURI"`
	GraphDBPort     int
	GraphDBUser     string
	GraphDBPassword string

	// Document source
	SourceDriver            string `validate:"oneof=firestore mongo file"`
	FirebaseCredentialsPath string `validate:"required_if=SourceDriver firestore"`
	FirebaseProjectID       string
	MongoURI                string `validate:"required_if=SourceDriver mongo"`
	MongoDatabase           string `validate:"required_if=SourceDriver mongo"`
	SourceFilePath          string `validate:"required_if=SourceDriver file"`
	ProductsCollection      string `validate:"required"`
	SizeChartsCollection    string `validate:"required"`

	// Write behaviour
	StrictProducts bool
	DryRun         bool

	// Redis run lock
	RedisEnabled  bool
	RedisHost     string `validate:"required_if=RedisEnabled true"`
	RedisPort     int
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration `validate:"min=1s"`

	// Kafka migration events
	KafkaEnabled      bool
	KafkaBrokers      []string `validate:"required_if=KafkaEnabled true"`
	KafkaOutputTopic  string   `validate:"required_if=KafkaEnabled true"`
	KafkaBatchSize    int
	KafkaBatchTimeout time.Duration
	KafkaRequiredAcks int
	KafkaCompression  string `validate:"omitempty,oneof=none gzip snappy lz4 zstd"`

	// Tracing
	TracingEnabled bool
	OTLPEndpoint   string `validate:"required_if=TracingEnabled true"`
	OTLPProtocol   string `validate:"oneof=grpc http"`
	OTLPInsecure   bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "fern")
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", false)
	v.SetDefault("port", 3010)
	v.SetDefault("startup_max_attempts", 5)

	v.SetDefault("graph_db_host", "localhost")
	v.SetDefault("graph_db_port", 7687)

	v.SetDefault("source_driver", SourceFirestore)
	v.SetDefault("products_collection", "products")
	v.SetDefault("sizecharts_collection", "sizecharts")

	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_db", 0)
	v.SetDefault("lock_ttl", "1m")

	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_output_topic", "fern-migration-events")
	v.SetDefault("kafka_batch_size", 100)
	v.SetDefault("kafka_batch_timeout_ms", 100)
	v.SetDefault("kafka_required_acks", 1)
	v.SetDefault("kafka_compression", "snappy")

	v.SetDefault("tracing_enabled", false)
	v.SetDefault("otlp_endpoint", "localhost:4317")
	v.SetDefault("otlp_protocol", "grpc")
	v.SetDefault("otlp_insecure", true)
}

// Load reads the configuration from the environment. When envFile is set it
// must exist and is loaded first; otherwise a .env in the working directory is
// loaded if present. Variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		AppName:            v.GetString("APP_NAME"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		PrettyLogs:         v.GetBool("PRETTY_LOGS"),
		Port:               v.GetInt("PORT"),
		StartupMaxAttempts: v.GetInt("STARTUP_MAX_ATTEMPTS"),

		GraphDBURI:      firstSet(v, "GRAPH_DB_URI", "NEO4J_URI"),
		GraphDBHost:     v.GetString("GRAPH_DB_HOST"),
		GraphDBPort:     v.GetInt("GRAPH_DB_PORT"),
		GraphDBUser:     firstSet(v, "GRAPH_DB_USER", "NEO4J_USERNAME"),
		GraphDBPassword: firstSet(v, "GRAPH_DB_PASSWORD", "NEO4J_PASSWORD"),

		SourceDriver:            strings.ToLower(v.GetString("SOURCE_DRIVER")),
		FirebaseCredentialsPath: v.GetString("FIREBASE_CREDENTIALS_PATH"),
		FirebaseProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		MongoURI:                v.GetString("MONGO_URI"),
		MongoDatabase:           v.GetString("MONGO_DATABASE"),
		SourceFilePath:          v.GetString("SOURCE_FILE_PATH"),
		ProductsCollection:      v.GetString("PRODUCTS_COLLECTION"),
		SizeChartsCollection:    v.GetString("SIZECHARTS_COLLECTION"),

		StrictProducts: v.GetBool("STRICT_PRODUCTS"),
		DryRun:         v.GetBool("DRY_RUN"),

		RedisEnabled:  v.GetBool("REDIS_ENABLED"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetInt("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		LockTTL:       v.GetDuration("LOCK_TTL"),

		KafkaEnabled:      v.GetBool("KAFKA_ENABLED"),
		KafkaBrokers:      splitList(v.GetString("KAFKA_BROKERS")),
		KafkaOutputTopic:  v.GetString("KAFKA_OUTPUT_TOPIC"),
		KafkaBatchSize:    v.GetInt("KAFKA_BATCH_SIZE"),
		KafkaBatchTimeout: time.Duration(v.GetInt("KAFKA_BATCH_TIMEOUT_MS")) * time.Millisecond,
		KafkaRequiredAcks: v.GetInt("KAFKA_REQUIRED_ACKS"),
		KafkaCompression:  strings.ToLower(v.GetString("KAFKA_COMPRESSION")),

		TracingEnabled: v.GetBool("TRACING_ENABLED"),
		OTLPEndpoint:   v.GetString("OTLP_ENDPOINT"),
		OTLPProtocol:   strings.ToLower(v.GetString("OTLP_PROTOCOL")),
		OTLPInsecure:   v.GetBool("OTLP_INSECURE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// sourceFields are only checked by ValidateSource, so commands that never
// read the document store can run without its settings
var sourceFields = []string{
	"SourceDriver",
	"FirebaseCredentialsPath",
	"MongoURI",
	"MongoDatabase",
	"SourceFilePath",
	"ProductsCollection",
	"SizeChartsCollection",
}

// Validate checks every constraint except the document source settings
func (c *Config) Validate() error {
	return validationError(validator.New().StructExcept(c, sourceFields...))
}

// ValidateSource checks the settings of the selected document source
func (c *Config) ValidateSource() error {
	return validationError(validator.New().StructPartial(c, sourceFields...))
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
	}
	return fmt.Errorf("invalid configuration: %w", err)
}

func firstSet(v *viper.Viper, keys ...string) string {
	for _, key := range keys {
		if value := v.GetString(key); value != "" {
			return value
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
