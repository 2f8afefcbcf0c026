package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/wofost-input-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Output and encoder settings.
	OutputDir     string
	Encode        domain.EncodeOptions
	LeapDayPolicy domain.LeapDayPolicy

	// S3 archive configuration.
	S3Enabled         bool
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	encode, err := LoadEncodeOptions()
	if err != nil {
		return nil, err
	}

	policy, err := domain.ParseLeapDayPolicy(sharedcfg.EnvOrDefault("LEAP_DAY_POLICY", "reject"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEAP_DAY_POLICY: %w", err)
	}

	s3Bucket := os.Getenv("S3_BUCKET")
	s3Enabled := s3Bucket != ""
	if v := os.Getenv("S3_ENABLED"); v != "" {
		s3Enabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "wofost-input-jobs"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "wofost-inputs"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "cabo-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		OutputDir:     sharedcfg.EnvOrDefault("OUTPUT_DIR", "./output"),
		Encode:        encode,
		LeapDayPolicy: policy,

		S3Enabled:         s3Enabled,
		S3Bucket:          s3Bucket,
		S3Prefix:          sharedcfg.EnvOrDefault("S3_PREFIX", "wofost-inputs"),
		S3Region:          sharedcfg.EnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.S3Enabled && cfg.S3Bucket == "" {
		return nil, errors.New("S3_ENABLED is true but S3_BUCKET is not set")
	}
	if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
		return nil, errors.New("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	return cfg, nil
}

// LoadEncodeOptions reads the CABO_* encoder settings on their own, for
// tools that check files without running the service.
func LoadEncodeOptions() (domain.EncodeOptions, error) {
	opts := domain.DefaultEncodeOptions()

	var err error
	if opts.Elevation, err = parseFloatEnv("CABO_ELEVATION", opts.Elevation); err != nil {
		return opts, err
	}
	if opts.CalibrationA, err = parseFloatEnv("CABO_CALIBRATION_A", opts.CalibrationA); err != nil {
		return opts, err
	}
	if opts.CalibrationB, err = parseFloatEnv("CABO_CALIBRATION_B", opts.CalibrationB); err != nil {
		return opts, err
	}
	opts.Source = sharedcfg.EnvOrDefault("CABO_SOURCE", opts.Source)
	opts.Author = sharedcfg.EnvOrDefault("CABO_AUTHOR", opts.Author)
	return opts, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
