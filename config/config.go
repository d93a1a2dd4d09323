// Package config loads process configuration for the cmd/bench and
// cmd/demo binaries: flags set the baseline, environment variables
// (MATCHING_*) override them, and an optional YAML file overrides both.
package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Workload  WorkloadConfig  `mapstructure:"workload"`
	Bench     BenchConfig     `mapstructure:"bench"`
}

// LogConfig controls pkg/logging.Setup.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// KafkaConfig controls whether and where fill events publish.
type KafkaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BrokerAddr string `mapstructure:"broker_addr"`
	Topic      string `mapstructure:"topic"`
}

// TelemetryConfig controls the OTLP/gRPC collector InstrumentedBook exports
// traces and metrics to.
type TelemetryConfig struct {
	CollectorEnabled bool   `mapstructure:"collector_enabled"`
	Endpoint         string `mapstructure:"endpoint"`
}

// WorkloadConfig parameterizes the synthetic order-flow generator.
type WorkloadConfig struct {
	Seed          int64 `mapstructure:"seed"`
	OrderCount    int   `mapstructure:"order_count"`
	StartMidPrice int64 `mapstructure:"start_mid_price"`
	TickSize      int64 `mapstructure:"tick_size"`
}

// BenchConfig controls the latency-benchmark harness.
type BenchConfig struct {
	Iterations       int    `mapstructure:"iterations"`
	WarmupIterations int    `mapstructure:"warmup_iterations"`
	OutputCSV        string `mapstructure:"output_csv"`
}

var (
	configFile = flag.String("config", "", "path to a YAML config file, overrides flags and env vars")
	logLevel   = flag.String("log_level", "info", "log level: debug, info, warn, error")
	logPretty  = flag.Bool("log_pretty", true, "render logs for a terminal instead of JSON")
	kafkaAddr  = flag.String("kafka_broker_addr", "localhost:9092", "kafka broker address for fill event publication")
	kafkaTopic = flag.String("kafka_topic", "orderbook-fills", "kafka topic for fill events")
	seed       = flag.Int64("seed", 1, "workload generator random seed")
	orderCount = flag.Int("order_count", 10000, "number of orders the workload generator produces")
	midPrice   = flag.Int64("start_mid_price", 10000, "starting mid price, in ticks, for the workload generator")
	iterations = flag.Int("iterations", 100000, "benchmark operations to time, after warmup")
)

// LoadConfig parses flags, layers in MATCHING_*-prefixed environment
// variables, and finally merges an optional YAML file named by -config.
func LoadConfig() (*Config, error) {
	flag.Parse()

	v := viper.New()
	v.SetEnvPrefix("matching")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", *logLevel)
	v.SetDefault("log.pretty", *logPretty)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.broker_addr", *kafkaAddr)
	v.SetDefault("kafka.topic", *kafkaTopic)
	v.SetDefault("telemetry.collector_enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("workload.seed", *seed)
	v.SetDefault("workload.order_count", *orderCount)
	v.SetDefault("workload.start_mid_price", *midPrice)
	v.SetDefault("workload.tick_size", 1)
	v.SetDefault("bench.iterations", *iterations)
	v.SetDefault("bench.warmup_iterations", 1000)
	v.SetDefault("bench.output_csv", "")

	// AutomaticEnv only binds keys viper already knows about (from
	// SetDefault, above) or that Get() is called with directly; bind every
	// known key explicitly so Unmarshal into a nested struct picks up
	// MATCHING_LOG_LEVEL-style overrides too.
	for _, key := range []string{
		"log.level", "log.pretty",
		"kafka.enabled", "kafka.broker_addr", "kafka.topic",
		"telemetry.collector_enabled", "telemetry.endpoint",
		"workload.seed", "workload.order_count", "workload.start_mid_price", "workload.tick_size",
		"bench.iterations", "bench.warmup_iterations", "bench.output_csv",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if *configFile != "" {
		// Values from the file are applied with Set, which viper ranks above
		// environment variables; a plain MergeInConfig would rank below them.
		fileCfg := viper.New()
		fileCfg.SetConfigFile(*configFile)
		if err := fileCfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		for _, key := range fileCfg.AllKeys() {
			v.Set(key, fileCfg.Get(key))
		}
		log.Info().Str("path", *configFile).Msg("loaded config file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}
