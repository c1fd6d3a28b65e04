package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // empty disables the gRPC listener

	// DB
	Env    string `yaml:"env"`     // "dev" | "prod"
	DBPath string `yaml:"db_path"` // e.g. "./data/janus.db"

	// Allow-list. URL wins over File when both are set.
	AllowListURL          string        `yaml:"allowlist_url"`
	AllowListFile         string        `yaml:"allowlist_file"`
	AllowListSyncInterval time.Duration `yaml:"allowlist_sync_interval"`
	AllowListMaxAge       time.Duration `yaml:"allowlist_max_age"` // 0 = never stale once loaded

	// Background scanning reads observation batches from ScanFile.
	ScanFile     string        `yaml:"scan_file"`
	ScanInterval time.Duration `yaml:"scan_interval"` // 0 = disabled

	NearbyWindow time.Duration `yaml:"nearby_window"`

	// Status event retention
	EventRetentionDays int `yaml:"event_retention_days"` // 0 = keep forever
	PruneIntervalHours int `yaml:"prune_interval_hours"`

	// Alert fan-out. Empty values disable the sink.
	KafkaBrokers    []string `yaml:"kafka_brokers"`
	KafkaTopic      string   `yaml:"kafka_topic"`
	MQTTBroker      string   `yaml:"mqtt_broker"`
	MQTTClientID    string   `yaml:"mqtt_client_id"`
	MQTTTopicPrefix string   `yaml:"mqtt_topic_prefix"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

func Defaults() Config {
	return Config{
		HTTPAddr:              ":8080",
		GRPCAddr:              ":9090",
		Env:                   "dev",
		DBPath:                "./data/janus.db",
		AllowListSyncInterval: time.Hour,
		AllowListMaxAge:       7 * 24 * time.Hour,
		ScanInterval:          0,
		NearbyWindow:          5 * time.Minute,
		EventRetentionDays:    30,
		PruneIntervalHours:    6,
		KafkaTopic:            "janus.alerts",
		MQTTClientID:          "janus-server",
		MQTTTopicPrefix:       "janus/alerts",
		MetricsEnabled:        true,
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by JANUS_CONFIG_FILE, then JANUS_* environment variables.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("JANUS_CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FromEnv is Load without the file overlay. It never fails; bad values fall
// back to defaults.
func FromEnv() Config {
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

func overlayFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenvDefault("JANUS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getenvAllowEmpty("JANUS_GRPC_ADDR", cfg.GRPCAddr)
	cfg.Env = normalizeEnv(getenvDefault("JANUS_ENV", cfg.Env))
	cfg.DBPath = getenvDefault("JANUS_DB_PATH", cfg.DBPath)

	cfg.AllowListURL = getenvDefault("JANUS_ALLOWLIST_URL", cfg.AllowListURL)
	cfg.AllowListFile = getenvDefault("JANUS_ALLOWLIST_FILE", cfg.AllowListFile)
	cfg.AllowListSyncInterval = getenvDuration("JANUS_ALLOWLIST_SYNC_INTERVAL", cfg.AllowListSyncInterval)
	cfg.AllowListMaxAge = getenvDuration("JANUS_ALLOWLIST_MAX_AGE", cfg.AllowListMaxAge)

	cfg.ScanFile = getenvDefault("JANUS_SCAN_FILE", cfg.ScanFile)
	cfg.ScanInterval = getenvDuration("JANUS_SCAN_INTERVAL", cfg.ScanInterval)
	cfg.NearbyWindow = getenvDuration("JANUS_NEARBY_WINDOW", cfg.NearbyWindow)

	cfg.EventRetentionDays = getenvInt("JANUS_EVENT_RETENTION_DAYS", cfg.EventRetentionDays)
	cfg.PruneIntervalHours = getenvInt("JANUS_PRUNE_INTERVAL_HOURS", cfg.PruneIntervalHours)

	if brokers := splitCSV(os.Getenv("JANUS_KAFKA_BROKERS")); brokers != nil {
		cfg.KafkaBrokers = brokers
	}
	cfg.KafkaTopic = getenvDefault("JANUS_KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.MQTTBroker = getenvDefault("JANUS_MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTClientID = getenvDefault("JANUS_MQTT_CLIENT_ID", cfg.MQTTClientID)
	cfg.MQTTTopicPrefix = getenvDefault("JANUS_MQTT_TOPIC_PREFIX", cfg.MQTTTopicPrefix)

	cfg.MetricsEnabled = getenvBool("JANUS_METRICS_ENABLED", cfg.MetricsEnabled)
}

// normalizeEnv is fail-soft: unknown values are treated as dev.
func normalizeEnv(env string) string {
	env = strings.ToLower(strings.TrimSpace(env))
	if env != "dev" && env != "prod" {
		return "dev"
	}
	return env
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// getenvAllowEmpty lets an explicitly empty variable clear a default.
func getenvAllowEmpty(key, def string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(v)
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
