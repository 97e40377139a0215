package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the full configuration record for the triage pipeline.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Broker     BrokerConfig     `yaml:"broker"`
	Queue      QueueConfig      `yaml:"queue"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Storm      StormConfig      `yaml:"storm"`
	Alerting   AlertingConfig   `yaml:"alerting"`
	Agents     []AgentConfig    `yaml:"agents"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type BrokerConfig struct {
	Addr     string `yaml:"addr"`
	QueueKey string `yaml:"queue_key"`
}

type QueueConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	PeekMax      int    `yaml:"peek_max"`
}

type ClassifierConfig struct {
	TimeoutMs            int     `yaml:"timeout_ms"`
	HighUrgencyThreshold float64 `yaml:"high_urgency_threshold"`
	ModelPoolSize        int     `yaml:"model_pool_size"`
}

type StormConfig struct {
	Similarity float64 `yaml:"similarity"`
	WindowS    int     `yaml:"window_s"`
	Threshold  int     `yaml:"threshold"`
}

type AlertingConfig struct {
	WebhookURL       string  `yaml:"webhook_url"`
	WebhookThreshold float64 `yaml:"webhook_threshold"`
}

type AgentConfig struct {
	ID       string             `yaml:"id"`
	Name     string             `yaml:"name"`
	Skills   map[string]float64 `yaml:"skills"`
	Capacity int                `yaml:"capacity"`
}

// ClassifierTimeout returns the primary-path deadline as a duration.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutMs) * time.Millisecond
}

// StormWindow returns the sliding window as a duration.
func (c *Config) StormWindow() time.Duration {
	return time.Duration(c.Storm.WindowS) * time.Second
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		Broker: BrokerConfig{Addr: "localhost:6379", QueueKey: "ticket_queue"},
		Queue:  QueueConfig{SnapshotPath: "queue_store.json", PeekMax: 50},
		Classifier: ClassifierConfig{
			TimeoutMs:            500,
			HighUrgencyThreshold: 0.75,
			ModelPoolSize:        4,
		},
		Storm: StormConfig{Similarity: 0.9, WindowS: 300, Threshold: 10},
		Alerting: AlertingConfig{
			WebhookThreshold: 0.8,
		},
		Agents: []AgentConfig{
			{ID: "A1", Name: "Agent X (Tech Lead)", Skills: map[string]float64{"Technical": 0.9, "Billing": 0.1, "Legal": 0.0}, Capacity: 2},
			{ID: "A2", Name: "Agent Y (Billing Pro)", Skills: map[string]float64{"Technical": 0.1, "Billing": 0.9, "Legal": 0.0}, Capacity: 3},
			{ID: "A3", Name: "Agent Z (Legal Eval)", Skills: map[string]float64{"Technical": 0.0, "Billing": 0.2, "Legal": 0.8}, Capacity: 2},
			{ID: "A4", Name: "Agent W (Generalist)", Skills: map[string]float64{"Technical": 0.4, "Billing": 0.4, "Legal": 0.4}, Capacity: 4},
		},
	}
}

// Load reads the yaml config at path, falling back to defaults when the
// file is missing, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv layers deploy-time environment variables over the file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Broker.Addr = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Alerting.WebhookURL = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		c.Queue.SnapshotPath = v
	}
	if v := os.Getenv("MODEL_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Classifier.ModelPoolSize = n
		}
	}
}
