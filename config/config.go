package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type PostgresConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Topics   TopicsConfig   `mapstructure:"topics"`
	Producer ProducerConfig `mapstructure:"producer"`
}

type TopicsConfig struct {
	DirectMessage string `mapstructure:"direct_message"`
	Announcement  string `mapstructure:"announcement"`
	Relay         string `mapstructure:"relay"`
}

type ProducerConfig struct {
	MaxRetries     int `mapstructure:"max_retries"`
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type WorkerPoolConfig struct {
	Size      int `mapstructure:"size"`
	QueueSize int `mapstructure:"queue_size"`
}

// ChatConfig carries the messaging policy knobs. It is loaded once and
// injected at construction time; nothing reads it globally.
type ChatConfig struct {
	PMRateLimit                int          `mapstructure:"pm_rate_limit"`
	PMRateWindowSecs           int          `mapstructure:"pm_rate_window_secs"`
	PublicRateLimit            int          `mapstructure:"public_rate_limit"`
	PublicRateWindowSecs       int          `mapstructure:"public_rate_window_secs"`
	PublicMessageLengthLimit   int          `mapstructure:"public_message_length_limit"`
	AnnounceMessageLengthLimit int          `mapstructure:"announce_message_length_limit"`
	PublicBacklogHours         int          `mapstructure:"public_backlog_hours"`
	Filters                    []FilterRule `mapstructure:"filters"`

	WorkerPool WorkerPoolConfig `mapstructure:"worker_pool"`
}

// FilterRule is a single literal substitution applied to outgoing message
// bodies, in the order rules appear in the config.
type FilterRule struct {
	Match       string `mapstructure:"match"`
	Replacement string `mapstructure:"replacement"`
}

func (c *ChatConfig) PMRateWindow() time.Duration {
	return time.Duration(c.PMRateWindowSecs) * time.Second
}

func (c *ChatConfig) PublicRateWindow() time.Duration {
	return time.Duration(c.PublicRateWindowSecs) * time.Second
}

func (c *ChatConfig) PublicBacklog() time.Duration {
	return time.Duration(c.PublicBacklogHours) * time.Hour
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("chat.pm_rate_limit", 10)
	v.SetDefault("chat.pm_rate_window_secs", 60)
	v.SetDefault("chat.public_rate_limit", 10)
	v.SetDefault("chat.public_rate_window_secs", 30)
	v.SetDefault("chat.public_message_length_limit", 450)
	v.SetDefault("chat.announce_message_length_limit", 1024)
	v.SetDefault("chat.public_backlog_hours", 24)
	v.SetDefault("chat.worker_pool.size", 8)
	v.SetDefault("chat.worker_pool.queue_size", 1024)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
