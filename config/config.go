package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "STRAINCAP"

type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Capture CaptureConfig `mapstructure:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	MQTT    MQTTConfig    `mapstructure:"mqtt"`
	// Label names the test conditions; it travels with the summary.
	Label string `mapstructure:"label"`
	// Echo prints every device line to the console.
	Echo bool `mapstructure:"echo"`
}

type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	Baud        int           `mapstructure:"baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type CaptureConfig struct {
	Duration    time.Duration `mapstructure:"duration"`
	Timeout     time.Duration `mapstructure:"timeout"`
	TareTimeout time.Duration `mapstructure:"tare_timeout"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	MirrorLines bool   `mapstructure:"mirror_lines"`
}

// Load reads configuration from path, or from straincap.yaml in the
// working directory or ./configs when path is empty. A .env file and
// STRAINCAP_* environment variables override file values.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("straincap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.read_timeout", 500*time.Millisecond)
	v.SetDefault("serial.open_timeout", 5*time.Second)

	v.SetDefault("capture.duration", 20*time.Second)
	v.SetDefault("capture.timeout", 90*time.Second)
	v.SetDefault("capture.tare_timeout", 60*time.Second)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "straincap")
	v.SetDefault("mqtt.topic_prefix", "straincap")
	v.SetDefault("mqtt.mirror_lines", false)

	v.SetDefault("label", "")
	v.SetDefault("echo", true)
}

// Validate checks the settings a capture cannot run without.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return errors.New("serial.port is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout <= 0 {
		return errors.New("serial.read_timeout must be positive")
	}
	if c.Capture.Timeout <= 0 {
		return errors.New("capture.timeout must be positive")
	}
	if c.Capture.Duration < 0 {
		return errors.New("capture.duration must not be negative")
	}
	if c.Capture.Duration > 0 && c.Capture.Duration >= c.Capture.Timeout {
		return fmt.Errorf("capture.timeout (%s) must be longer than capture.duration (%s)", c.Capture.Timeout, c.Capture.Duration)
	}
	if c.Capture.TareTimeout <= 0 {
		return errors.New("capture.tare_timeout must be positive")
	}
	return nil
}
