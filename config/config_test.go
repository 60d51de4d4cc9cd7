package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 20*time.Second, cfg.Capture.Duration)
	assert.Equal(t, 90*time.Second, cfg.Capture.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Capture.TareTimeout)
	assert.True(t, cfg.Echo)
	assert.Error(t, cfg.Validate(), "port has no default")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.yaml")
	raw := `
serial:
  port: /dev/ttyACM0
  baud: 57600
capture:
  duration: 5s
  timeout: 30s
mqtt:
  broker: tcp://localhost:1883
label: "unloaded, 22C"
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, 5*time.Second, cfg.Capture.Duration)
	assert.Equal(t, 30*time.Second, cfg.Capture.Timeout)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "straincap", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "unloaded, 22C", cfg.Label)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STRAINCAP_SERIAL_PORT", "COM5")
	t.Setenv("STRAINCAP_CAPTURE_DURATION", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "COM5", cfg.Serial.Port)
	assert.Equal(t, 2*time.Second, cfg.Capture.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Serial:  SerialConfig{Port: "/dev/ttyUSB0", Baud: 115200, ReadTimeout: 500 * time.Millisecond},
			Capture: CaptureConfig{Duration: 20 * time.Second, Timeout: 90 * time.Second, TareTimeout: time.Minute},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"no port":           func(c *Config) { c.Serial.Port = "" },
		"zero baud":         func(c *Config) { c.Serial.Baud = 0 },
		"zero read timeout": func(c *Config) { c.Serial.ReadTimeout = 0 },
		"zero timeout":      func(c *Config) { c.Capture.Timeout = 0 },
		"negative duration": func(c *Config) { c.Capture.Duration = -time.Second },
		"duration too long": func(c *Config) { c.Capture.Duration = c.Capture.Timeout },
		"zero tare timeout": func(c *Config) { c.Capture.TareTimeout = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}

	c := valid()
	c.Capture.Duration = 0
	assert.NoError(t, c.Validate(), "duration is optional")
}
