package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-"`
}

// ServerConfig represents the local HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	// PublicURL is how the configuration webview reaches this server.
	PublicURL string `yaml:"public_url"`
}

// BridgeConfig controls how configuration events are handled
type BridgeConfig struct {
	Variant string `yaml:"variant"` // "current" or "legacy"

	// LegacyPageURL is the hosted settings page used by the legacy variant.
	LegacyPageURL string `yaml:"legacy_page_url"`

	// StorePath is the TOML file persisted preferences are kept in.
	StorePath string `yaml:"store_path"`
}

// WatchConfig represents the message channel to the watch
type WatchConfig struct {
	AppUUID     string            `yaml:"app_uuid"`
	MessageKeys map[string]uint32 `yaml:"message_keys"`
	AckTimeout  time.Duration     `yaml:"ack_timeout"`

	Transports []TransportConfig `yaml:"transports"`
}

// TransportConfig represents one connection to a watch
type TransportConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"` // "devconn", "serial" or "qemu"

	// devconn
	URL            string        `yaml:"url,omitempty"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay,omitempty"`
	MaxReconnect   time.Duration `yaml:"max_reconnect_delay,omitempty"`
	PingInterval   time.Duration `yaml:"ping_interval,omitempty"`

	// serial
	Device   string `yaml:"device,omitempty"`
	BaudRate int    `yaml:"baud_rate,omitempty"`

	// qemu
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level      string `yaml:"level"` // trace, debug, info, warn, error
	BufferSize int    `yaml:"buffer_size"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Bridge: BridgeConfig{
			Variant:       "current",
			LegacyPageURL: "http://www.combee.net/resistor-time/config.html",
			StorePath:     "resistortime.toml",
		},
		Watch: WatchConfig{
			AppUUID: "9f4e2b1c-63a5-4d0e-8b7f-5c2d1a0e9b34",
			MessageKeys: map[string]uint32{
				"BG_COLOR":      10000,
				"LOWER_LABEL":   10001,
				"RESISTOR_TYPE": 10002,
				"SILK_COLOR":    10003,
				"VIBE_ON_BT":    10004,
			},
			AckTimeout: 10 * time.Second,
			Transports: []TransportConfig{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			BufferSize: 500,
		},
	}
}

// SearchPaths are tried in order by Load.
var SearchPaths = []string{
	"config.yaml",
	"configs/config.yaml",
	"/etc/resistortime/config.yaml",
}

// Load loads configuration from the first config file found
func Load() (*Config, error) {
	var data []byte
	var err error
	var loadedPath string

	for _, path := range SearchPaths {
		data, err = os.ReadFile(path)
		if err == nil {
			loadedPath = path
			break
		}
	}

	if err != nil {
		return nil, err
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = loadedPath
	return cfg, nil
}

// LoadFile loads configuration from path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = path
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
