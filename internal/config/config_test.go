package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9090
bridge:
  variant: legacy
watch:
  ack_timeout: 3s
  message_keys:
    SILK_COLOR: 1
  transports:
    - id: phone
      type: devconn
      url: ws://192.168.1.20:9000
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "legacy", cfg.Bridge.Variant)
	assert.Equal(t, 3*time.Second, cfg.Watch.AckTimeout)
	assert.Equal(t, uint32(1), cfg.Watch.MessageKeys["SILK_COLOR"])
	assert.Equal(t, uint32(10000), cfg.Watch.MessageKeys["BG_COLOR"])
	require.Len(t, cfg.Watch.Transports, 1)
	assert.Equal(t, "ws://192.168.1.20:9000", cfg.Watch.Transports[0].URL)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Bridge.StorePath = "/var/lib/resistortime/prefs.toml"
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Bridge, loaded.Bridge)
	assert.Equal(t, cfg.Watch.AppUUID, loaded.Watch.AppUUID)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Default().Save(path))

	changed := make(chan *Config, 4)
	w, err := NewWatcher(context.Background(), path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	}, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	// a truncate may be observed before the write lands
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Logging.Level == "debug" {
				return
			}
		case <-timeout:
			t.Fatal("config change not observed")
		}
	}
}
