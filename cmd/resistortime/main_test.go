package main

import (
	"testing"
	"time"

	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/colors"
	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeOptions(t *testing.T) {
	cfg := config.Default()
	opts, err := bridgeOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, bridge.VariantCurrent, opts.Variant)
	assert.Equal(t, "http://localhost:8080/config", opts.FormURL)

	cfg.Server.PublicURL = "https://bridge.example.net"
	cfg.Bridge.Variant = "legacy"
	opts, err = bridgeOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, bridge.VariantLegacy, opts.Variant)
	assert.Equal(t, "https://bridge.example.net/config", opts.FormURL)

	cfg.Bridge.Variant = "v2"
	_, err = bridgeOptions(cfg)
	assert.Error(t, err)
}

func TestBeats(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), "@000"},
		{time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), "@500"},
		{time.Date(2024, 1, 1, 22, 59, 59, 0, time.UTC), "@999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, beats(tt.at))
	}
}

func TestLowerLabel(t *testing.T) {
	at := time.Date(2024, 10, 17, 9, 5, 40, 0, time.UTC)
	assert.Equal(t, "905 R", lowerLabel(0, at))
	assert.Equal(t, beats(at), lowerLabel(1, at))
	assert.Equal(t, beats(at), lowerLabel(2, at))
	assert.Equal(t, "905 R", lowerLabel(2, at.Add(-20*time.Second)))
}

func TestFaceColors(t *testing.T) {
	bg, silk := faceColors(settings.Message{BgColor: 0x550055, SilkColor: 0xFFFFFF}, false)
	assert.Equal(t, "#550055", bg)
	assert.Equal(t, "#FFFFFF", silk)

	bg, silk = faceColors(settings.Message{BgColor: int32(colors.KellyGreen), SilkColor: int32(colors.White)}, true)
	assert.Equal(t, "#55AA00", bg)
	assert.Equal(t, "#FFFFFF", silk)
}

func TestRenderFace(t *testing.T) {
	at := time.Date(2024, 10, 17, 12, 34, 0, 0, time.UTC)
	out := renderFace(settings.Message{BgColor: 0x55AA00, SilkColor: 0xFFFFFF}, false, at)
	assert.Contains(t, out, "R1017")
	assert.Contains(t, out, "1234 R")
	assert.Contains(t, out, "#55AA00")
}
