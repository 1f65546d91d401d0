package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "5900", cfg.Server.Port)
	assert.Equal(t, 1, cfg.Display.MaxDisplays)
	assert.Equal(t, uint16(1024), cfg.Display.MaxWidth)
	assert.Equal(t, uint16(768), cfg.Display.MaxHeight)
	assert.Equal(t, 30*time.Second, cfg.Display.ConnectTimeout)
	assert.True(t, cfg.Caps.Cursor)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("FBRIDGE_PORT", "6900")
	t.Setenv("FBRIDGE_MAX_DISPLAYS", "4")
	t.Setenv("FBRIDGE_CONNECT_TIMEOUT", "5s")
	t.Setenv("FBRIDGE_CAP_CURSOR", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "6900", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Display.MaxDisplays)
	assert.Equal(t, 5*time.Second, cfg.Display.ConnectTimeout)
	assert.False(t, cfg.Caps.Cursor)
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Display, cfg.Display)
}
