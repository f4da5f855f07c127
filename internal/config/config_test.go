package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 300, cfg.Collapsed.Width)
	assert.Equal(t, 40, cfg.Collapsed.Height)
	assert.Equal(t, 800, cfg.Expanded.Width)
	assert.Equal(t, 400, cfg.Expanded.Height)
	assert.Equal(t, 10, cfg.CornerRadius)
	assert.Equal(t, Color{0, 0, 0, 255}, cfg.Background)
	assert.Equal(t, []string{"clock"}, cfg.Modules.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Collapsed, cfg.Collapsed)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
corner_radius = 16
background_color = [10, 20, 30, 200]
font = "/usr/share/fonts/TTF/DejaVuSans.ttf"

[collapsed]
width = 400
height = 48

[expanded]
width = 900
height = 500

[modules]
enabled = ["clock", "battery"]

[modules.settings.clock]
format = "15:04"
font_size = 18.0

[modules.settings.battery]
device = "battery_BAT0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Size{Width: 400, Height: 48}, cfg.Collapsed)
	assert.Equal(t, Size{Width: 900, Height: 500}, cfg.Expanded)
	assert.Equal(t, 16, cfg.CornerRadius)
	assert.Equal(t, Color{10, 20, 30, 200}, cfg.Background)
	assert.Equal(t, []string{"clock", "battery"}, cfg.Modules.Enabled)
	assert.Equal(t, "15:04", cfg.ModuleSettings("clock")["format"])
	assert.Equal(t, 18.0, cfg.ModuleSettings("clock")["font_size"])
	assert.Equal(t, "battery_BAT0", cfg.ModuleSettings("battery")["device"])
}

func TestLoad_RejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero collapsed", "[collapsed]\nwidth = 0\nheight = 40"},
		{"negative radius", "corner_radius = -1"},
		{"expanded smaller than collapsed", "[expanded]\nwidth = 100\nheight = 10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestModuleSettings_EmptyWhenUnset(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.ModuleSettings("does-not-exist")
	require.NotNil(t, s)
	assert.Empty(t, s)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.CornerRadius = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.CornerRadius)
	assert.Equal(t, cfg.Collapsed, loaded.Collapsed)
}
