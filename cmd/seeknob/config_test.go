package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// A config.json in the classic layout, with string-typed flags.
const classicConfigJSON = `{
    "devices": {
        "knob_device": "/dev/input/by-id/usb-knob-event-kbd",
        "buttons_device": "/dev/input/by-id/usb-buttons-event-kbd"
    },
    "default_seek_step": 0.5,
    "marker_persistence": "true",
    "marker_storage_folder": "~/seeknob/markers",
    "key_mappings": {
        "seek_forward": "knob_device.KEY_VOLUMEUP",
        "seek_backward": "knob_device.KEY_VOLUMEDOWN",
        "toggle_pause": "buttons_device.KEY_A",
        "set_marker_1": "buttons_device.KEY_B",
        "play_marker_1": "buttons_device.KEY_C",
        "nav_select": ["knob_device.KEY_MUTE", "buttons_device.KEY_ENTER"]
    },
    "mpv_socket": "/tmp/mpvsocket",
    "mpv_full_screen": "True",
    "mpv_fs_screen": "1",
    "filem_start_path": "/media",
    "filem_ext_filters": "mp4, mkv,avi",
    "filem_show_hidden": "0"
}`

func TestLoadConfigFile_ClassicJSON(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "config.json", classicConfigJSON))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Len(t, cfg.Devices, 2)
	assert.Equal(t, 0.5, cfg.DefaultSeekStep)
	assert.True(t, bool(cfg.MarkerPersistence))
	assert.True(t, bool(cfg.MPVFullScreen))
	assert.Equal(t, FlexInt(1), cfg.MPVFSScreen)
	assert.False(t, bool(cfg.FilemShowHidden))
	assert.Equal(t, StringList{"mp4", "mkv", "avi"}, cfg.FilemExtFilters)
	assert.Equal(t, StringList{"knob_device.KEY_VOLUMEUP"}, cfg.KeyMappings["seek_forward"])
	assert.Equal(t, StringList{"knob_device.KEY_MUTE", "buttons_device.KEY_ENTER"}, cfg.KeyMappings["nav_select"])

	// Defaults survive for keys the file does not mention.
	assert.Equal(t, defaultMPVBinary, cfg.MPVBinary)
	assert.Equal(t, defaultMessageDurationMS, cfg.MessageDurationMS)
	assert.Equal(t, "debug.log", cfg.LogFile)

	bt, err := NewBindingTable(cfg.KeyMappings, cfg.Devices)
	require.NoError(t, err)
	assert.Equal(t, 7, bt.Len())
}

func TestLoadConfigFile_YAML(t *testing.T) {
	cfg, err := LoadConfigFile(writeConfig(t, "seeknob.yaml", `
devices:
  knob_device: /dev/input/event3
default_seek_step: 2
marker_persistence: false
key_mappings:
  seek_forward: [knob_device.KEY_VOLUMEUP]
filem_ext_filters: [mp4]
status_listen: 127.0.0.1:3001
log_level: debug
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.0, cfg.DefaultSeekStep)
	assert.Equal(t, "127.0.0.1:3001", cfg.StatusListen)
	assert.Equal(t, StringList{"mp4"}, cfg.FilemExtFilters)
}

func TestLoadConfigFile_RejectsUnknownField(t *testing.T) {
	_, err := LoadConfigFile(writeConfig(t, "c.json", `{"devices": {}, "seek_stepp": 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seek_stepp")
}

func TestLoadConfigFile_RejectsTrailingDocument(t *testing.T) {
	for _, body := range []string{
		"devices:\n  knob: /dev/input/event3\n---\nlog_level: debug\n",
		"devices:\n  knob: /dev/input/event3\n---\n{}\n",
	} {
		_, err := LoadConfigFile(writeConfig(t, "c.yaml", body))
		require.Error(t, err, body)
		assert.Contains(t, err.Error(), "unexpected trailing document")
	}

	_, err := LoadConfigFile(writeConfig(t, "c.yaml", "devices:\n  knob: /dev/input/event3\n# trailing comment\n"))
	assert.NoError(t, err)
}

func TestLoadConfigFile_RejectsBadFlexValues(t *testing.T) {
	for _, body := range []string{
		`{"marker_persistence": "maybe"}`,
		`{"mpv_fs_screen": "left"}`,
		`{"filem_ext_filters": {"a": 1}}`,
	} {
		_, err := LoadConfigFile(writeConfig(t, "c.json", body))
		assert.Error(t, err, body)
	}
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.Devices = map[string]string{"knob": "/dev/input/event3"}
		c.KeyMappings = map[string]StringList{"seek_forward": {"knob.KEY_VOLUMEUP"}}
		return c
	}

	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no devices", func(c *Config) { c.Devices = nil }},
		{"empty device path", func(c *Config) { c.Devices["knob"] = "" }},
		{"seek step too small", func(c *Config) { c.DefaultSeekStep = 0.05 }},
		{"persistence without folder", func(c *Config) { c.MarkerPersistence = true; c.MarkerStorageFolder = "" }},
		{"no key mappings", func(c *Config) { c.KeyMappings = nil }},
		{"no mpv socket", func(c *Config) { c.MPVSocket = "" }},
		{"negative screen", func(c *Config) { c.MPVFSScreen = -1 }},
		{"zero message duration", func(c *Config) { c.MessageDurationMS = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"no log file", func(c *Config) { c.LogFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	step := 0.3
	empty := ""
	level := "debug"

	FlagOverrides{DefaultSeekStep: &step, StatusListen: &empty, LogLevel: &level}.Apply(&cfg)
	assert.Equal(t, 0.3, cfg.DefaultSeekStep)
	assert.Equal(t, "", cfg.StatusListen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, defaultMPVSocket, cfg.MPVSocket, "nil overrides leave values alone")
}

func TestConfigConverters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MarkerPersistence = true
	cfg.MPVFullScreen = true
	cfg.MPVFSScreen = 2

	assert.Equal(t, RouterConfig{MessageDurationMS: defaultMessageDurationMS, PersistMarkers: true}, cfg.ToRouterConfig())
	assert.Equal(t, MPVConfig{Binary: defaultMPVBinary, SocketPath: defaultMPVSocket, FullScreen: true, FSScreen: 2}, cfg.ToMPVConfig())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "markers"), ExpandPath("~/markers"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
	assert.Equal(t, "", ExpandPath(""))
}
