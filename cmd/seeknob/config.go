package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the seeknob daemon.
//
// The file is read with a YAML decoder. YAML is a superset of JSON, so the
// classic config.json layout loads as-is. Several values accept both native
// types and the string forms older config files use ("true", "0", "mp4,mkv").
type Config struct {
	// Devices maps a logical device name (e.g. "knob_device") to its event path.
	Devices map[string]string `yaml:"devices"`

	DefaultSeekStep float64 `yaml:"default_seek_step"`

	MarkerPersistence   FlexBool `yaml:"marker_persistence"`
	MarkerStorageFolder string   `yaml:"marker_storage_folder"`

	// KeyMappings maps an action name to one or more "<device>.<KEY_NAME>" values.
	KeyMappings map[string]StringList `yaml:"key_mappings"`

	MPVBinary     string   `yaml:"mpv_binary"`
	MPVSocket     string   `yaml:"mpv_socket"`
	MPVFullScreen FlexBool `yaml:"mpv_full_screen"`
	MPVFSScreen   FlexInt  `yaml:"mpv_fs_screen"`

	// File browser
	FilemStartPath  string     `yaml:"filem_start_path"`
	FilemExtFilters StringList `yaml:"filem_ext_filters"`
	FilemShowHidden FlexBool   `yaml:"filem_show_hidden"`

	MessageDurationMS int `yaml:"message_duration_ms"`

	// IPCSocket is the control socket path. Empty disables it.
	IPCSocket string `yaml:"ipc_socket"`

	// StatusListen is the status/websocket server address. Empty disables it.
	StatusListen string `yaml:"status_listen"`

	// LogFile is truncated on every start. "-" logs to stderr.
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults.
func DefaultConfig() Config {
	return Config{
		Devices:             map[string]string{},
		DefaultSeekStep:     defaultSeekStep,
		MarkerPersistence:   false,
		MarkerStorageFolder: defaultMarkerFolder,
		KeyMappings:         map[string]StringList{},
		MPVBinary:           defaultMPVBinary,
		MPVSocket:           defaultMPVSocket,
		FilemStartPath:      "~",
		FilemExtFilters:     StringList{"mp4", "mkv", "avi", "mov", "webm"},
		MessageDurationMS:   defaultMessageDurationMS,
		IPCSocket:           "/tmp/seeknob.sock",
		StatusListen:        "",
		LogFile:             "debug.log",
		LogLevel:            string(LogLevelInfo),
	}
}

// LoadConfigFile reads and parses a config file.
//
// Notes:
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
//   - Values missing from the file keep their DefaultConfig value.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Only whitespace and comments may follow the document. A second document
	// fails KnownFields on struct{}, so anything but EOF is rejected.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds command line overrides; each is applied only when non-nil.
type FlagOverrides struct {
	DefaultSeekStep *float64
	MPVSocket       *string
	MPVBinary       *string
	IPCSocket       *string
	StatusListen    *string
	LogFile         *string
	LogLevel        *string
	StartPath       *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.DefaultSeekStep != nil {
		cfg.DefaultSeekStep = *o.DefaultSeekStep
	}
	if o.MPVSocket != nil {
		cfg.MPVSocket = *o.MPVSocket
	}
	if o.MPVBinary != nil {
		cfg.MPVBinary = *o.MPVBinary
	}
	if o.IPCSocket != nil {
		cfg.IPCSocket = *o.IPCSocket
	}
	if o.StatusListen != nil {
		cfg.StatusListen = *o.StatusListen
	}
	if o.LogFile != nil {
		cfg.LogFile = *o.LogFile
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.StartPath != nil {
		cfg.FilemStartPath = *o.StartPath
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
// Key mappings are checked separately by NewBindingTable.
func (c *Config) Validate() error {
	if len(c.Devices) == 0 {
		return errors.New("devices must not be empty")
	}
	for name, path := range c.Devices {
		if name == "" {
			return errors.New("devices: empty device name")
		}
		if path == "" {
			return fmt.Errorf("devices.%s: path is empty", name)
		}
	}

	if c.DefaultSeekStep < minSeekStep {
		return fmt.Errorf("default_seek_step must be >= %.1f", minSeekStep)
	}
	if bool(c.MarkerPersistence) && c.MarkerStorageFolder == "" {
		return errors.New("marker_persistence is enabled but marker_storage_folder is empty")
	}
	if len(c.KeyMappings) == 0 {
		return errors.New("key_mappings must not be empty")
	}

	if c.MPVSocket == "" {
		return errors.New("mpv_socket must not be empty")
	}
	if c.MPVBinary == "" {
		return errors.New("mpv_binary must not be empty")
	}
	if c.MPVFSScreen < 0 {
		return errors.New("mpv_fs_screen must be >= 0")
	}
	if c.MessageDurationMS <= 0 {
		return errors.New("message_duration_ms must be > 0")
	}

	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFile == "" {
		return errors.New("log_file must not be empty (use \"-\" for stderr)")
	}

	return nil
}

// ToRouterConfig converts file config into the reducer policy.
func (c *Config) ToRouterConfig() RouterConfig {
	return RouterConfig{
		MessageDurationMS: c.MessageDurationMS,
		PersistMarkers:    bool(c.MarkerPersistence),
	}
}

// ToMPVConfig converts file config into the player launch settings.
func (c *Config) ToMPVConfig() MPVConfig {
	return MPVConfig{
		Binary:     c.MPVBinary,
		SocketPath: ExpandPath(c.MPVSocket),
		FullScreen: bool(c.MPVFullScreen),
		FSScreen:   int(c.MPVFSScreen),
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

// ============================================================================
// Lenient value types
// ============================================================================

// FlexBool accepts a YAML/JSON bool or a boolean-like string ("true", "True", "yes", "0").
type FlexBool bool

func (b *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean", value.Line)
	}
	switch strings.ToLower(strings.TrimSpace(value.Value)) {
	case "true", "yes", "on", "1":
		*b = true
	case "false", "no", "off", "0", "":
		*b = false
	default:
		return fmt.Errorf("line %d: invalid boolean %q", value.Line, value.Value)
	}
	return nil
}

// FlexInt accepts an integer or a numeric string.
type FlexInt int

func (i *FlexInt) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an integer", value.Line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid integer %q", value.Line, value.Value)
	}
	*i = FlexInt(n)
	return nil
}

// StringList accepts a sequence of strings or a single comma-separated string.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = cleanList(items)
		return nil
	case yaml.ScalarNode:
		*l = cleanList(strings.Split(value.Value, ","))
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

func cleanList(items []string) StringList {
	out := make(StringList, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
