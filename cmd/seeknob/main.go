package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags holds the raw flag values; they are applied over the config file
// only when the user actually set them.
type cliFlags struct {
	configPath   string
	seekStep     float64
	mpvSocket    string
	mpvBinary    string
	ipcSocket    string
	statusListen string
	logFile      string
	logLevel     string
	startPath    string
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	root := &cobra.Command{
		Use:   "seeknob",
		Short: "Rotary knob remote control for mpv",
		Long: `SeeKnob maps buttons and a rotary knob on Linux input devices to mpv
playback control: seeking with an adjustable step, pause and position markers.
While nothing is playing the same keys navigate the terminal menu.

Devices and key bindings are read from the config file (JSON or YAML).

Examples:
  seeknob                                # use ./config.json
  seeknob -c ~/.config/seeknob.yaml      # custom config
  seeknob --status-listen 127.0.0.1:3001 # enable the live state websocket
  seeknob check-config                   # validate and print bindings`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "config.json", "Config file path (JSON or YAML)")
	pf.Float64Var(&f.seekStep, "seek-step", defaultSeekStep, "Initial seek step in seconds")
	pf.StringVar(&f.mpvSocket, "mpv-socket", defaultMPVSocket, "mpv IPC socket path")
	pf.StringVar(&f.mpvBinary, "mpv-binary", defaultMPVBinary, "mpv executable")
	pf.StringVar(&f.ipcSocket, "ipc-socket", "/tmp/seeknob.sock", "Control socket path (empty disables)")
	pf.StringVar(&f.statusListen, "status-listen", "", "Status/websocket listen address (empty disables)")
	pf.StringVar(&f.logFile, "log-file", "debug.log", "Log file, truncated at start (\"-\" for stderr)")
	pf.StringVar(&f.logLevel, "log-level", "info", "Log level: error, warn, info, debug")
	pf.StringVar(&f.startPath, "start-path", "", "File browser start directory")

	root.AddCommand(newCheckConfigCmd(&f))
	return root
}

func newCheckConfigCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the config file and print the resolved key bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			bindings, err := NewBindingTable(cfg.KeyMappings, cfg.Devices)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: %d devices, %d bindings\n", len(cfg.Devices), bindings.Len())
			for _, e := range bindings.Entries() {
				fmt.Fprintf(out, "  %-22s %s.%s (%d)\n", e.Action, e.Device, keyName(e.Code), e.Code)
			}
			return nil
		},
	}
}

// resolveConfig loads the file, applies changed flags and validates the result.
func resolveConfig(cmd *cobra.Command, f *cliFlags) (Config, error) {
	cfg, err := LoadConfigFile(f.configPath)
	if err != nil {
		return Config{}, err
	}

	flags := cmd.Flags()
	var o FlagOverrides
	if flags.Changed("seek-step") {
		o.DefaultSeekStep = &f.seekStep
	}
	if flags.Changed("mpv-socket") {
		o.MPVSocket = &f.mpvSocket
	}
	if flags.Changed("mpv-binary") {
		o.MPVBinary = &f.mpvBinary
	}
	if flags.Changed("ipc-socket") {
		o.IPCSocket = &f.ipcSocket
	}
	if flags.Changed("status-listen") {
		o.StatusListen = &f.statusListen
	}
	if flags.Changed("log-file") {
		o.LogFile = &f.logFile
	}
	if flags.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if flags.Changed("start-path") {
		o.StartPath = &f.startPath
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run wires every component and blocks until the UI exits or a signal arrives.
func run(parent context.Context, cfg Config) error {
	if parent == nil {
		parent = context.Background()
	}

	logLevel, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, closeLog, err := setupLogger(logLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Debug("starting seeknob", "version", version)

	bindings, err := NewBindingTable(cfg.KeyMappings, cfg.Devices)
	if err != nil {
		return fmt.Errorf("key_mappings: %w", err)
	}
	logger.Info("bindings loaded", "count", bindings.Len())

	// Unavailable devices are logged and skipped; the UI stays usable from the keyboard.
	registry := OpenDevices(cfg.Devices, logger)
	defer registry.Close()

	player := NewMPV(cfg.ToMPVConfig(), logger)
	defer func() {
		if err := player.Quit(); err != nil {
			logger.Warn("player quit failed", "error", err)
		}
	}()

	var store MarkerStorage
	if cfg.MarkerPersistence {
		store = NewMarkerStore(ExpandPath(cfg.MarkerStorageFolder), logger)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan Event, actionQueueSize)

	var broadcasts chan StateBroadcast
	var ws *Server
	if cfg.StatusListen != "" {
		broadcasts = make(chan StateBroadcast, 64)
		ws = NewServer(logger, events, HubConfig{})
	}

	g, gctx := errgroup.WithContext(ctx)

	ui := newUIModel(gctx, player, events, uiOptions{
		StartDir: ExpandPath(cfg.FilemStartPath),
		Browser: BrowserOptions{
			ExtFilters: cfg.FilemExtFilters,
			ShowHidden: bool(cfg.FilemShowHidden),
		},
	}, logger)
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(gctx))

	deps := effectDeps{
		player:  player,
		nav:     newProgramNavigator(program),
		markers: store,
	}

	for _, dev := range registry.Devices() {
		dev := dev
		g.Go(func() error {
			// A failing device never takes the others down.
			serveDevice(gctx, dev, bindings, events, logger)
			return nil
		})
	}

	g.Go(func() error {
		runRouter(gctx, events, deps, cfg.ToRouterConfig(), NewRouterState(cfg.DefaultSeekStep), broadcasts, logger)
		return nil
	})

	if cfg.IPCSocket != "" {
		g.Go(func() error {
			return runIPCServer(gctx, ExpandPath(cfg.IPCSocket), events, logger)
		})
	}

	if ws != nil {
		g.Go(func() error {
			ws.Hub().Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, ws.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runStatusServer(gctx, cfg.StatusListen, newStatusMux(ws), logger)
		})
	}

	g.Go(func() error {
		// Leaving the UI ends the program.
		defer stop()
		_, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("ui: %w", err)
		}
		return nil
	})

	logger.Info("seeknob running",
		"devices", len(registry.Devices()),
		"ipc_socket", cfg.IPCSocket,
		"status_listen", cfg.StatusListen,
		"marker_persistence", bool(cfg.MarkerPersistence))

	err = g.Wait()
	logger.Info("shutting down")
	return err
}
