package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// ============================================================================
// seeknob-ctl - Command-line client for a running seeknob
// ============================================================================
// Usage:
//   seeknob-ctl action seek_forward
//   seeknob-ctl action play_marker_2
//   seeknob-ctl snapshot
//   seeknob-ctl watch --url ws://127.0.0.1:3001/ws
// ============================================================================

const (
	defaultSocketPath = "/tmp/seeknob.sock"
	defaultWatchURL   = "ws://127.0.0.1:3001/ws"
	requestTimeout    = 3 * time.Second
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:           "seeknob-ctl",
		Short:         "Control a running seeknob over its control socket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocketPath, "Control socket path")

	root.AddCommand(&cobra.Command{
		Use:   "action <name>",
		Short: "Inject a logical action as if its key had been pressed",
		Long: `Inject a logical action as if its key had been pressed.

Names are the ones used in key_mappings: seek_forward, seek_backward,
toggle_pause, increase_seek_step, decrease_seek_step, set_marker_<key>,
play_marker_<key>, nav_up, nav_down, nav_select, nav_quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := sendRequest(socketPath, actionRequest(args[0])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "snapshot",
		Short: "Print the current seek step, markers and media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := sendRequest(socketPath, request{Type: "snapshot"})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	})

	root.AddCommand(newWatchCmd())
	return root
}
