package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

const (
	watchPongWait   = 60 * time.Second
	watchPingPeriod = 30 * time.Second
)

func newWatchCmd() *cobra.Command {
	var wsURL string
	var raw bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live state changes from the status websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, wsURL, raw, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&wsURL, "url", defaultWatchURL, "State websocket URL")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print frames as received")
	return cmd
}

type stateMessage struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// watch prints one line per state frame until ctx is done or the server closes.
func watch(ctx context.Context, rawURL string, raw bool, out io.Writer) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := d.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", u, err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})

	// The server pings us; reading keeps the deadline moving. Our own pings
	// only go out from this goroutine so writes never overlap.
	done := make(chan error, 1)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
			if raw {
				fmt.Fprintln(out, string(msg))
				continue
			}
			fmt.Fprintln(out, formatStateMessage(msg))
		}
	}()

	ticker := time.NewTicker(watchPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return nil

		case err := <-done:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// formatStateMessage renders a state frame as a single human readable line.
func formatStateMessage(msg []byte) string {
	var m stateMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return "[TEXT] " + string(msg)
	}

	var d struct {
		SeekStep       float64            `json:"seek_step"`
		Key            string             `json:"key"`
		Seconds        float64            `json:"seconds"`
		Path           string             `json:"path"`
		FileName       string             `json:"file_name"`
		Markers        map[string]float64 `json:"markers"`
		MediaFile      string             `json:"media_file"`
		PlaybackActive bool               `json:"playback_active"`
	}
	if len(m.Data) > 0 {
		_ = json.Unmarshal(m.Data, &d)
	}

	switch m.Type {
	case "state_init":
		return fmt.Sprintf("[STATE] step=%.2fs playing=%t media=%q markers=%s",
			d.SeekStep, d.PlaybackActive, d.MediaFile, formatMarkers(d.Markers))
	case "seek_step_changed":
		return fmt.Sprintf("[STEP] %.2fs", d.SeekStep)
	case "marker_set":
		return fmt.Sprintf("[MARKER SET] %s = %.2fs", d.Key, d.Seconds)
	case "marker_played":
		return fmt.Sprintf("[MARKER] %s -> %.2fs", d.Key, d.Seconds)
	case "media_changed":
		return fmt.Sprintf("[MEDIA] %s", d.FileName)
	case "markers_loaded":
		return fmt.Sprintf("[MARKERS] %s", formatMarkers(d.Markers))
	default:
		return fmt.Sprintf("[%s] %s", strings.ToUpper(m.Type), string(m.Data))
	}
}

func formatMarkers(markers map[string]float64) string {
	if len(markers) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(markers))
	for k := range markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.2f", k, markers[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
