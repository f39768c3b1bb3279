package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

var (
	// ErrPlayerNotRunning is returned when a file is expected to be playing but mpv has exited.
	ErrPlayerNotRunning = errors.New("mpv is not running")
	// ErrNoPosition is returned when mpv has no playback position (nothing loaded yet).
	ErrNoPosition = errors.New("mpv reported no playback position")
)

// PlayerClient is the playback capability set the router needs.
// This allows for mocking in tests.
type PlayerClient interface {
	IsActive() bool
	SeekRelative(seconds float64) error
	TogglePause() error
	SeekAbsolute(seconds float64) error
	CurrentPosition() (float64, error)
	ShowMessage(text string, durationMS int) error
}

// MPVConfig describes how mpv is launched.
type MPVConfig struct {
	Binary     string
	SocketPath string
	FullScreen bool
	FSScreen   int
}

// MPV launches mpv and talks to it over its JSON IPC socket.
//
// Every command opens a fresh connection, so callers on different goroutines
// never share a socket.
type MPV struct {
	cfg         MPVConfig
	logger      *slog.Logger
	dialTimeout time.Duration
	readTimeout time.Duration

	mu   sync.Mutex
	proc *exec.Cmd
	done chan struct{}
}

// mpvRequest is the JSON IPC request shape: {"command": [name, args...]}.
type mpvRequest struct {
	Command []any `json:"command"`
}

// mpvResponse is a reply line. Lines carrying "event" are asynchronous notifications.
type mpvResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Event string          `json:"event"`
}

// NewMPV returns a controller with no running process.
func NewMPV(cfg MPVConfig, logger *slog.Logger) *MPV {
	if cfg.Binary == "" {
		cfg.Binary = defaultMPVBinary
	}
	done := make(chan struct{})
	close(done)
	return &MPV{
		cfg:         cfg,
		logger:      logger,
		dialTimeout: mpvDialTimeout,
		readTimeout: mpvReadTimeout,
		done:        done,
	}
}

// launchArgs builds the mpv argument list for file.
func (m *MPV) launchArgs(file string) []string {
	args := []string{file, "--input-ipc-server=" + m.cfg.SocketPath}
	if m.cfg.FullScreen {
		args = append(args, "--fs", "--fs-screen="+strconv.Itoa(m.cfg.FSScreen))
	}
	return append(args,
		"--hr-seek=yes",
		"--hr-seek-demuxer-offset=0",
		"--hwdec=auto",
	)
}

// Start launches mpv for file. A running instance is quit first.
func (m *MPV) Start(file string) error {
	if m.IsActive() {
		if err := m.Quit(); err != nil {
			m.logger.Warn("failed to stop previous mpv instance", "error", err)
		}
	}

	proc := exec.Command(m.cfg.Binary, m.launchArgs(file)...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	done := make(chan struct{})
	go func() {
		err := proc.Wait()
		m.logger.Info("mpv exited", "file", file, "error", err)
		close(done)
	}()

	m.mu.Lock()
	m.proc, m.done = proc, done
	m.mu.Unlock()

	m.logger.Info("mpv started", "file", file, "pid", proc.Process.Pid, "socket", m.cfg.SocketPath)
	return nil
}

// Done returns a channel closed when the current mpv process exits.
func (m *MPV) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// IsActive reports whether the mpv process is alive. It is never cached.
func (m *MPV) IsActive() bool {
	select {
	case <-m.Done():
		return false
	default:
		return true
	}
}

// Quit asks mpv to exit and kills it if it does not within a grace period.
func (m *MPV) Quit() error {
	if !m.IsActive() {
		return nil
	}

	m.mu.Lock()
	proc, done := m.proc, m.done
	m.mu.Unlock()

	if err := m.sendCommand("quit"); err != nil {
		m.logger.Warn("mpv quit command failed; killing process", "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(mpvQuitGrace):
	}

	if proc == nil || proc.Process == nil {
		return ErrPlayerNotRunning
	}
	if err := proc.Process.Kill(); err != nil {
		return fmt.Errorf("kill mpv: %w", err)
	}
	<-done
	return nil
}

func (m *MPV) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", m.cfg.SocketPath, m.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect mpv socket: %w", err)
	}
	return conn, nil
}

func writeMPVCommand(conn net.Conn, args []any) error {
	payload, err := json.Marshal(mpvRequest{Command: args})
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// sendCommand writes one command and does not wait for the reply.
func (m *MPV) sendCommand(args ...any) error {
	conn, err := m.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(m.readTimeout))
	return writeMPVCommand(conn, args)
}

// request writes one command and returns the data field of its reply.
func (m *MPV) request(args ...any) (json.RawMessage, error) {
	conn, err := m.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(m.readTimeout))
	if err := writeMPVCommand(conn, args); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp mpvResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			m.logger.Warn("failed to parse mpv response", "error", err)
			continue
		}
		if resp.Event != "" {
			continue
		}
		if resp.Error != "" && resp.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], resp.Error)
		}
		return resp.Data, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return nil, fmt.Errorf("read response: connection closed")
}

// SeekRelative seeks by seconds from the current position.
func (m *MPV) SeekRelative(seconds float64) error {
	return m.sendCommand("seek", seconds, "relative")
}

// SeekAbsolute jumps to seconds.
func (m *MPV) SeekAbsolute(seconds float64) error {
	return m.sendCommand("seek", seconds, "absolute")
}

// TogglePause toggles pause.
func (m *MPV) TogglePause() error {
	return m.sendCommand("cycle", "pause")
}

// ShowMessage displays text on the video for durationMS.
func (m *MPV) ShowMessage(text string, durationMS int) error {
	return m.sendCommand("show_text", text, durationMS)
}

// CurrentPosition returns the playback position in seconds.
func (m *MPV) CurrentPosition() (float64, error) {
	data, err := m.request("get_property", "time-pos")
	if err != nil {
		return 0, fmt.Errorf("get time-pos: %w", err)
	}
	if len(data) == 0 || string(data) == "null" {
		return 0, ErrNoPosition
	}

	var pos float64
	if err := json.Unmarshal(data, &pos); err != nil {
		return 0, fmt.Errorf("parse time-pos %s: %w", data, err)
	}
	return pos, nil
}
