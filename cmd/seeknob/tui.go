package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ============================================================================
// Terminal UI
// ============================================================================
// Screens: main menu, file browser, help, about and the "now playing" page.
// The knob reaches this model only as synthetic key presses (see tui_nav.go),
// so keyboard and knob navigation take the same code path.
// ============================================================================

type screen int

const (
	screenMenu screen = iota
	screenBrowser
	screenHelp
	screenAbout
	screenPlaying
)

func (s screen) String() string {
	switch s {
	case screenMenu:
		return "menu"
	case screenBrowser:
		return "browser"
	case screenHelp:
		return "help"
	case screenAbout:
		return "about"
	case screenPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// mediaPlayer is the part of the player the UI drives directly.
type mediaPlayer interface {
	Start(file string) error
	Quit() error
	Done() <-chan struct{}
	IsActive() bool
}

// Messages
type (
	// redrawMsg forces a repaint after an external navigation key.
	redrawMsg struct{}

	// playbackEndedMsg is sent when the player started for session exits.
	playbackEndedMsg struct{ session int }

	// playerQuitMsg reports the result of an explicit stop.
	playerQuitMsg struct{ err error }
)

type menuItem struct {
	label string
	to    screen
	quit  bool
}

func (i menuItem) FilterValue() string { return i.label }
func (i menuItem) Title() string       { return i.label }
func (i menuItem) Description() string { return "" }

type uiKeyMap struct {
	Select key.Binding
	Back   key.Binding
	Kill   key.Binding
}

var uiKeys = uiKeyMap{
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q/esc", "back")),
	Kill:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// uiOptions configures the terminal UI.
type uiOptions struct {
	StartDir string
	Browser  BrowserOptions
	// MediaEventTimeout bounds how long the UI waits to enqueue MediaStarted.
	MediaEventTimeout time.Duration
}

type uiModel struct {
	ctx    context.Context
	logger *slog.Logger

	player mediaPlayer
	events chan<- Event
	opts   uiOptions

	screen screen
	width  int
	height int

	menu    list.Model
	browser list.Model
	pager   viewport.Model

	dir     string
	playing string
	session int
	status  string
}

func newListModel(items []list.Item, title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(items, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

func newUIModel(ctx context.Context, player mediaPlayer, events chan<- Event, opts uiOptions, logger *slog.Logger) *uiModel {
	if opts.MediaEventTimeout <= 0 {
		opts.MediaEventTimeout = defaultIPCQueueWait
	}

	m := &uiModel{
		ctx:    ctx,
		logger: logger,
		player: player,
		events: events,
		opts:   opts,
		screen: screenMenu,
		width:  80,
		height: 24,
		dir:    opts.StartDir,
		pager:  viewport.New(80, 20),
	}
	m.menu = newListModel([]list.Item{
		menuItem{label: "Select File From Filesystem", to: screenBrowser},
		menuItem{label: "Help", to: screenHelp},
		menuItem{label: "About", to: screenAbout},
		menuItem{label: "Quit", quit: true},
	}, "Main Menu")
	m.browser = newListModel(nil, "File Browser (Esc to exit, Enter to select)")
	return m
}

func (m *uiModel) Init() tea.Cmd {
	return nil
}

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case redrawMsg:
		return m, nil

	case playbackEndedMsg:
		if msg.session != m.session || m.screen != screenPlaying {
			return m, nil
		}
		m.logger.Info("playback ended", "file", m.playing)
		m.playing = ""
		m.screen = screenMenu
		return m, nil

	case playerQuitMsg:
		if msg.err != nil {
			m.logger.Warn("player quit failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, uiKeys.Kill) {
			return m, m.shutdown()
		}
		switch m.screen {
		case screenMenu:
			return m.updateMenu(msg)
		case screenBrowser:
			return m.updateBrowser(msg)
		case screenHelp, screenAbout:
			return m.updatePager(msg)
		case screenPlaying:
			return m.updatePlaying(msg)
		}
	}

	return m, nil
}

func (m *uiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, uiKeys.Select) {
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		return m, cmd
	}

	item, ok := m.menu.SelectedItem().(menuItem)
	if !ok {
		return m, nil
	}
	if item.quit {
		return m, m.shutdown()
	}

	switch item.to {
	case screenBrowser:
		m.openDir(m.dir)
	case screenHelp:
		m.openPager(helpText)
	case screenAbout:
		m.openPager(aboutText)
	}
	m.screen = item.to
	return m, nil
}

func (m *uiModel) updateBrowser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, uiKeys.Back):
		m.screen = screenMenu
		return m, nil

	case key.Matches(msg, uiKeys.Select):
		entry, ok := m.browser.SelectedItem().(browserEntry)
		if !ok {
			return m, nil
		}
		if entry.IsDir {
			m.openDir(entry.Path)
			return m, nil
		}
		return m, m.play(entry.Path)
	}

	var cmd tea.Cmd
	m.browser, cmd = m.browser.Update(msg)
	return m, cmd
}

func (m *uiModel) updatePager(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, uiKeys.Back) {
		m.screen = screenMenu
		return m, nil
	}
	var cmd tea.Cmd
	m.pager, cmd = m.pager.Update(msg)
	return m, cmd
}

func (m *uiModel) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, uiKeys.Back) {
		return m, nil
	}
	m.logger.Info("stopping playback", "file", m.playing)
	m.playing = ""
	m.screen = screenMenu
	return m, m.quitPlayer()
}

// openDir lists dir into the browser and moves the cursor to the top.
// On failure the browser keeps its previous listing.
func (m *uiModel) openDir(dir string) {
	dir = filepath.Clean(dir)
	entries, err := listDirectory(dir, m.opts.Browser)
	if err != nil {
		m.logger.Warn("browse failed", "dir", dir, "error", err)
		m.status = err.Error()
		return
	}

	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, e)
	}
	m.browser.SetItems(items)
	m.browser.Select(0)
	m.dir = dir
	m.status = ""
}

func (m *uiModel) openPager(text string) {
	m.pager.SetContent(text)
	m.pager.GotoTop()
}

// play launches the player and tells the router which media is loaded.
func (m *uiModel) play(path string) tea.Cmd {
	if err := m.player.Start(path); err != nil {
		m.logger.Error("player start failed", "file", path, "error", err)
		m.status = fmt.Sprintf("could not start player: %v", err)
		return nil
	}

	m.session++
	m.playing = path
	m.screen = screenPlaying
	m.status = ""
	m.logger.Info("playback started", "file", path)

	return tea.Batch(
		m.announceMedia(path),
		waitForPlaybackEnd(m.player.Done(), m.session),
	)
}

func (m *uiModel) announceMedia(path string) tea.Cmd {
	events := m.events
	ctx := m.ctx
	timeout := m.opts.MediaEventTimeout
	logger := m.logger
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case events <- MediaStarted{Path: path, At: time.Now()}:
		case <-t.C:
			logger.Warn("media event dropped (queue full)", "file", path)
		case <-ctx.Done():
		}
		return nil
	}
}

func waitForPlaybackEnd(done <-chan struct{}, session int) tea.Cmd {
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{session: session}
	}
}

func (m *uiModel) quitPlayer() tea.Cmd {
	player := m.player
	return func() tea.Msg {
		return playerQuitMsg{err: player.Quit()}
	}
}

// shutdown stops the player before leaving the program.
func (m *uiModel) shutdown() tea.Cmd {
	if m.player.IsActive() {
		if err := m.player.Quit(); err != nil {
			m.logger.Warn("player quit failed", "error", err)
		}
	}
	return tea.Quit
}

func (m *uiModel) resize() {
	// Frame border and padding take four columns and two rows; header and footer two more rows.
	w := max(m.width-4, 10)
	h := max(m.height-4, 3)
	m.menu.SetSize(w, h)
	m.browser.SetSize(w, h-1)
	m.pager.Width = w
	m.pager.Height = h - 1
}

func (m *uiModel) View() string {
	var body string
	switch m.screen {
	case screenMenu:
		body = m.menu.View() + "\n" + footerStyle.Render("SeeKnob")
	case screenBrowser:
		body = m.browser.View() + "\n" + footerStyle.Render("Current Directory: "+m.dir)
	case screenHelp:
		body = titleStyle.Render("Help") + "\n" + m.pager.View()
	case screenAbout:
		body = titleStyle.Render("About") + "\n" + m.pager.View()
	case screenPlaying:
		body = strings.Join([]string{
			titleStyle.Render("Now Playing"),
			"",
			filepath.Base(m.playing),
			"",
			"The video is currently playing in the MPV player.",
			"",
			footerStyle.Render("q/esc: stop playback and return to the menu"),
		}, "\n")
	}
	if m.status != "" {
		body += "\n" + errorStyle.Render(m.status)
	}
	return frameStyle.Width(max(m.width-2, 10)).Render(body)
}

const helpText = `SeeKnob turns a rotary knob and a few buttons into a remote for mpv.

Menu navigation
  Turn the knob (or use the arrow keys) to move through lists.
  Press the select button (or Enter) to open an entry.
  Press the back button (or q / Esc) to leave a page.

While a video is playing
  seek_forward / seek_backward    jump by the current seek step
  increase_seek_step / decrease   change the step by 0.1s (minimum 0.1s)
  toggle_pause                    pause or resume
  set_marker_<key>                remember the current position
  play_marker_<key>               jump back to a remembered position

Markers are kept per file. With marker_persistence enabled they are
written to marker_storage_folder and restored the next time the same
file is opened, even if it was renamed or moved.

Configuration
  Devices and key bindings live in the config file. Each action maps to
  one or more "<device>.<KEY_NAME>" entries, for example
  "knob_device.KEY_VOLUMEUP". Run "seeknob check-config" to validate a
  file without opening any device.

Press q or Esc to return to the menu.`

const aboutText = `SeeKnob

A small terminal front end that hands playback to mpv and lets a USB
rotary encoder with a handful of buttons drive it: scrub through footage,
drop markers and jump between them without touching the keyboard.

Live state is available on the control socket (seeknob-ctl snapshot) and,
when status_listen is set, over a websocket (seeknob-ctl watch).

Press q or Esc to return to the menu.`
