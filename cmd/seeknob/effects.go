package main

import (
	"errors"
	"log/slog"
	"time"
)

// Navigator is the UI navigation sink.
type Navigator interface {
	ForwardKey(symbol NavDirection)
	ForceRedraw()
}

// MarkerStorage is the durable marker store.
type MarkerStorage interface {
	LoadFor(mediaPath string) (fingerprint string, markers MarkerSet, err error)
	Save(fingerprint, fileName string, markers MarkerSet) error
}

// effectDeps are the external systems commands are executed against.
// Any of them may be nil; commands for a missing dependency fail.
type effectDeps struct {
	player  PlayerClient
	nav     Navigator
	markers MarkerStorage
}

var (
	errNoPlayer    = errors.New("no player")
	errNoNavigator = errors.New("no navigation sink")
	errNoStore     = errors.New("no marker store")
)

// runEffect executes a single reducer-emitted Command and emits observation
// Events via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the router loop.
// - Failures are logged here and reported as CommandFailed; nothing is retried.
func runEffect(deps effectDeps, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	if onEvent == nil {
		onEvent = func(Event) {}
	}

	now := time.Now()
	fail := func(msg string, err error, args ...any) {
		logger.Error(msg, append([]any{"error", err, "command", cmd.String()}, args...)...)
		onEvent(CommandFailed{Command: cmd, Err: err, At: now})
	}

	switch c := cmd.(type) {
	case CmdSeekRelative:
		if deps.player == nil {
			fail("seek failed", errNoPlayer)
			return
		}
		if err := deps.player.SeekRelative(c.Seconds); err != nil {
			fail("mpv relative seek failed", err, "seconds", c.Seconds)
		}

	case CmdSeekAbsolute:
		if deps.player == nil {
			fail("seek failed", errNoPlayer)
			return
		}
		if err := deps.player.SeekAbsolute(c.Seconds); err != nil {
			fail("mpv absolute seek failed", err, "seconds", c.Seconds)
		}

	case CmdTogglePause:
		if deps.player == nil {
			fail("toggle pause failed", errNoPlayer)
			return
		}
		if err := deps.player.TogglePause(); err != nil {
			fail("mpv toggle pause failed", err)
		}

	case CmdShowMessage:
		if deps.player == nil {
			fail("show message failed", errNoPlayer)
			return
		}
		if err := deps.player.ShowMessage(c.Text, c.DurationMS); err != nil {
			fail("mpv show_text failed", err, "text", c.Text)
		}

	case CmdQueryPosition:
		if deps.player == nil {
			fail("position query failed", errNoPlayer)
			return
		}
		pos, err := deps.player.CurrentPosition()
		if err != nil {
			fail("mpv position query failed; marker not set", err, "marker", c.MarkerKey)
			return
		}
		onEvent(PositionObserved{MarkerKey: c.MarkerKey, Seconds: pos, At: now})

	case CmdNavigate:
		if deps.nav == nil {
			fail("navigation failed", errNoNavigator)
			return
		}
		deps.nav.ForwardKey(c.Symbol)

	case CmdRedraw:
		if deps.nav == nil {
			fail("redraw failed", errNoNavigator)
			return
		}
		deps.nav.ForceRedraw()

	case CmdLoadMarkers:
		if deps.markers == nil {
			fail("marker load failed", errNoStore)
			return
		}
		fp, markers, err := deps.markers.LoadFor(c.Path)
		if err != nil {
			logger.Warn("failed to load markers", "error", err, "path", c.Path, "fingerprint", fp)
			onEvent(MarkersLoadFailed{Path: c.Path, Fingerprint: fp, Err: err, At: now})
			return
		}
		logger.Info("markers loaded", "path", c.Path, "fingerprint", fp, "count", len(markers))
		onEvent(MarkersLoaded{Path: c.Path, Fingerprint: fp, Markers: markers, At: now})

	case CmdSaveMarkers:
		if deps.markers == nil {
			fail("marker save failed", errNoStore)
			return
		}
		if err := deps.markers.Save(c.Fingerprint, c.FileName, c.Markers); err != nil {
			fail("failed to save markers", err, "fingerprint", c.Fingerprint)
		}

	case CmdPublishStateSnapshot:
		// Deliver reducer-produced snapshot to the requester.
		// This keeps the reducer pure by moving the channel send into the effects layer.
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}

		// Never block the router loop.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
