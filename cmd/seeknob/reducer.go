package main

import (
	"fmt"
	"path/filepath"
	"time"
)

// This file implements the reducer-style router:
//
//   - Events: inputs to the reducer (resolved key actions, media changes, player observations)
//   - Commands: side effects requested by the reducer (player, navigation, marker storage)
//   - Broadcasts: state changes published to websocket clients
//   - Reduce(): computes next state + commands, without performing I/O
//
// The router loop executes Commands and feeds observations back as Events.

// ==============================
// Events
// ==============================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// ActionEvent is a resolved logical action.
//
// PlaybackActive is stamped by the router loop right before reduction, from a
// live query of the player. Producers leave it unset.
type ActionEvent struct {
	Device         string
	Action         Action
	PlaybackActive bool
	At             time.Time
}

func (ActionEvent) eventMarker() {}

// MediaStarted is emitted by the UI after the player has been launched with Path.
type MediaStarted struct {
	Path string
	At   time.Time
}

func (MediaStarted) eventMarker() {}

// MarkersLoaded is emitted after a successful fingerprint + marker file read.
type MarkersLoaded struct {
	Path        string
	Fingerprint string
	Markers     MarkerSet
	At          time.Time
}

func (MarkersLoaded) eventMarker() {}

// MarkersLoadFailed is emitted when fingerprinting or reading the marker file fails.
// Fingerprint is set when only the read failed.
type MarkersLoadFailed struct {
	Path        string
	Fingerprint string
	Err         error
	At          time.Time
}

func (MarkersLoadFailed) eventMarker() {}

// PositionObserved carries the playback position read for a pending SetMarker.
type PositionObserved struct {
	MarkerKey string
	Seconds   float64
	At        time.Time
}

func (PositionObserved) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// RequestStateSnapshot asks the router to publish a StateSnapshot on Reply.
type RequestStateSnapshot struct {
	Reply          chan StateSnapshot
	PlaybackActive bool
}

func (RequestStateSnapshot) eventMarker() {}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a state change pushed to websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastSeekStepChanged is emitted after every seek step adjustment.
type BroadcastSeekStepChanged struct {
	SeekStep float64
}

// BroadcastMarkerSet is emitted when a marker is stored.
type BroadcastMarkerSet struct {
	Key     string
	Seconds float64
}

// BroadcastMarkerPlayed is emitted when playback jumps to a marker.
type BroadcastMarkerPlayed struct {
	Key     string
	Seconds float64
}

// BroadcastMediaChanged is emitted when a new file starts.
type BroadcastMediaChanged struct {
	Path     string
	FileName string
}

// BroadcastMarkersLoaded is emitted when stored markers for the current file were loaded.
type BroadcastMarkersLoaded struct {
	Markers MarkerSet
}

func (BroadcastSeekStepChanged) broadcastMarker() {}
func (BroadcastMarkerSet) broadcastMarker()       {}
func (BroadcastMarkerPlayed) broadcastMarker()    {}
func (BroadcastMediaChanged) broadcastMarker()    {}
func (BroadcastMarkersLoaded) broadcastMarker()   {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state, Commands to execute and
// Broadcasts to publish.
type ReduceResult struct {
	State      *RouterState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Playback-control commands are only emitted when the event says playback is active,
//   navigation commands only when it is not
func Reduce(s *RouterState, e Event, cfg RouterConfig) ReduceResult {
	if s == nil {
		s = NewRouterState(defaultSeekStep)
	}
	if s.Markers == nil {
		s.Markers = MarkerSet{}
	}

	var (
		cmds []Command
		bcs  []StateBroadcast
	)

	switch ev := e.(type) {
	case ActionEvent:
		if ev.PlaybackActive {
			cmds, bcs = reducePlaybackAction(s, ev.Action, cfg)
		} else {
			cmds = reduceNavigationAction(ev.Action)
		}

	case PositionObserved:
		pos := ev.Seconds
		if pos < 0 {
			pos = 0
		}
		s.Markers[ev.MarkerKey] = pos
		cmds = append(cmds, CmdShowMessage{
			Text:       fmt.Sprintf("Marker %s Set: %.2fs", ev.MarkerKey, pos),
			DurationMS: cfg.MessageDurationMS,
		})
		if cmd, ok := saveMarkersCommand(s, cfg); ok {
			cmds = append(cmds, cmd)
		}
		bcs = append(bcs, BroadcastMarkerSet{Key: ev.MarkerKey, Seconds: pos})

	case MediaStarted:
		if ev.Path == s.Media.Path && ev.Path != "" {
			// Reopening the current file keeps its markers. A hash that never
			// arrived is requested again; loaded markers merge under the kept ones.
			if cfg.PersistMarkers && s.Media.Fingerprint == "" {
				cmds = append(cmds, CmdLoadMarkers{Path: ev.Path})
			}
		} else {
			s.Media = MediaState{Path: ev.Path, FileName: filepath.Base(ev.Path)}
			s.Markers = MarkerSet{}
			if cfg.PersistMarkers {
				cmds = append(cmds, CmdLoadMarkers{Path: ev.Path})
			}
		}
		bcs = append(bcs, BroadcastMediaChanged{Path: s.Media.Path, FileName: s.Media.FileName})

	case MarkersLoaded:
		if ev.Path != s.Media.Path {
			// Stale result for a file that is no longer current.
			break
		}
		s.Media.Fingerprint = ev.Fingerprint

		// Markers set while loading win over the stored ones.
		setMeanwhile := len(s.Markers) > 0
		merged := ev.Markers.Clone()
		for k, v := range s.Markers {
			merged[k] = v
		}
		s.Markers = merged

		if setMeanwhile {
			if cmd, ok := saveMarkersCommand(s, cfg); ok {
				cmds = append(cmds, cmd)
			}
		}
		bcs = append(bcs, BroadcastMarkersLoaded{Markers: s.Markers.Clone()})

	case MarkersLoadFailed:
		if ev.Path != s.Media.Path {
			break
		}
		// In-memory markers stay authoritative; later sets still persist if the hash is known.
		s.Media.Fingerprint = ev.Fingerprint

	case CommandFailed:
		// Failures are logged by the effects layer. State stays as it was before the command.

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{
			Reply:    ev.Reply,
			Snapshot: s.Snapshot(ev.PlaybackActive),
		})
	}

	return ReduceResult{State: s, Commands: cmds, Broadcasts: bcs}
}

// reducePlaybackAction maps an action to player commands. Navigation actions
// have no playback meaning and are dropped.
func reducePlaybackAction(s *RouterState, a Action, cfg RouterConfig) ([]Command, []StateBroadcast) {
	switch a := a.(type) {
	case SeekForward:
		return []Command{CmdSeekRelative{Seconds: s.SeekStep}}, nil

	case SeekBackward:
		return []Command{CmdSeekRelative{Seconds: -s.SeekStep}}, nil

	case TogglePause:
		return []Command{CmdTogglePause{}}, nil

	case AdjustSeekStep:
		s.SeekStep = clampSeekStep(roundSeekStep(s.SeekStep + a.Delta))
		msg := CmdShowMessage{
			Text:       fmt.Sprintf("Seek Step: %.2fs", s.SeekStep),
			DurationMS: cfg.MessageDurationMS,
		}
		return []Command{msg}, []StateBroadcast{BroadcastSeekStepChanged{SeekStep: s.SeekStep}}

	case SetMarker:
		// The marker is stored when the position comes back as PositionObserved.
		return []Command{CmdQueryPosition{MarkerKey: a.Key}}, nil

	case PlayMarker:
		pos, ok := s.Markers[a.Key]
		if !ok {
			return nil, nil
		}
		cmds := []Command{
			CmdSeekAbsolute{Seconds: pos},
			CmdShowMessage{
				Text:       fmt.Sprintf("Marker %s: %.2fs", a.Key, pos),
				DurationMS: cfg.MessageDurationMS,
			},
		}
		return cmds, []StateBroadcast{BroadcastMarkerPlayed{Key: a.Key, Seconds: pos}}
	}
	return nil, nil
}

// reduceNavigationAction maps navigation actions to a forwarded key plus a
// redraw. Every other action is dropped while nothing is playing.
func reduceNavigationAction(a Action) []Command {
	nav, ok := a.(Navigate)
	if !ok {
		return nil
	}
	return []Command{CmdNavigate{Symbol: nav.Direction}, CmdRedraw{}}
}

func saveMarkersCommand(s *RouterState, cfg RouterConfig) (Command, bool) {
	if !cfg.PersistMarkers || s.Media.Fingerprint == "" {
		return nil, false
	}
	return CmdSaveMarkers{
		Fingerprint: s.Media.Fingerprint,
		FileName:    s.Media.FileName,
		Markers:     s.Markers.Clone(),
	}, true
}
