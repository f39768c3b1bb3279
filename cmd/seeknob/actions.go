package main

import (
	"fmt"
	"strings"
)

// ============================================================================
// Action Types - Logical actions resolved from hardware keys
// ============================================================================
// Actions are resolved once when the binding table is built. The router
// decides at dispatch time whether an action means playback control or
// menu navigation; the action itself is mode independent.
// ============================================================================

// Action is the closed set of logical actions.
type Action interface {
	actionMarker()
	// String returns the configuration name of the action.
	String() string
}

// SeekForward seeks forward by the current seek step.
type SeekForward struct{}

// SeekBackward seeks backward by the current seek step.
type SeekBackward struct{}

// TogglePause toggles pause/resume.
type TogglePause struct{}

// AdjustSeekStep changes the seek step by Delta seconds.
type AdjustSeekStep struct {
	Delta float64 `json:"delta"`
}

// SetMarker stores the current playback position under Key.
type SetMarker struct {
	Key string `json:"key"`
}

// PlayMarker jumps to the position stored under Key.
type PlayMarker struct {
	Key string `json:"key"`
}

// Navigate forwards a navigation symbol to the terminal UI.
type Navigate struct {
	Direction NavDirection `json:"direction"`
}

func (SeekForward) actionMarker()    {}
func (SeekBackward) actionMarker()   {}
func (TogglePause) actionMarker()    {}
func (AdjustSeekStep) actionMarker() {}
func (SetMarker) actionMarker()      {}
func (PlayMarker) actionMarker()     {}
func (Navigate) actionMarker()       {}

func (SeekForward) String() string  { return "seek_forward" }
func (SeekBackward) String() string { return "seek_backward" }
func (TogglePause) String() string  { return "toggle_pause" }

func (a AdjustSeekStep) String() string {
	if a.Delta < 0 {
		return "decrease_seek_step"
	}
	return "increase_seek_step"
}

func (a SetMarker) String() string  { return "set_marker_" + a.Key }
func (a PlayMarker) String() string { return "play_marker_" + a.Key }

func (a Navigate) String() string {
	switch a.Direction {
	case NavUp:
		return "nav_up"
	case NavDown:
		return "nav_down"
	case NavSelect:
		return "nav_select"
	case NavQuit:
		return "nav_quit"
	default:
		return "nav_" + string(a.Direction)
	}
}

// NavDirection is the logical key symbol handed to the navigation sink.
type NavDirection string

const (
	NavUp     NavDirection = "up"
	NavDown   NavDirection = "down"
	NavSelect NavDirection = "enter"
	NavQuit   NavDirection = "q"
)

// ParseAction resolves a configuration action name into an Action.
//
// Accepted names:
//   - seek_forward, seek_backward, toggle_pause
//   - increase_seek_step, decrease_seek_step
//   - set_marker_<key>, play_marker_<key> (bare set_marker / play_marker use key "1")
//   - nav_up, nav_down, nav_select, nav_quit
func ParseAction(name string) (Action, error) {
	switch name {
	case "seek_forward":
		return SeekForward{}, nil
	case "seek_backward":
		return SeekBackward{}, nil
	case "toggle_pause":
		return TogglePause{}, nil
	case "increase_seek_step":
		return AdjustSeekStep{Delta: seekStepIncrement}, nil
	case "decrease_seek_step":
		return AdjustSeekStep{Delta: -seekStepIncrement}, nil
	case "set_marker":
		return SetMarker{Key: defaultMarkerKey}, nil
	case "play_marker":
		return PlayMarker{Key: defaultMarkerKey}, nil
	case "nav_up":
		return Navigate{Direction: NavUp}, nil
	case "nav_down":
		return Navigate{Direction: NavDown}, nil
	case "nav_select":
		return Navigate{Direction: NavSelect}, nil
	case "nav_quit":
		return Navigate{Direction: NavQuit}, nil
	}

	if key, ok := strings.CutPrefix(name, "set_marker_"); ok && key != "" {
		return SetMarker{Key: key}, nil
	}
	if key, ok := strings.CutPrefix(name, "play_marker_"); ok && key != "" {
		return PlayMarker{Key: key}, nil
	}

	return nil, fmt.Errorf("unknown action %q", name)
}
