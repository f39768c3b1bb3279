package main

import (
	"math"
	"sort"
)

// RouterState is the router-owned state container.
//
// It is only touched by the router goroutine (single owner): listener loops
// and the control socket hand events over a channel instead of mutating it.
type RouterState struct {
	// SeekStep is the relative seek magnitude in seconds. Never below minSeekStep.
	SeekStep float64

	// Markers belongs to Media. It is replaced when another file starts.
	Markers MarkerSet

	Media MediaState
}

// MediaState identifies the file currently handed to the player.
type MediaState struct {
	Path     string
	FileName string

	// Fingerprint is empty until the content hash has been computed.
	// Markers are only persisted once it is known.
	Fingerprint string
}

// NewRouterState returns the initial state for a session.
func NewRouterState(seekStep float64) *RouterState {
	return &RouterState{
		SeekStep: clampSeekStep(roundSeekStep(seekStep)),
		Markers:  MarkerSet{},
	}
}

// RouterConfig holds the static policy knobs the reducer needs.
type RouterConfig struct {
	MessageDurationMS int
	PersistMarkers    bool
}

// StateSnapshot is a coherent copy of router state for IPC and websocket clients.
type StateSnapshot struct {
	SeekStep       float64   `json:"seek_step"`
	Markers        MarkerSet `json:"markers"`
	MarkerKeys     []string  `json:"marker_keys"`
	MediaPath      string    `json:"media_path,omitempty"`
	MediaFile      string    `json:"media_file,omitempty"`
	Fingerprint    string    `json:"fingerprint,omitempty"`
	PlaybackActive bool      `json:"playback_active"`
}

// Snapshot copies the state. playbackActive is supplied by the caller since
// it is derived from the player, not stored.
func (s *RouterState) Snapshot(playbackActive bool) StateSnapshot {
	keys := make([]string, 0, len(s.Markers))
	for k := range s.Markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return StateSnapshot{
		SeekStep:       s.SeekStep,
		Markers:        s.Markers.Clone(),
		MarkerKeys:     keys,
		MediaPath:      s.Media.Path,
		MediaFile:      s.Media.FileName,
		Fingerprint:    s.Media.Fingerprint,
		PlaybackActive: playbackActive,
	}
}

// roundSeekStep rounds to 2 decimal places to keep repeated 0.1 steps from drifting.
func roundSeekStep(v float64) float64 {
	return math.Round(v*100) / 100
}

func clampSeekStep(v float64) float64 {
	if v < minSeekStep {
		return minSeekStep
	}
	return v
}
