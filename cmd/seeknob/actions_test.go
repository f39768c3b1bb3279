package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name string
		want Action
	}{
		{"seek_forward", SeekForward{}},
		{"seek_backward", SeekBackward{}},
		{"toggle_pause", TogglePause{}},
		{"increase_seek_step", AdjustSeekStep{Delta: 0.1}},
		{"decrease_seek_step", AdjustSeekStep{Delta: -0.1}},
		{"set_marker", SetMarker{Key: "1"}},
		{"play_marker", PlayMarker{Key: "1"}},
		{"set_marker_2", SetMarker{Key: "2"}},
		{"play_marker_intro", PlayMarker{Key: "intro"}},
		{"nav_up", Navigate{Direction: NavUp}},
		{"nav_down", Navigate{Direction: NavDown}},
		{"nav_select", Navigate{Direction: NavSelect}},
		{"nav_quit", Navigate{Direction: NavQuit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_Unknown(t *testing.T) {
	for _, name := range []string{"", "volume_up", "set_marker_", "play_marker_", "SEEK_FORWARD"} {
		_, err := ParseAction(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestAction_StringRoundTrips(t *testing.T) {
	for _, a := range allActions() {
		got, err := ParseAction(a.String())
		require.NoError(t, err, a.String())
		assert.Equal(t, a, got)
	}
}
