package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConvertBroadcast(t *testing.T) {
	tests := []struct {
		name     string
		in       StateBroadcast
		wantType string
		wantData any
	}{
		{"seek step", BroadcastSeekStepChanged{SeekStep: 0.5}, "seek_step_changed", wsSeekStepData{SeekStep: 0.5}},
		{"marker set", BroadcastMarkerSet{Key: "2", Seconds: 4.25}, "marker_set", wsMarkerData{Key: "2", Seconds: 4.25}},
		{"marker played", BroadcastMarkerPlayed{Key: "1", Seconds: 9}, "marker_played", wsMarkerData{Key: "1", Seconds: 9}},
		{"media", BroadcastMediaChanged{Path: "/v/a.mp4", FileName: "a.mp4"}, "media_changed", wsMediaData{Path: "/v/a.mp4", FileName: "a.mp4"}},
		{"markers loaded", BroadcastMarkersLoaded{Markers: MarkerSet{"1": 3}}, "markers_loaded", wsMarkersData{Markers: MarkerSet{"1": 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := convertBroadcast(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.wantType, ev.Type)
			assert.Equal(t, tt.wantData, ev.Data)
		})
	}
}

func TestRunBroadcaster_WrapsEnvelope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(discardLogger(), HubConfig{BroadcastBuf: 4})
	src := make(chan StateBroadcast, 1)

	go RunBroadcaster(ctx, hub, src, discardLogger())
	src <- BroadcastMarkerSet{Key: "1", Seconds: 12.5}

	var msg []byte
	select {
	case msg = <-hub.broadcast:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for broadcast frame")
	}

	var env struct {
		Type string       `json:"type"`
		Ts   *time.Time   `json:"ts"`
		Data wsMarkerData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &env))
	assert.Equal(t, "marker_set", env.Type)
	assert.NotNil(t, env.Ts)
	assert.Equal(t, wsMarkerData{Key: "1", Seconds: 12.5}, env.Data)
}

func TestStateWS_SendsStateInitThenBroadcasts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan Event, 4)
	ws := NewServer(discardLogger(), events, HubConfig{})
	go ws.Hub().Run(ctx)

	// Stand-in for the router: answer snapshot requests.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				if req, ok := ev.(RequestStateSnapshot); ok {
					req.Reply <- StateSnapshot{SeekStep: 1.5, Markers: MarkerSet{"1": 2}, MarkerKeys: []string{"1"}}
				}
			}
		}
	}()

	srv := httptest.NewServer(newStatusMux(ws))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var initMsg struct {
		Type string        `json:"type"`
		Data StateSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg, &initMsg))
	assert.Equal(t, "state_init", initMsg.Type)
	assert.Equal(t, 1.5, initMsg.Data.SeekStep)
	assert.Equal(t, MarkerSet{"1": 2}, initMsg.Data.Markers)

	waitUntil(t, time.Second, func() bool { return ws.Hub().ClientCount() == 1 }, "client not registered")

	frame, err := marshalEnvelope("seek_step_changed", wsSeekStepData{SeekStep: 1.6})
	require.NoError(t, err)
	ws.Hub().BroadcastBytes(frame)

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"seek_step_changed"`)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok clients=1\n", string(body))
}
