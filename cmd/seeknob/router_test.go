package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routerHarness struct {
	t          *testing.T
	events     chan Event
	broadcasts chan StateBroadcast
	player     *fakePlayer
	nav        *fakeNavigator
	store      *fakeMarkerStorage
	cancel     context.CancelFunc
	done       chan struct{}
}

func startRouter(t *testing.T, seekStep float64, cfg RouterConfig) *routerHarness {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	h := &routerHarness{
		t:          t,
		events:     make(chan Event, 16),
		broadcasts: make(chan StateBroadcast, 64),
		player:     &fakePlayer{},
		nav:        &fakeNavigator{},
		store:      newFakeMarkerStorage(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	deps := effectDeps{player: h.player, nav: h.nav, markers: h.store}
	go func() {
		defer close(h.done)
		runRouter(ctx, h.events, deps, cfg, NewRouterState(seekStep), h.broadcasts, discardLogger())
	}()

	t.Cleanup(h.stop)
	return h
}

func (h *routerHarness) stop() {
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		h.t.Fatal("router did not stop")
	}
}

func (h *routerHarness) send(ev Event) {
	h.t.Helper()
	select {
	case h.events <- ev:
	case <-time.After(time.Second):
		h.t.Fatal("router event queue blocked")
	}
}

// snapshot also acts as a barrier: every event sent before it has been handled.
func (h *routerHarness) snapshot() StateSnapshot {
	h.t.Helper()
	reply := make(chan StateSnapshot, 1)
	h.send(RequestStateSnapshot{Reply: reply})
	select {
	case snap := <-reply:
		return snap
	case <-time.After(time.Second):
		h.t.Fatal("timeout waiting for snapshot")
		return StateSnapshot{}
	}
}

// waitForFingerprint polls snapshots until the background marker load for
// the current file has been reduced.
func (h *routerHarness) waitForFingerprint(fp string) StateSnapshot {
	h.t.Helper()
	var snap StateSnapshot
	waitUntil(h.t, time.Second, func() bool {
		snap = h.snapshot()
		return snap.Fingerprint == fp
	}, "markers not loaded for "+fp)
	return snap
}

func (h *routerHarness) press(a Action) {
	h.send(ActionEvent{Device: "knob_device", Action: a, At: time.Now()})
}

func TestRouter_SeekForwardUsesLivePlaybackFlag(t *testing.T) {
	h := startRouter(t, 0.5, testRouterConfig)

	// Idle: seek has no navigation meaning.
	h.press(SeekForward{})
	h.snapshot()
	assert.Empty(t, h.player.Calls())
	assert.Empty(t, h.nav.Keys())

	h.player.setActive(true)
	h.press(SeekForward{})
	snap := h.snapshot()
	assert.True(t, snap.PlaybackActive)
	assert.Equal(t, []string{"seek 0.50 relative"}, h.player.Calls())
}

func TestRouter_NavigationWhileIdle(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)

	h.press(Navigate{Direction: NavDown})
	h.press(Navigate{Direction: NavSelect})
	h.snapshot()

	assert.Equal(t, []NavDirection{NavDown, NavSelect}, h.nav.Keys())
	h.nav.mu.Lock()
	assert.Equal(t, 2, h.nav.redraws)
	h.nav.mu.Unlock()
	assert.Empty(t, h.player.Calls())
}

func TestRouter_SetMarkerPersistsAndPlays(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)
	h.store.fps["/videos/clip.mp4"] = "d41d8cd98f00b204e9800998ecf8427e"
	h.player.setActive(true)
	h.player.position = 42.37

	h.send(MediaStarted{Path: "/videos/clip.mp4"})
	h.waitForFingerprint("d41d8cd98f00b204e9800998ecf8427e")
	h.press(SetMarker{Key: "1"})
	snap := h.snapshot()

	assert.Equal(t, MarkerSet{"1": 42.37}, snap.Markers)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", snap.Fingerprint)
	assert.Equal(t, MarkerSet{"1": 42.37}, h.store.Stored("d41d8cd98f00b204e9800998ecf8427e"))
	assert.Equal(t, "clip.mp4", h.store.names["d41d8cd98f00b204e9800998ecf8427e"])

	h.press(PlayMarker{Key: "1"})
	h.snapshot()
	calls := h.player.Calls()
	require.NotEmpty(t, calls)
	assert.Contains(t, calls, "seek 42.37 absolute")
	assert.Equal(t, "show_text Marker 1: 42.37s 3000", calls[len(calls)-1])
}

func TestRouter_MarkersRestoredForSameContent(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)
	h.store.fps["/a/clip.mp4"] = "fp1"
	h.store.fps["/b/renamed.mp4"] = "fp1"
	h.player.setActive(true)
	h.player.position = 12.5

	h.send(MediaStarted{Path: "/a/clip.mp4"})
	h.waitForFingerprint("fp1")
	h.press(SetMarker{Key: "3"})
	h.snapshot()

	h.send(MediaStarted{Path: "/b/renamed.mp4"})
	snap := h.waitForFingerprint("fp1")
	assert.Equal(t, MarkerSet{"3": 12.5}, snap.Markers)
	assert.Equal(t, "renamed.mp4", snap.MediaFile)
}

func TestRouter_ActionsFlowWhileMarkersLoad(t *testing.T) {
	h := startRouter(t, 0.5, testRouterConfig)
	gate := make(chan struct{})
	h.store.loadGate = gate
	h.store.fps["/v.mp4"] = "fp"
	h.store.files["fp"] = MarkerSet{"1": 1, "2": 2}
	h.player.setActive(true)
	h.player.position = 5

	h.send(MediaStarted{Path: "/v.mp4"})
	h.press(SeekForward{})
	h.press(SetMarker{Key: "1"})
	snap := h.snapshot()

	// The hash is still running: seek went out and the marker lives in memory.
	assert.Empty(t, snap.Fingerprint)
	assert.Equal(t, MarkerSet{"1": 5}, snap.Markers)
	assert.Contains(t, h.player.Calls(), "seek 0.50 relative")
	h.store.mu.Lock()
	assert.Equal(t, 0, h.store.saves)
	h.store.mu.Unlock()

	close(gate)
	snap = h.waitForFingerprint("fp")
	assert.Equal(t, MarkerSet{"1": 5, "2": 2}, snap.Markers, "the marker set while loading wins")
	waitUntil(t, time.Second, func() bool {
		return h.store.Stored("fp")["1"] == 5
	}, "merged markers not saved")
	assert.Equal(t, MarkerSet{"1": 5, "2": 2}, h.store.Stored("fp"))
}

func TestRouter_StaleLoadResultIgnored(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)
	gate := make(chan struct{})
	h.store.loadGate = gate
	h.store.fps["/first.mp4"] = "fp-first"
	h.store.fps["/second.mp4"] = "fp-second"
	h.store.files["fp-first"] = MarkerSet{"1": 9}

	h.send(MediaStarted{Path: "/first.mp4"})
	h.send(MediaStarted{Path: "/second.mp4"})
	h.snapshot()
	close(gate)

	snap := h.waitForFingerprint("fp-second")
	assert.Equal(t, "second.mp4", snap.MediaFile)
	assert.Empty(t, snap.Markers)
}

func TestRouter_ReopeningSameFileKeepsMarkers(t *testing.T) {
	h := startRouter(t, 1, RouterConfig{MessageDurationMS: 3000})
	h.player.setActive(true)
	h.player.position = 42.37

	h.send(MediaStarted{Path: "/v.mp4"})
	h.press(SetMarker{Key: "1"})
	h.send(MediaStarted{Path: "/v.mp4"})
	h.press(PlayMarker{Key: "1"})
	h.snapshot()

	assert.Contains(t, h.player.Calls(), "seek 42.37 absolute")
}

func TestRouter_PositionQueryFailureLeavesMarkersUnchanged(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)
	h.player.setActive(true)
	h.player.posErr = ErrNoPosition

	h.press(SetMarker{Key: "1"})
	snap := h.snapshot()
	assert.Empty(t, snap.Markers)
	assert.Equal(t, []string{"get_property time-pos"}, h.player.Calls())
}

func TestRouter_SeekStepKeptWhenMessageFails(t *testing.T) {
	h := startRouter(t, 1, testRouterConfig)
	h.player.setActive(true)
	h.player.cmdErr = errors.New("socket gone")

	h.press(AdjustSeekStep{Delta: seekStepIncrement})
	snap := h.snapshot()
	assert.Equal(t, 1.1, snap.SeekStep)
}

func TestRouter_PublishesBroadcasts(t *testing.T) {
	h := startRouter(t, 0.5, testRouterConfig)
	h.player.setActive(true)

	h.press(AdjustSeekStep{Delta: seekStepIncrement})
	h.snapshot()

	select {
	case b := <-h.broadcasts:
		assert.Equal(t, BroadcastSeekStepChanged{SeekStep: 0.6}, b)
	default:
		t.Fatal("expected a seek step broadcast")
	}
}

func TestRouter_StopsWhenEventsClosed(t *testing.T) {
	events := make(chan Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runRouter(context.Background(), events, effectDeps{}, testRouterConfig, nil, nil, discardLogger())
	}()

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("router did not stop after events closed")
	}
}

func TestStampPlayback(t *testing.T) {
	p := &fakePlayer{active: true}

	ev := stampPlayback(ActionEvent{Action: SeekForward{}}, p)
	assert.True(t, ev.(ActionEvent).PlaybackActive)

	ev = stampPlayback(RequestStateSnapshot{}, p)
	assert.True(t, ev.(RequestStateSnapshot).PlaybackActive)

	ev = stampPlayback(ActionEvent{Action: SeekForward{}, PlaybackActive: true}, nil)
	assert.False(t, ev.(ActionEvent).PlaybackActive)
}
