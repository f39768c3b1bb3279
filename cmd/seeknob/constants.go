package main

import "time"

// Linux input event type for keys (from <linux/input.h>)
const EV_KEY = 0x01

// Key events carry 0 (release), 1 (press) or 2 (autorepeat). Only presses count.
const evValuePress = 1

// Device listener configuration
const (
	devicePollTimeoutMS = 100 // Poll timeout; bounds how long a cancel takes to be observed (ms)
	deviceReadBatch     = 64  // Raw events read per syscall while draining
	actionQueueSize     = 64  // Buffered resolved actions between listeners and the router
)

// Mode router configuration
const (
	defaultSeekStep          = 1.0  // Initial seek step (seconds)
	minSeekStep              = 0.1  // Seek step floor (seconds)
	seekStepIncrement        = 0.1  // Seek step adjustment per press (seconds)
	defaultMessageDurationMS = 3000 // On-screen confirmation duration (ms)
	defaultMarkerKey         = "1"  // Marker key used by bare set_marker / play_marker
)

// Playback controller configuration
const (
	defaultMPVBinary      = "mpv"
	defaultMPVSocket      = "/tmp/mpvsocket"
	mpvDialTimeout        = 500 * time.Millisecond
	mpvReadTimeout        = 1 * time.Second
	mpvQuitGrace          = 2 * time.Second // Wait for mpv to exit after "quit" before killing it
	markerHashChunkSize   = 4096            // Chunk size used when fingerprinting media files (bytes)
	markerFileExtension   = ".marker"
	defaultMarkerFolder   = "markers"
	defaultIPCQueueWait   = 1 * time.Second // Snapshot request timeout on the control socket
	defaultStatusShutdown = 3 * time.Second
)
