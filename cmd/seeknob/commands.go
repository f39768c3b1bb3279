package main

import "fmt"

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the router loop.
type Command interface {
	commandMarker()
	String() string
}

// CmdSeekRelative seeks by Seconds (negative = backward).
type CmdSeekRelative struct {
	Seconds float64
}

func (CmdSeekRelative) commandMarker() {}
func (c CmdSeekRelative) String() string {
	return fmt.Sprintf("CmdSeekRelative(seconds=%.2f)", c.Seconds)
}

// CmdSeekAbsolute jumps to Seconds.
type CmdSeekAbsolute struct {
	Seconds float64
}

func (CmdSeekAbsolute) commandMarker() {}
func (c CmdSeekAbsolute) String() string {
	return fmt.Sprintf("CmdSeekAbsolute(seconds=%.2f)", c.Seconds)
}

// CmdTogglePause toggles pause/resume.
type CmdTogglePause struct{}

func (CmdTogglePause) commandMarker() {}
func (CmdTogglePause) String() string { return "CmdTogglePause()" }

// CmdShowMessage displays a transient on-screen message.
type CmdShowMessage struct {
	Text       string
	DurationMS int
}

func (CmdShowMessage) commandMarker() {}
func (c CmdShowMessage) String() string {
	return fmt.Sprintf("CmdShowMessage(text=%q, duration_ms=%d)", c.Text, c.DurationMS)
}

// CmdQueryPosition reads the playback position for a pending marker.
type CmdQueryPosition struct {
	MarkerKey string
}

func (CmdQueryPosition) commandMarker() {}
func (c CmdQueryPosition) String() string {
	return fmt.Sprintf("CmdQueryPosition(marker=%s)", c.MarkerKey)
}

// CmdNavigate forwards a key symbol to the terminal UI.
type CmdNavigate struct {
	Symbol NavDirection
}

func (CmdNavigate) commandMarker() {}
func (c CmdNavigate) String() string { return fmt.Sprintf("CmdNavigate(symbol=%s)", c.Symbol) }

// CmdRedraw asks the terminal UI to redraw.
type CmdRedraw struct{}

func (CmdRedraw) commandMarker() {}
func (CmdRedraw) String() string { return "CmdRedraw()" }

// CmdLoadMarkers fingerprints the file at Path and loads its stored markers.
type CmdLoadMarkers struct {
	Path string
}

func (CmdLoadMarkers) commandMarker() {}
func (c CmdLoadMarkers) String() string { return fmt.Sprintf("CmdLoadMarkers(path=%s)", c.Path) }

// CmdSaveMarkers writes the marker file for Fingerprint.
type CmdSaveMarkers struct {
	Fingerprint string
	FileName    string
	Markers     MarkerSet
}

func (CmdSaveMarkers) commandMarker() {}
func (c CmdSaveMarkers) String() string {
	return fmt.Sprintf("CmdSaveMarkers(fingerprint=%s, markers=%d)", c.Fingerprint, len(c.Markers))
}

// CmdPublishStateSnapshot delivers a snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
