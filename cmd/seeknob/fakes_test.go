package main

import (
	"fmt"
	"sync"
)

// fakePlayer is a test double for PlayerClient. It records calls as strings.
type fakePlayer struct {
	mu       sync.Mutex
	active   bool
	position float64
	posErr   error
	cmdErr   error
	calls    []string
}

func (p *fakePlayer) record(format string, args ...any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
	return p.cmdErr
}

func (p *fakePlayer) setActive(v bool) {
	p.mu.Lock()
	p.active = v
	p.mu.Unlock()
}

func (p *fakePlayer) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *fakePlayer) SeekRelative(seconds float64) error {
	return p.record("seek %.2f relative", seconds)
}

func (p *fakePlayer) SeekAbsolute(seconds float64) error {
	return p.record("seek %.2f absolute", seconds)
}

func (p *fakePlayer) TogglePause() error {
	return p.record("cycle pause")
}

func (p *fakePlayer) ShowMessage(text string, durationMS int) error {
	return p.record("show_text %s %d", text, durationMS)
}

func (p *fakePlayer) CurrentPosition() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, "get_property time-pos")
	return p.position, p.posErr
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// fakeNavigator records forwarded navigation symbols.
type fakeNavigator struct {
	mu      sync.Mutex
	keys    []NavDirection
	redraws int
}

func (n *fakeNavigator) ForwardKey(symbol NavDirection) {
	n.mu.Lock()
	n.keys = append(n.keys, symbol)
	n.mu.Unlock()
}

func (n *fakeNavigator) ForceRedraw() {
	n.mu.Lock()
	n.redraws++
	n.mu.Unlock()
}

func (n *fakeNavigator) Keys() []NavDirection {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]NavDirection(nil), n.keys...)
}

// fakeMarkerStorage keeps marker files in memory, keyed by fingerprint.
type fakeMarkerStorage struct {
	mu      sync.Mutex
	fps     map[string]string // media path -> fingerprint
	files   map[string]MarkerSet
	names   map[string]string
	loadErr error
	saveErr error
	saves   int

	// loadGate, when set, holds LoadFor until it is closed.
	loadGate chan struct{}
}

func newFakeMarkerStorage() *fakeMarkerStorage {
	return &fakeMarkerStorage{
		fps:   map[string]string{},
		files: map[string]MarkerSet{},
		names: map[string]string{},
	}
}

func (s *fakeMarkerStorage) LoadFor(mediaPath string) (string, MarkerSet, error) {
	s.mu.Lock()
	gate := s.loadGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.fps[mediaPath]
	if !ok {
		return "", nil, fmt.Errorf("fingerprint %s: no such file", mediaPath)
	}
	if s.loadErr != nil {
		return fp, nil, s.loadErr
	}
	return fp, s.files[fp].Clone(), nil
}

func (s *fakeMarkerStorage) Save(fingerprint, fileName string, markers MarkerSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.files[fingerprint] = markers.Clone()
	s.names[fingerprint] = fileName
	return nil
}

func (s *fakeMarkerStorage) Stored(fingerprint string) MarkerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[fingerprint].Clone()
}
