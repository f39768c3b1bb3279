package main

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// MarkerSet maps a marker key ("1", "2", ...) to a position in seconds.
type MarkerSet map[string]float64

// Clone returns an independent copy. A nil set clones to an empty one.
func (m MarkerSet) Clone() MarkerSet {
	out := make(MarkerSet, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// markerFile is the on-disk format of <fingerprint>.marker.
type markerFile struct {
	FileName string    `json:"file_name"`
	Markers  MarkerSet `json:"markers"`
}

// MarkerStore reads and writes marker files in one directory.
type MarkerStore struct {
	dir    string
	logger *slog.Logger
}

// NewMarkerStore returns a store rooted at dir. The directory is created on first save.
func NewMarkerStore(dir string, logger *slog.Logger) *MarkerStore {
	return &MarkerStore{dir: dir, logger: logger}
}

func (s *MarkerStore) path(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+markerFileExtension)
}

// Fingerprint returns the hex MD5 of the file's contents, read in fixed-size chunks.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, markerHashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load returns the markers stored for fingerprint. A missing file is an empty set.
func (s *MarkerStore) Load(fingerprint string) (MarkerSet, error) {
	data, err := os.ReadFile(s.path(fingerprint))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MarkerSet{}, nil
		}
		return nil, fmt.Errorf("read markers: %w", err)
	}

	var mf markerFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path(fingerprint), err)
	}
	if mf.Markers == nil {
		mf.Markers = MarkerSet{}
	}
	return mf.Markers, nil
}

// Save writes the whole marker set for fingerprint, replacing any previous file.
func (s *MarkerStore) Save(fingerprint, fileName string, markers MarkerSet) error {
	if fingerprint == "" {
		return errors.New("save markers: empty fingerprint")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create marker folder: %w", err)
	}

	data, err := json.MarshalIndent(markerFile{FileName: fileName, Markers: markers.Clone()}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal markers: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a truncated marker file.
	tmp, err := os.CreateTemp(s.dir, fingerprint+".*.tmp")
	if err != nil {
		return fmt.Errorf("write markers: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write markers: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write markers: %w", err)
	}
	if err := os.Rename(tmpName, s.path(fingerprint)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write markers: %w", err)
	}

	s.logger.Debug("markers saved", "fingerprint", fingerprint, "file_name", fileName, "count", len(markers))
	return nil
}

// LoadFor fingerprints the media file and loads its markers. The fingerprint is
// returned even when only the read failed.
func (s *MarkerStore) LoadFor(mediaPath string) (string, MarkerSet, error) {
	fp, err := Fingerprint(mediaPath)
	if err != nil {
		return "", nil, err
	}
	markers, err := s.Load(fp)
	if err != nil {
		return fp, nil, err
	}
	return fp, markers, nil
}
