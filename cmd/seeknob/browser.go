package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// browserEntry is one row of the file browser. It implements list.DefaultItem.
type browserEntry struct {
	Name  string
	Path  string
	IsDir bool
}

func (e browserEntry) FilterValue() string { return e.Name }

func (e browserEntry) Title() string {
	if e.IsDir {
		return "[DIR] " + e.Name
	}
	return "      " + e.Name
}

func (e browserEntry) Description() string { return "" }

// BrowserOptions controls which entries the file browser lists.
type BrowserOptions struct {
	// ExtFilters are file extensions without the dot, compared case-insensitively.
	// Empty lists every file.
	ExtFilters []string
	ShowHidden bool
}

func (o BrowserOptions) allows(name string) bool {
	if len(o.ExtFilters) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, f := range o.ExtFilters {
		if strings.ToLower(strings.TrimPrefix(f, ".")) == ext {
			return true
		}
	}
	return false
}

// listDirectory returns ".." followed by the directory's entries in name order.
// Directories are always listed; files only when their extension passes the filter.
func listDirectory(dir string, opts BrowserOptions) ([]browserEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entries := []browserEntry{{Name: "..", Path: filepath.Dir(dir), IsDir: true}}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		names = append(names, de.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}

		full := filepath.Join(dir, name)
		// Stat follows symlinks so linked folders open like real ones.
		info, err := os.Stat(full)
		if err != nil {
			continue
		}
		if !info.IsDir() && !opts.allows(name) {
			continue
		}
		entries = append(entries, browserEntry{Name: name, Path: full, IsDir: info.IsDir()})
	}
	return entries, nil
}
