// Package report persists scrape outcomes as JSON files in the user's data
// directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"socialscraper/pkg/logger"
	"socialscraper/pkg/models"
)

const fileSuffix = ".report.json"

// Manager writes and reads outcome reports in one directory
type Manager struct {
	dir    string
	logger logger.Logger
}

// NewManager creates a manager rooted at dir, or at the default data
// directory when dir is empty
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if dir == "" {
		dataDir, err := getDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to get data directory: %w", err)
		}
		dir = filepath.Join(dataDir, "reports")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	return &Manager{dir: dir, logger: log}, nil
}

// Dir returns the directory reports are written to
func (m *Manager) Dir() string {
	return m.dir
}

// FileName returns the report file name for an outcome. Names sort by
// start time.
func FileName(out *models.ScrapeOutcome) string {
	id := out.InvocationID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s-%s-%s%s",
		out.StartedAt.UTC().Format("20060102T150405Z"),
		sanitize(out.Target),
		id,
		fileSuffix,
	)
}

// Write saves the outcome atomically and returns its path
func (m *Manager) Write(out *models.ScrapeOutcome) (string, error) {
	path := filepath.Join(m.dir, FileName(out))

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary report file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to sync report file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close report file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to replace report file: %w", err)
	}

	m.logger.DebugWithFields("Report saved", map[string]interface{}{
		"invocation_id": out.InvocationID,
		"path":          path,
	})
	return path, nil
}

// Load reads one report
func (m *Manager) Load(path string) (*models.ScrapeOutcome, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.dir, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer file.Close()

	var out models.ScrapeOutcome
	if err := json.NewDecoder(file).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", filepath.Base(path), err)
	}
	return &out, nil
}

// List returns report file names, oldest first
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Latest loads the newest report, or returns nil when there is none
func (m *Manager) Latest() (*models.ScrapeOutcome, error) {
	names, err := m.List()
	if err != nil || len(names) == 0 {
		return nil, err
	}
	return m.Load(names[len(names)-1])
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "socialscraper"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "socialscraper"), nil
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "socialscraper"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", "socialscraper"), nil
	}
}
