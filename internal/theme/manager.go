// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/olegiv/oforum/internal/model"
	"github.com/olegiv/oforum/internal/util"
)

// DefaultThemeKey is the embedded theme every installation has.
const DefaultThemeKey = "default"

// Manager holds the loaded file themes.
type Manager struct {
	embedded  fs.FS
	themesDir string
	themes    map[string]*Theme
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewManager creates a new theme manager. embedded may be nil and
// themesDir may be empty.
func NewManager(embedded fs.FS, themesDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		embedded:  embedded,
		themesDir: themesDir,
		themes:    make(map[string]*Theme),
		logger:    logger,
	}
}

// LoadThemes loads embedded themes, then filesystem themes. A filesystem
// theme with the same key as an embedded one replaces it.
func (m *Manager) LoadThemes() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := make(map[string]*Theme)

	if m.embedded != nil {
		entries, err := fs.ReadDir(m.embedded, ".")
		if err != nil {
			return fmt.Errorf("reading embedded themes: %w", err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			key := entry.Name()
			sub, err := fs.Sub(m.embedded, key)
			if err != nil {
				return fmt.Errorf("opening embedded theme %s: %w", key, err)
			}
			theme, err := m.loadTheme(key, func(name string) ([]byte, error) {
				return fs.ReadFile(sub, name)
			})
			if err != nil {
				m.logger.Warn("failed to load embedded theme", "theme", key, "error", err)
				continue
			}
			theme.IsEmbedded = true
			loaded[key] = theme
		}
	}

	if m.themesDir != "" {
		if err := m.loadDirectory(loaded); err != nil {
			return err
		}
	}

	m.themes = loaded
	m.logger.Info("themes loaded", "count", len(m.themes))
	return nil
}

func (m *Manager) loadDirectory(loaded map[string]*Theme) error {
	if _, err := os.Stat(m.themesDir); os.IsNotExist(err) {
		m.logger.Debug("themes directory does not exist", "path", m.themesDir)
		return nil
	}

	entries, err := os.ReadDir(m.themesDir)
	if err != nil {
		return fmt.Errorf("reading themes directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		key := entry.Name()
		if !util.IsValidSlug(key) {
			m.logger.Warn("skipping theme with invalid directory name", "theme", key)
			continue
		}
		// Numeric keys are reserved for database themes.
		if _, err := strconv.ParseInt(key, 10, 64); err == nil {
			m.logger.Warn("skipping theme with numeric directory name", "theme", key)
			continue
		}

		themePath := filepath.Join(m.themesDir, key)
		theme, err := m.loadTheme(key, func(name string) ([]byte, error) {
			p, err := util.SafeJoinPath(themePath, name)
			if err != nil {
				return nil, err
			}
			return os.ReadFile(p)
		})
		if err != nil {
			m.logger.Warn("failed to load theme", "theme", key, "error", err)
			continue
		}
		theme.Path = themePath

		if _, exists := loaded[key]; exists {
			m.logger.Info("custom theme overrides embedded theme", "theme", key)
		}
		loaded[key] = theme
		m.logger.Info("loaded theme", "theme", key, "version", theme.Config.Version)
	}
	return nil
}

// loadTheme reads theme.json and every asset it declares.
func (m *Manager) loadTheme(key string, read func(name string) ([]byte, error)) (*Theme, error) {
	configData, err := read("theme.json")
	if err != nil {
		return nil, fmt.Errorf("reading theme.json: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("parsing theme.json: %w", err)
	}

	assets := make(map[string]string, len(config.Assets))
	for name, file := range config.Assets {
		data, err := read(file)
		if err != nil {
			return nil, fmt.Errorf("reading asset %s: %w", name, err)
		}
		if err := model.ValidateAssetBody(name, string(data)); err != nil {
			return nil, fmt.Errorf("asset %s: %w", name, err)
		}
		assets[name] = string(data)
	}

	return &Theme{
		Key:    key,
		Config: config,
		assets: assets,
	}, nil
}

// GetTheme returns a theme by key.
func (m *Manager) GetTheme(key string) (*Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	theme, ok := m.themes[key]
	if !ok {
		return nil, model.NotFound("theme %q", key)
	}
	return theme, nil
}

// HasTheme checks if a theme exists.
func (m *Manager) HasTheme(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.themes[key]
	return ok
}

// ListThemes returns all loaded themes sorted by key, with the default theme first.
func (m *Manager) ListThemes() []*Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Theme, 0, len(m.themes))
	for _, theme := range m.themes {
		list = append(list, theme)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Key == DefaultThemeKey {
			return true
		}
		if list[j].Key == DefaultThemeKey {
			return false
		}
		return list[i].Key < list[j].Key
	})
	return list
}

// ThemeCount returns the number of loaded themes.
func (m *Manager) ThemeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.themes)
}
