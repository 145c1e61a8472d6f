package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a single layout file. YAML and JSON are accepted; the extension
// decides the decoder.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var l Layout
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &l)
	case ".json":
		err = json.Unmarshal(data, &l)
	default:
		return nil, fmt.Errorf("unsupported layout file %s (want .yaml, .yml or .json)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}

	if l.ID == "" {
		l.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// LoadDir loads every layout file in dir. A missing directory is not an
// error: the caller falls back to the built-in default.
func LoadDir(dir string) ([]*Layout, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var layouts []*Layout
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		l, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	sort.Slice(layouts, func(i, j int) bool { return layouts[i].ID < layouts[j].ID })
	return layouts, nil
}

// Select picks the layout to print with: the one marked default, else the
// first loaded, else the built-in default.
func Select(layouts []*Layout) *Layout {
	for _, l := range layouts {
		if l.IsDefault {
			return l
		}
	}
	if len(layouts) > 0 {
		return layouts[0]
	}
	return Default()
}
