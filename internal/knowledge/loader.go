package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"ardi/internal/logging"
)

// LoadDir reads every *.yaml / *.yml collection file in dir. Files that fail
// to parse or validate are skipped with a log entry; a read error on the
// directory itself is returned.
func LoadDir(dir string) ([]*Collection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections dir: %w", err)
	}

	var collections []*Collection
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(dir, name)
		c, err := LoadFile(path)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("Skipping collection %s: %v", name, err)
			continue
		}
		collections = append(collections, c)
	}

	logging.Boot("Loaded %d knowledge collections from %s", len(collections), dir)
	return collections, nil
}

// LoadFile reads and validates a single collection YAML file.
func LoadFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var c Collection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadLibrary builds the library for the given config: collections from dir
// when configured and non-empty, built-ins otherwise.
func LoadLibrary(collectionsDir string) (*Library, error) {
	if collectionsDir == "" {
		logging.Boot("No collections dir configured, using built-in collections")
		return NewLibrary(BuiltinCollections()...), nil
	}

	collections, err := LoadDir(collectionsDir)
	if err != nil {
		return nil, err
	}
	if len(collections) == 0 {
		logging.Boot("Collections dir %s empty, using built-in collections", collectionsDir)
		return NewLibrary(BuiltinCollections()...), nil
	}
	return NewLibrary(collections...), nil
}
