package shortlink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSource reads a flat key -> URL object from a JSON file, or a YAML
// mapping when the file ends in .yaml / .yml.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) String() string { return "file:" + s.path }

func (s *FileSource) Load(_ context.Context) (Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Table{}, fmt.Errorf("%w: %s", ErrSourceMissing, s.path)
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read shortlinks file: %w", err)
	}

	links, err := decode(s.path, data)
	if err != nil {
		return Table{}, err
	}
	return NewTable(links)
}

func decode(path string, data []byte) (map[string]string, error) {
	var links map[string]string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &links); err != nil {
			return nil, fmt.Errorf("failed to parse shortlinks yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &links); err != nil {
			return nil, fmt.Errorf("failed to parse shortlinks json: %w", err)
		}
	}

	if links == nil {
		return nil, fmt.Errorf("shortlinks file %s holds no object", path)
	}
	return links, nil
}
