package prefs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json or yaml in any case. An empty name falls back to
// the extension of path.
func ParseFormat(name, path string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return FormatYAML, nil
		default:
			return FormatJSON, nil
		}
	}
	switch Format(name) {
	case FormatJSON, FormatYAML:
		return Format(name), nil
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// Marshal encodes v in format f.
func Marshal(v any, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return yaml.Marshal(v)
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// SaveSnapshot writes v to path through a temporary file so readers never
// see a partial export.
func SaveSnapshot(path string, v any, f Format) error {
	data, err := Marshal(v, f)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot decodes path into v. The format follows the file extension.
func LoadSnapshot(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	f, _ := ParseFormat("", path)
	if f == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
