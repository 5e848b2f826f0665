package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"simulacra/simerr"
)

// LoadYAML parses path as YAML into a nested map and writes every leaf
// (dotted-path flattened) into layer, tagged with path as the source.
func (t *Tree) LoadYAML(layer Layer, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return simerr.NewConfigurationError("reading YAML configuration file", err.Error())
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return simerr.NewConfigurationError("parsing YAML configuration file", err.Error())
	}
	return t.loadFlattened(layer, doc, path)
}

// LoadTOML parses path as TOML, flattening the same way LoadYAML does.
// Used for the component_configs layer when a deployment prefers TOML.
func (t *Tree) LoadTOML(layer Layer, path string) error {
	var doc map[string]interface{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return simerr.NewConfigurationError("parsing TOML configuration file", err.Error())
	}
	return t.loadFlattened(layer, doc, path)
}

func (t *Tree) loadFlattened(layer Layer, doc map[string]interface{}, source string) error {
	flat := make(map[string]interface{})
	flatten("", doc, flat)
	for k, v := range flat {
		if err := t.Set(layer, k, v, source); err != nil {
			return err
		}
	}
	return nil
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			flatten(key, nested, out)
		default:
			out[key] = v
		}
	}
}

// KeyPath joins dotted-path segments, for callers building keys
// programmatically rather than loading them from a file.
func KeyPath(parts ...string) string {
	return strings.Join(parts, ".")
}
