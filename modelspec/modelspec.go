// Package modelspec parses the serialized model specification file: three
// top-level keys (plugins, components, configuration), per spec §6.
// Components are declared as `module.path.ClassName('arg1', 'arg2')`
// strings, either in a flat list or a nested tree whose leaves are such
// strings.
package modelspec

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"simulacra/simerr"
)

// ComponentDecl is one parsed component declaration.
type ComponentDecl struct {
	// Path is the slash-joined position in the nested tree the declaration
	// was found at (empty for a flat list entry), kept for diagnostics.
	Path string
	// ModulePath is the dotted package/class path, e.g. "disease.SIR".
	ModulePath string
	// Args are the quoted string-literal constructor arguments, in order.
	Args []string
}

// Spec is a fully-parsed model specification document.
type Spec struct {
	Plugins       map[string]interface{}
	Components    []ComponentDecl
	Configuration map[string]interface{}
}

// raw mirrors the three top-level keys as the YAML document actually
// stores them, before component strings are parsed into ComponentDecls.
type raw struct {
	Plugins       map[string]interface{} `yaml:"plugins"`
	Components    interface{}            `yaml:"components"`
	Configuration map[string]interface{} `yaml:"configuration"`
}

// componentCall matches `module.path.ClassName('arg1', 'arg2')`, including
// the zero-argument form `module.path.ClassName()`.
var componentCall = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\(([^)]*)\)$`)

// Parse reads and parses a model specification file.
func Parse(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, simerr.NewConfigurationError("reading model specification file", err.Error())
	}
	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, simerr.NewConfigurationError("parsing model specification YAML", err.Error())
	}
	components, err := parseComponents("", r.Components)
	if err != nil {
		return nil, err
	}
	return &Spec{Plugins: r.Plugins, Components: components, Configuration: r.Configuration}, nil
}

func parseComponents(path string, node interface{}) ([]ComponentDecl, error) {
	switch v := node.(type) {
	case nil:
		return nil, nil
	case string:
		decl, err := parseComponentString(path, v)
		if err != nil {
			return nil, err
		}
		return []ComponentDecl{decl}, nil
	case []interface{}:
		var out []ComponentDecl
		for i, item := range v {
			sub, err := parseComponents(fmt.Sprintf("%s[%d]", path, i), item)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	case map[string]interface{}:
		var out []ComponentDecl
		for k, item := range v {
			childPath := k
			if path != "" {
				childPath = path + "/" + k
			}
			sub, err := parseComponents(childPath, item)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	default:
		return nil, simerr.NewConfigurationError("component declaration is not a string, list, or tree", path)
	}
}

func parseComponentString(path, s string) (ComponentDecl, error) {
	s = strings.TrimSpace(s)
	m := componentCall.FindStringSubmatch(s)
	if m == nil {
		return ComponentDecl{}, simerr.NewConfigurationError("component declaration is not of the form module.path.ClassName('arg')", s)
	}
	modulePath, argList := m[1], strings.TrimSpace(m[2])
	var args []string
	if argList != "" {
		for _, raw := range strings.Split(argList, ",") {
			arg := strings.TrimSpace(raw)
			if len(arg) < 2 || !isQuoted(arg) {
				return ComponentDecl{}, simerr.NewConfigurationError("component constructor arguments must be quoted string literals", s)
			}
			args = append(args, arg[1:len(arg)-1])
		}
	}
	return ComponentDecl{Path: path, ModulePath: modulePath, Args: args}, nil
}

func isQuoted(s string) bool {
	return (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"')
}
