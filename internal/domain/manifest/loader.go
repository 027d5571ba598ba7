package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/groundworkd/groundwork/internal/ports"
)

// FormatVersion is the manifest document version this binary understands.
const FormatVersion = 1

// document is the on-disk shape shared by the YAML and TOML formats.
type document struct {
	Version   int                      `yaml:"version" toml:"version"`
	Resources []map[string]interface{} `yaml:"resources" toml:"resources"`
}

// Reserved per-resource keys; everything else is a desired attribute.
const (
	keyKind      = "kind"
	keyName      = "name"
	keyDependsOn = "depends_on"
	keyAbsent    = "absent"
)

// Loader reads manifest documents into resource sets.
type Loader struct {
	fs ports.FileSystem
}

// NewLoader creates a Loader backed by the given file system.
func NewLoader(fs ports.FileSystem) *Loader {
	return &Loader{fs: fs}
}

// Load parses the manifest at path. The format is chosen by extension:
// .toml parses as TOML, everything else as YAML.
func (l *Loader) Load(path string) (*Set, error) {
	if !l.fs.Exists(path) {
		return nil, NewNotFoundError(path)
	}

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, NewParseError(path, err)
	}

	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, NewParseError(path, err)
	}

	return Parse(doc.Version, doc.Resources, path)
}

// Parse converts raw resource maps into a validated Set. Structural checks
// happen here (kinds, identity uniqueness, dependency key shape); attribute
// validation is the owning provider's job at compile time.
func Parse(version int, raw []map[string]interface{}, path string) (*Set, error) {
	if version > FormatVersion {
		return nil, NewInvalidError(path,
			fmt.Sprintf("manifest version %d is newer than supported version %d", version, FormatVersion))
	}

	resources := make([]Resource, 0, len(raw))
	for i, item := range raw {
		res, err := parseResource(i, item)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}

	return NewSet(resources)
}

func parseResource(index int, raw map[string]interface{}) (Resource, error) {
	where := fmt.Sprintf("resources[%d]", index)

	kindStr, ok := raw[keyKind].(string)
	if !ok || kindStr == "" {
		return Resource{}, NewInvalidError(where, "resource is missing a kind")
	}
	name, ok := raw[keyName].(string)
	if !ok || name == "" {
		return Resource{}, NewInvalidError(where, "resource is missing a name")
	}

	kind := Kind(kindStr)
	if !KnownKind(kind) {
		return Resource{}, NewUnknownKindError(kindStr, name)
	}

	res := Resource{
		Kind:       kind,
		Name:       name,
		Attributes: make(map[string]interface{}),
	}

	if absent, ok := raw[keyAbsent].(bool); ok {
		res.Absent = absent
	}

	if deps, ok := raw[keyDependsOn]; ok {
		list, err := parseDependsOn(deps)
		if err != nil {
			return Resource{}, NewInvalidError(where+"."+keyDependsOn, err.Error())
		}
		res.DependsOn = list
	}

	for key, value := range raw {
		switch key {
		case keyKind, keyName, keyDependsOn, keyAbsent:
			continue
		}
		res.Attributes[key] = value
	}

	return res, nil
}

// parseDependsOn accepts a list of identity keys in "kind:name" form.
func parseDependsOn(raw interface{}) ([]string, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("depends_on must be a list of identity keys")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		key, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("depends_on entries must be strings")
		}
		kind, _, found := strings.Cut(key, ":")
		if !found || !KnownKind(Kind(kind)) {
			return nil, fmt.Errorf("dependency %q is not a kind:name identity key", key)
		}
		out = append(out, key)
	}
	return out, nil
}
