// Package manifest defines the resource model and the manifest loader.
//
// A manifest declares desired host state as a flat list of resources. Each
// resource names one fact about the host (a sysctl key, a firewall rule, a
// service, a schema object, a file) and is addressed by its identity key
// "kind:name", unique within a manifest.
package manifest

import (
	"fmt"
	"sort"
)

// Kind identifies a resource family. The set is closed; each kind has a
// provider package that knows how to converge it.
type Kind string

const (
	// KindNetIf is a network interface configuration.
	KindNetIf Kind = "netif"
	// KindSysctl is a kernel parameter.
	KindSysctl Kind = "sysctl"
	// KindFirewall is a packet filter rule.
	KindFirewall Kind = "firewall"
	// KindService is a systemd service enablement.
	KindService Kind = "service"
	// KindDatabase is a database schema object.
	KindDatabase Kind = "database"
	// KindFile is a managed file artifact.
	KindFile Kind = "file"
)

// Kinds returns all known kinds in deterministic order.
func Kinds() []Kind {
	return []Kind{KindNetIf, KindSysctl, KindFirewall, KindService, KindDatabase, KindFile}
}

// KnownKind reports whether k names a supported resource family.
func KnownKind(k Kind) bool {
	switch k {
	case KindNetIf, KindSysctl, KindFirewall, KindService, KindDatabase, KindFile:
		return true
	}
	return false
}

// Resource is one declared fact about desired host state. Resources are
// value objects: immutable after parse, compared structurally.
type Resource struct {
	Kind       Kind
	Name       string
	Attributes map[string]interface{}
	DependsOn  []string
	Absent     bool
}

// IdentityKey uniquely addresses the resource within a manifest.
func (r Resource) IdentityKey() string {
	return string(r.Kind) + ":" + r.Name
}

// Attr returns a string attribute, or the empty string when unset.
func (r Resource) Attr(key string) string {
	if v, ok := r.Attributes[key].(string); ok {
		return v
	}
	return ""
}

// IntAttr returns an integer attribute. YAML and TOML decoders produce
// different integer widths, so both are accepted.
func (r Resource) IntAttr(key string) (int, bool) {
	switch v := r.Attributes[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// StringSliceAttr returns a list-of-strings attribute.
func (r Resource) StringSliceAttr(key string) []string {
	raw, ok := r.Attributes[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Set is an ordered collection of resources with unique identity keys.
type Set struct {
	resources []Resource
	byKey     map[string]Resource
}

// NewSet builds a Set, rejecting duplicate identity keys.
func NewSet(resources []Resource) (*Set, error) {
	set := &Set{
		resources: make([]Resource, 0, len(resources)),
		byKey:     make(map[string]Resource, len(resources)),
	}
	for _, res := range resources {
		key := res.IdentityKey()
		if _, exists := set.byKey[key]; exists {
			return nil, NewDuplicateResourceError(key)
		}
		set.byKey[key] = res
		set.resources = append(set.resources, res)
	}
	return set, nil
}

// Len returns the number of resources.
func (s *Set) Len() int {
	return len(s.resources)
}

// Resources returns the resources in declaration order.
func (s *Set) Resources() []Resource {
	out := make([]Resource, len(s.resources))
	copy(out, s.resources)
	return out
}

// Get returns the resource with the given identity key.
func (s *Set) Get(key string) (Resource, bool) {
	res, ok := s.byKey[key]
	return res, ok
}

// ByKind returns the resources of one kind in declaration order.
func (s *Set) ByKind(kind Kind) []Resource {
	out := make([]Resource, 0)
	for _, res := range s.resources {
		if res.Kind == kind {
			out = append(out, res)
		}
	}
	return out
}

// Keys returns all identity keys, sorted.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.byKey))
	for key := range s.byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// String implements fmt.Stringer for debugging output.
func (r Resource) String() string {
	state := "present"
	if r.Absent {
		state = "absent"
	}
	return fmt.Sprintf("%s (%s)", r.IdentityKey(), state)
}
