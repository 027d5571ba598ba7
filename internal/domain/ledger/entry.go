// Package ledger persists which resources have been successfully applied and
// with what content hash. It is the engine's single source of truth for
// "has this been applied"; live verification stays with the step kinds.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// Outcome records how the last attempt at a resource ended.
type Outcome string

const (
	// OutcomeSuccess means apply and verification both succeeded.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed means apply or verification failed.
	OutcomeFailed Outcome = "failed"
)

// Entry is the persisted record of the last known-applied state for one
// resource. Entries are created on first successful apply, updated when the
// desired attributes change, and never silently deleted: removing a resource
// from a manifest requires an absent declaration, which records a new entry.
type Entry struct {
	Key       string    `yaml:"key"`
	Kind      string    `yaml:"kind"`
	Hash      string    `yaml:"hash"`
	Outcome   Outcome   `yaml:"outcome"`
	Reason    string    `yaml:"reason,omitempty"`
	AppliedAt time.Time `yaml:"applied_at"`
}

// Succeeded reports whether the entry records a successful apply.
func (e Entry) Succeeded() bool {
	return e.Outcome == OutcomeSuccess
}

// Matches reports whether the entry covers the given content hash with a
// successful outcome, i.e. the resource is already converged as declared.
func (e Entry) Matches(hash string) bool {
	return e.Hash == hash && e.Outcome == OutcomeSuccess
}

// hashedResource is the canonical shape fed to the content hash. Attribute
// maps serialize with sorted keys under encoding/json, so the hash is stable
// across runs and across YAML/TOML manifest formats.
type hashedResource struct {
	Kind       string                 `json:"kind"`
	Name       string                 `json:"name"`
	Absent     bool                   `json:"absent"`
	Attributes map[string]interface{} `json:"attributes"`
}

// ContentHash returns the hex-encoded SHA-256 of a resource's desired state.
func ContentHash(res manifest.Resource) string {
	canonical := hashedResource{
		Kind:       string(res.Kind),
		Name:       res.Name,
		Absent:     res.Absent,
		Attributes: res.Attributes,
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		// Attributes come out of a YAML/TOML decoder; every decodable value
		// is also marshalable. Hash the error text rather than panic so a
		// pathological manifest degrades to "always re-apply".
		data = []byte(fmt.Sprintf("unhashable:%v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
