package compiler

import (
	"fmt"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
)

// ResourceStepID derives a step's ID from its resource. Providers run
// ValidateResourceID before constructing steps, so a malformed identity key
// here is a programming error.
func ResourceStepID(res manifest.Resource) StepID {
	return MustNewStepID(res.IdentityKey())
}

// ValidateResourceID checks that a resource's identity key is usable as a
// step ID, so a hostile or malformed name surfaces as a scoped validation
// error during compile instead of a panic.
func ValidateResourceID(res manifest.Resource) error {
	_, err := NewStepID(res.IdentityKey())
	return err
}

// ResourceDeps converts a resource's declared depends_on keys into StepIDs.
func ResourceDeps(res manifest.Resource) ([]StepID, error) {
	if len(res.DependsOn) == 0 {
		return nil, nil
	}
	deps := make([]StepID, 0, len(res.DependsOn))
	for _, key := range res.DependsOn {
		id, err := NewStepID(key)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", key, err)
		}
		deps = append(deps, id)
	}
	return deps, nil
}
