// Package files provides the provider for managed file artifacts.
package files

import (
	"fmt"
	"os"
	"strconv"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// Artifact is one managed file: rendered content (or a source file to copy)
// at an absolute destination path with a fixed mode and optional owner.
type Artifact struct {
	Path    string
	Content string
	Source  string
	Mode    os.FileMode
	Owner   string
	Absent  bool
}

// ParseArtifact validates a file resource's attributes.
func ParseArtifact(res manifest.Resource) (Artifact, error) {
	artifact := Artifact{
		Path:   res.Name,
		Mode:   0o644,
		Absent: res.Absent,
	}

	if err := validation.ValidateAbsolutePath(artifact.Path); err != nil {
		return Artifact{}, err
	}

	content, hasContent := res.Attributes["content"].(string)
	source, hasSource := res.Attributes["source"].(string)
	if !res.Absent {
		switch {
		case hasContent && hasSource:
			return Artifact{}, fmt.Errorf("file %q: content and source are mutually exclusive", artifact.Path)
		case hasContent:
			artifact.Content = content
		case hasSource:
			if err := validation.ValidateAbsolutePath(source); err != nil {
				return Artifact{}, fmt.Errorf("file %q source: %w", artifact.Path, err)
			}
			artifact.Source = source
		default:
			return Artifact{}, fmt.Errorf("file %q requires content or source", artifact.Path)
		}
	}

	if modeStr, ok := res.Attributes["mode"].(string); ok {
		mode, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil || mode > 0o777 {
			return Artifact{}, fmt.Errorf("file %q: invalid mode %q", artifact.Path, modeStr)
		}
		artifact.Mode = os.FileMode(mode)
	}

	if owner := res.Attr("owner"); owner != "" {
		if err := validation.ValidateOwner(owner); err != nil {
			return Artifact{}, fmt.Errorf("file %q: %w", artifact.Path, err)
		}
		artifact.Owner = owner
	}

	return artifact, nil
}
