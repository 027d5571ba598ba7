package files

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/groundworkd/groundwork/internal/domain/compiler"
	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/ports"
)

// ArtifactStep converges one managed file by content hash.
type ArtifactStep struct {
	res      manifest.Resource
	artifact Artifact
	id       compiler.StepID
	deps     []compiler.StepID
	fs       ports.FileSystem
}

// NewArtifactStep creates a new ArtifactStep.
func NewArtifactStep(res manifest.Resource, artifact Artifact, deps []compiler.StepID, fs ports.FileSystem) *ArtifactStep {
	return &ArtifactStep{
		res:      res,
		artifact: artifact,
		id:       compiler.ResourceStepID(res),
		deps:     deps,
		fs:       fs,
	}
}

// ID returns the step identifier.
func (s *ArtifactStep) ID() compiler.StepID {
	return s.id
}

// Resource returns the resource this step converges.
func (s *ArtifactStep) Resource() manifest.Resource {
	return s.res
}

// DependsOn returns the step dependencies.
func (s *ArtifactStep) DependsOn() []compiler.StepID {
	return s.deps
}

// Check compares the destination's hash against the desired content.
func (s *ArtifactStep) Check(_ compiler.RunContext) (compiler.StepStatus, error) {
	if s.artifact.Absent {
		if s.fs.Exists(s.artifact.Path) {
			return compiler.StatusNeedsApply, nil
		}
		return compiler.StatusSatisfied, nil
	}

	if !s.fs.Exists(s.artifact.Path) {
		return compiler.StatusNeedsApply, nil
	}
	if s.fs.IsDir(s.artifact.Path) {
		return compiler.StatusUnknown, fmt.Errorf("destination %s is a directory", s.artifact.Path)
	}

	want, err := s.desiredHash()
	if err != nil {
		return compiler.StatusUnknown, err
	}
	got, err := s.fs.FileHash(s.artifact.Path)
	if err != nil {
		return compiler.StatusUnknown, err
	}
	if want != got {
		return compiler.StatusNeedsApply, nil
	}
	return compiler.StatusSatisfied, nil
}

// Plan returns the diff for this step.
func (s *ArtifactStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	if s.artifact.Absent {
		return compiler.NewDiff(compiler.DiffTypeRemove, "file", s.artifact.Path, "present", ""), nil
	}
	if s.fs.Exists(s.artifact.Path) {
		old := "stale content"
		if info, err := s.fs.GetFileInfo(s.artifact.Path); err == nil {
			old = fmt.Sprintf("%d bytes, mode %s", info.Size, info.Mode)
		}
		return compiler.NewDiff(compiler.DiffTypeModify, "file", s.artifact.Path, old, "managed content"), nil
	}
	return compiler.NewDiff(compiler.DiffTypeAdd, "file", s.artifact.Path, "", "managed content"), nil
}

// Apply writes (or removes) the destination file.
func (s *ArtifactStep) Apply(_ compiler.RunContext) error {
	if s.artifact.Absent {
		if s.fs.Exists(s.artifact.Path) {
			return s.fs.Remove(s.artifact.Path)
		}
		return nil
	}

	data, err := s.desiredContent()
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.artifact.Path), 0o755); err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.artifact.Path, data, s.artifact.Mode); err != nil {
		return err
	}
	if s.artifact.Owner != "" {
		return s.fs.Chown(s.artifact.Path, s.artifact.Owner)
	}
	return nil
}

func (s *ArtifactStep) desiredContent() ([]byte, error) {
	if s.artifact.Source != "" {
		data, err := s.fs.ReadFile(s.artifact.Source)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s.artifact.Source, err)
		}
		return data, nil
	}
	return []byte(s.artifact.Content), nil
}

func (s *ArtifactStep) desiredHash() (string, error) {
	data, err := s.desiredContent()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Ensure ArtifactStep implements compiler.Step.
var _ compiler.Step = (*ArtifactStep)(nil)
