package service

import (
	"fmt"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// Unit describes the desired enablement state of a systemd unit.
type Unit struct {
	// Name is the systemd unit name (portmapd, nginx.service).
	Name string
	// UnitFile is the absolute path of a managed unit file artifact, when
	// the manifest also declares it as a file resource.
	UnitFile string
	// ConfigFiles are paths the unit reads; changes to them reorder this
	// step after the matching file steps.
	ConfigFiles []string
	// Database names a schema object the unit needs before first start.
	Database string
	// Absent disables and stops the unit instead of enabling it.
	Absent bool
}

// ParseUnit extracts a Unit from a service resource.
func ParseUnit(res manifest.Resource) (Unit, error) {
	unit := Unit{
		Name:   res.Name,
		Absent: res.Absent,
	}

	if err := validation.ValidateUnitName(unit.Name); err != nil {
		return Unit{}, err
	}

	if path := res.Attr("unit_file"); path != "" {
		if err := validation.ValidateAbsolutePath(path); err != nil {
			return Unit{}, fmt.Errorf("unit_file: %w", err)
		}
		unit.UnitFile = path
	}

	paths := res.StringSliceAttr("config_files")
	for _, path := range paths {
		if err := validation.ValidateAbsolutePath(path); err != nil {
			return Unit{}, fmt.Errorf("config_files: %w", err)
		}
	}
	unit.ConfigFiles = paths

	if name := res.Attr("database"); name != "" {
		if err := validation.ValidateSQLIdentifier(name); err != nil {
			return Unit{}, fmt.Errorf("database: %w", err)
		}
		unit.Database = name
	}

	return unit, nil
}

// ReferencedKeys returns the identity keys of artifacts this unit reads.
// Those become implicit dependencies when declared in the same manifest.
func (u Unit) ReferencedKeys() []string {
	keys := make([]string, 0, len(u.ConfigFiles)+2)
	if u.UnitFile != "" {
		keys = append(keys, "file:"+u.UnitFile)
	}
	for _, path := range u.ConfigFiles {
		keys = append(keys, "file:"+path)
	}
	if u.Database != "" {
		keys = append(keys, "database:"+u.Database)
	}
	return keys
}
