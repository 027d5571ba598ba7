// Package sysctl provides the provider for kernel parameters.
package sysctl

import (
	"fmt"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// DropInDir is where managed kernel parameter files live. One file per key
// keeps removal surgical.
const DropInDir = "/etc/sysctl.d"

// Setting is one desired kernel parameter.
type Setting struct {
	Key     string
	Value   string
	Persist bool
	Absent  bool
}

// DropInPath returns the managed drop-in file for this key.
func (s Setting) DropInPath() string {
	return DropInDir + "/90-groundwork-" + strings.ReplaceAll(s.Key, ".", "-") + ".conf"
}

// Line returns the sysctl.conf line for this setting.
func (s Setting) Line() string {
	return s.Key + " = " + s.Value + "\n"
}

// ParseSetting validates a sysctl resource's attributes.
func ParseSetting(res manifest.Resource) (Setting, error) {
	setting := Setting{
		Key:     res.Name,
		Persist: true,
		Absent:  res.Absent,
	}

	if err := validation.ValidateSysctlKey(setting.Key); err != nil {
		return Setting{}, err
	}

	switch v := res.Attributes["value"].(type) {
	case string:
		setting.Value = v
	case int:
		setting.Value = fmt.Sprintf("%d", v)
	case int64:
		setting.Value = fmt.Sprintf("%d", v)
	case bool:
		if v {
			setting.Value = "1"
		} else {
			setting.Value = "0"
		}
	case nil:
		if !res.Absent {
			return Setting{}, fmt.Errorf("sysctl %q requires a value", setting.Key)
		}
	default:
		return Setting{}, fmt.Errorf("sysctl %q value must be a string, integer, or bool", setting.Key)
	}

	if !res.Absent {
		if err := validation.ValidateSysctlValue(setting.Value); err != nil {
			return Setting{}, err
		}
	}

	if persist, ok := res.Attributes["persist"].(bool); ok {
		setting.Persist = persist
	}

	return setting, nil
}
