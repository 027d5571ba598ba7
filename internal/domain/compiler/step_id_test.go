package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStepID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"sysctl key", "sysctl:net.ipv4.ip_forward", false},
		{"absolute path", "file:/etc/netplan/60-lan.yaml", false},
		{"plain name", "service:portmapd", false},
		{"templated unit", "service:getty@tty1.service", false},
		{"firewall rule", "firewall:portmap-50000", false},
		{"empty", "", true},
		{"whitespace only", "   ", true},
		{"no separator", "sysctl", true},
		{"uppercase kind", "Sysctl:x", true},
		{"path with spaces", "file:/etc/my config.yaml", false},
		{"rule name with spaces", "firewall:allow http", false},
		{"leading space in name", "file: etc", true},
		{"shell metacharacters", "service:portmapd;reboot", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, err := NewStepID(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, id.IsZero())
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.value, id.String())
			}
		})
	}
}

func TestStepIDKindAndName(t *testing.T) {
	t.Parallel()

	id := MustNewStepID("file:/etc/netplan/60-lan.yaml")
	assert.Equal(t, "file", id.Kind())
	assert.Equal(t, "/etc/netplan/60-lan.yaml", id.Name())
}

func TestStepIDEquals(t *testing.T) {
	t.Parallel()

	a := MustNewStepID("sysctl:net.ipv4.ip_forward")
	b := MustNewStepID("sysctl:net.ipv4.ip_forward")
	c := MustNewStepID("sysctl:net.core.somaxconn")

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestMustNewStepIDPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNewStepID("not a step id")
	})
}
