package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceIdentityKey(t *testing.T) {
	t.Parallel()

	res := Resource{Kind: KindSysctl, Name: "net.ipv4.ip_forward"}
	assert.Equal(t, "sysctl:net.ipv4.ip_forward", res.IdentityKey())
}

func TestResourceAttrHelpers(t *testing.T) {
	t.Parallel()

	res := Resource{
		Kind: KindFirewall,
		Name: "web",
		Attributes: map[string]interface{}{
			"protocol": "tcp",
			"port":     443,
			"port64":   int64(8443),
			"portf":    float64(9443),
			"paths":    []interface{}{"/etc/a", "/etc/b"},
		},
	}

	assert.Equal(t, "tcp", res.Attr("protocol"))
	assert.Equal(t, "", res.Attr("missing"))

	port, ok := res.IntAttr("port")
	assert.True(t, ok)
	assert.Equal(t, 443, port)

	// YAML decodes integers as int, TOML as int64, JSON as float64.
	port, ok = res.IntAttr("port64")
	assert.True(t, ok)
	assert.Equal(t, 8443, port)

	port, ok = res.IntAttr("portf")
	assert.True(t, ok)
	assert.Equal(t, 9443, port)

	_, ok = res.IntAttr("protocol")
	assert.False(t, ok)

	assert.Equal(t, []string{"/etc/a", "/etc/b"}, res.StringSliceAttr("paths"))
	assert.Nil(t, res.StringSliceAttr("missing"))
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewSet([]Resource{
		{Kind: KindFile, Name: "/etc/motd"},
		{Kind: KindFile, Name: "/etc/motd"},
	})
	require.Error(t, err)

	var manifestErr *Error
	require.ErrorAs(t, err, &manifestErr)
	assert.Equal(t, ErrCodeDuplicateResource, manifestErr.Code)
}

func TestSetLookups(t *testing.T) {
	t.Parallel()

	set, err := NewSet([]Resource{
		{Kind: KindSysctl, Name: "net.ipv4.ip_forward"},
		{Kind: KindFile, Name: "/etc/motd"},
		{Kind: KindSysctl, Name: "net.core.somaxconn"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())

	res, ok := set.Get("file:/etc/motd")
	require.True(t, ok)
	assert.Equal(t, KindFile, res.Kind)

	_, ok = set.Get("file:/etc/missing")
	assert.False(t, ok)

	sysctls := set.ByKind(KindSysctl)
	require.Len(t, sysctls, 2)
	// Declaration order is preserved within a kind.
	assert.Equal(t, "net.ipv4.ip_forward", sysctls[0].Name)
	assert.Equal(t, "net.core.somaxconn", sysctls[1].Name)

	assert.Equal(t, []string{
		"file:/etc/motd",
		"sysctl:net.core.somaxconn",
		"sysctl:net.ipv4.ip_forward",
	}, set.Keys())
}

func TestKnownKind(t *testing.T) {
	t.Parallel()

	for _, kind := range Kinds() {
		assert.True(t, KnownKind(kind))
	}
	assert.False(t, KnownKind(Kind("package")))
}
