// Package validation provides input validation for resource attributes.
//
// Every value that ends up on a command line (iptables, sysctl, systemctl,
// psql) is validated here first so a hostile manifest cannot smuggle shell
// metacharacters into a privileged invocation.
package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

var (
	// sysctlKeyPattern matches dotted kernel parameter names such as
	// net.ipv4.ip_forward.
	sysctlKeyPattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_-]+)+$`)

	// ifaceNamePattern matches Linux interface names (ens160, eth0, br-lan).
	ifaceNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]{0,14}$`)

	// unitNamePattern matches systemd unit names with an optional type suffix.
	unitNamePattern = regexp.MustCompile(`^[a-zA-Z0-9:_@.\\-]+(\.(service|socket|timer|target|path))?$`)

	// sqlIdentPattern matches unquoted PostgreSQL identifiers.
	sqlIdentPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

	// ownerPattern matches "user" or "user:group" in POSIX name form.
	ownerPattern = regexp.MustCompile(`^[a-z_][a-z0-9_-]*(:[a-z_][a-z0-9_-]*)?$`)

	// Characters that should never appear in values passed to a command line.
	dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r", " "}
)

// checkDangerous rejects values containing shell metacharacters or null bytes.
func checkDangerous(what, value string) error {
	if strings.ContainsRune(value, '\x00') {
		return fmt.Errorf("%s contains null byte", what)
	}
	for _, char := range dangerousChars {
		if strings.Contains(value, char) {
			return fmt.Errorf("%s contains invalid character: %q", what, char)
		}
	}
	return nil
}

// ValidatePort validates a TCP/UDP port number.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// ValidateProtocol validates a firewall rule protocol.
func ValidateProtocol(proto string) error {
	switch proto {
	case "tcp", "udp":
		return nil
	case "":
		return fmt.Errorf("protocol is required")
	default:
		return fmt.Errorf("unsupported protocol %q (want tcp or udp)", proto)
	}
}

// ValidateSysctlKey validates a dotted kernel parameter name.
func ValidateSysctlKey(key string) error {
	if key == "" {
		return fmt.Errorf("sysctl key is required")
	}
	if err := checkDangerous("sysctl key", key); err != nil {
		return err
	}
	if !sysctlKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid sysctl key %q: must be a dotted parameter name", key)
	}
	return nil
}

// ValidateSysctlValue validates a kernel parameter value.
func ValidateSysctlValue(value string) error {
	if value == "" {
		return fmt.Errorf("sysctl value is required")
	}
	return checkDangerous("sysctl value", value)
}

// ValidateInterfaceName validates a network interface name.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name is required")
	}
	if !ifaceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid interface name %q", name)
	}
	return nil
}

// ValidateCIDR validates an address in CIDR notation.
func ValidateCIDR(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	if _, _, err := net.ParseCIDR(addr); err != nil {
		return fmt.Errorf("invalid CIDR address %q", addr)
	}
	return nil
}

// ValidateIPAddress validates a bare IPv4/IPv6 address.
func ValidateIPAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address is required")
	}
	if net.ParseIP(addr) == nil {
		return fmt.Errorf("invalid IP address %q", addr)
	}
	return nil
}

// ValidateUnitName validates a systemd unit name.
func ValidateUnitName(name string) error {
	if name == "" {
		return fmt.Errorf("unit name is required")
	}
	if err := checkDangerous("unit name", name); err != nil {
		return err
	}
	if !unitNamePattern.MatchString(name) {
		return fmt.Errorf("invalid unit name %q", name)
	}
	return nil
}

// ValidateSQLIdentifier validates an unquoted PostgreSQL identifier.
func ValidateSQLIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier is required")
	}
	if !sqlIdentPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier %q", name)
	}
	return nil
}

// ValidateAbsolutePath validates a destination file path.
func ValidateAbsolutePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path contains null byte")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path %q must be absolute", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path %q must not contain ..", path)
	}
	return nil
}

// ValidateOwner validates a file owner in "user" or "user:group" form.
func ValidateOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner is required")
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner %q", owner)
	}
	return nil
}
