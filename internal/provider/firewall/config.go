// Package firewall provides the provider for packet filter rules.
//
// Two rule shapes are supported: "accept" rules in the filter table, and
// "portmap" rules that forward a local connection port to a port on a
// machine behind the NAT (a FORWARD accept plus a PREROUTING DNAT, applied
// as a pair).
package firewall

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// RulesFile is where converged rules are persisted for boot.
const RulesFile = "/etc/iptables/rules.v4"

// Connection ports for port mappings live in a reserved window unless the
// resource widens it with conn_port_range.
const (
	DefaultConnPortMin = 50000
	DefaultConnPortMax = 50100
)

// RuleType distinguishes the supported rule shapes.
type RuleType string

const (
	// TypeAccept is a plain accept rule in the filter table.
	TypeAccept RuleType = "accept"
	// TypePortMap is a NAT port mapping (FORWARD accept + PREROUTING DNAT).
	TypePortMap RuleType = "portmap"
)

// Rule is one desired packet filter rule.
type Rule struct {
	Name     string
	Type     RuleType
	Protocol string

	// Accept rules.
	Port   int
	Source string

	// Port mappings.
	ConnPort   int
	TargetPort int
	TargetAddr string

	Absent bool
}

// ParseRule validates a firewall resource's attributes.
func ParseRule(res manifest.Resource) (Rule, error) {
	rule := Rule{
		Name:     res.Name,
		Protocol: res.Attr("protocol"),
		Absent:   res.Absent,
	}

	ruleType, ok := res.Attributes["type"].(string)
	if !ok || ruleType == "" {
		return Rule{}, fmt.Errorf("firewall %q requires a type (accept or portmap)", rule.Name)
	}
	rule.Type = RuleType(ruleType)

	if err := validation.ValidateProtocol(rule.Protocol); err != nil {
		return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
	}

	switch rule.Type {
	case TypeAccept:
		port, ok := res.IntAttr("port")
		if !ok {
			return Rule{}, fmt.Errorf("firewall %q requires a port", rule.Name)
		}
		if err := validation.ValidatePort(port); err != nil {
			return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
		}
		rule.Port = port

		if source, ok := res.Attributes["source"].(string); ok {
			if err := validation.ValidateCIDR(source); err != nil {
				return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
			}
			rule.Source = source
		}

	case TypePortMap:
		connPort, ok := res.IntAttr("conn_port")
		if !ok {
			return Rule{}, fmt.Errorf("firewall %q requires conn_port", rule.Name)
		}
		targetPort, ok := res.IntAttr("target_port")
		if !ok {
			return Rule{}, fmt.Errorf("firewall %q requires target_port", rule.Name)
		}
		for _, port := range []int{connPort, targetPort} {
			if err := validation.ValidatePort(port); err != nil {
				return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
			}
		}
		minPort, maxPort, err := connPortRange(res)
		if err != nil {
			return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
		}
		if connPort < minPort || connPort > maxPort {
			return Rule{}, fmt.Errorf("firewall %q: conn_port %d outside allowed range %d-%d",
				rule.Name, connPort, minPort, maxPort)
		}
		rule.ConnPort = connPort
		rule.TargetPort = targetPort

		rule.TargetAddr = res.Attr("target_addr")
		if err := validation.ValidateIPAddress(rule.TargetAddr); err != nil {
			return Rule{}, fmt.Errorf("firewall %q: %w", rule.Name, err)
		}

	default:
		return Rule{}, fmt.Errorf("firewall %q: unknown type %q", rule.Name, ruleType)
	}

	return rule, nil
}

// connPortRange returns the window conn_port must fall in, read from the
// optional conn_port_range attribute ("min-max").
func connPortRange(res manifest.Resource) (int, int, error) {
	raw := res.Attr("conn_port_range")
	if raw == "" {
		return DefaultConnPortMin, DefaultConnPortMax, nil
	}

	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("conn_port_range %q must be min-max", raw)
	}
	minPort, errMin := strconv.Atoi(strings.TrimSpace(parts[0]))
	maxPort, errMax := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errMin != nil || errMax != nil {
		return 0, 0, fmt.Errorf("conn_port_range %q must be min-max", raw)
	}
	for _, port := range []int{minPort, maxPort} {
		if err := validation.ValidatePort(port); err != nil {
			return 0, 0, fmt.Errorf("conn_port_range: %w", err)
		}
	}
	if minPort > maxPort {
		return 0, 0, fmt.Errorf("conn_port_range %q is inverted", raw)
	}
	return minPort, maxPort, nil
}

// filterSpec returns the rule arguments in the filter table, in iptables -S
// order, without the leading "-A CHAIN".
func (r Rule) filterSpec() []string {
	switch r.Type {
	case TypeAccept:
		args := []string{"-p", r.Protocol}
		if r.Source != "" {
			args = append(args, "-s", r.Source)
		}
		args = append(args, "--dport", fmt.Sprint(r.Port), "-j", "ACCEPT")
		return args
	case TypePortMap:
		return []string{"-d", r.TargetAddr + "/32", "-p", r.Protocol,
			"--dport", fmt.Sprint(r.TargetPort), "-j", "ACCEPT"}
	}
	return nil
}

// natSpec returns the PREROUTING arguments for port mappings.
func (r Rule) natSpec() []string {
	return []string{"-p", r.Protocol, "--dport", fmt.Sprint(r.ConnPort),
		"-j", "DNAT", "--to-destination", fmt.Sprintf("%s:%d", r.TargetAddr, r.TargetPort)}
}

// filterChain returns the chain the filter-table rule belongs to.
func (r Rule) filterChain() string {
	if r.Type == TypePortMap {
		return "FORWARD"
	}
	return "INPUT"
}
