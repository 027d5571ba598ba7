package netif

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/groundworkd/groundwork/internal/domain/manifest"
	"github.com/groundworkd/groundwork/internal/validation"
)

// NetplanDir is where managed interface fragments live.
const NetplanDir = "/etc/netplan"

// Interface describes the desired addressing of one network interface.
type Interface struct {
	// Name is the interface name (eth1, lan0).
	Name string
	// Address is the interface address in CIDR form.
	Address string
	// Gateway is an optional default route via this interface.
	Gateway string
	// MTU overrides the link MTU when non-zero.
	MTU int
	// Absent removes the managed fragment instead of writing it.
	Absent bool
}

// ParseInterface extracts an Interface from a netif resource.
func ParseInterface(res manifest.Resource) (Interface, error) {
	iface := Interface{
		Name:   res.Name,
		Absent: res.Absent,
	}

	if err := validation.ValidateInterfaceName(iface.Name); err != nil {
		return Interface{}, err
	}

	iface.Address = res.Attr("address")
	if !iface.Absent {
		if iface.Address == "" {
			return Interface{}, fmt.Errorf("netif %q requires an address attribute", iface.Name)
		}
		if err := validation.ValidateCIDR(iface.Address); err != nil {
			return Interface{}, fmt.Errorf("address: %w", err)
		}
	}

	if gw := res.Attr("gateway"); gw != "" {
		if err := validation.ValidateIPAddress(gw); err != nil {
			return Interface{}, fmt.Errorf("gateway: %w", err)
		}
		iface.Gateway = gw
	}

	if mtu, ok := res.IntAttr("mtu"); ok {
		if mtu < 576 || mtu > 9216 {
			return Interface{}, fmt.Errorf("mtu %d out of range 576-9216", mtu)
		}
		iface.MTU = mtu
	}

	return iface, nil
}

// FragmentPath returns the managed netplan fragment path for this interface.
func (i Interface) FragmentPath() string {
	return fmt.Sprintf("%s/60-groundwork-%s.yaml", NetplanDir, i.Name)
}

// netplan fragment document shape, version 2.
type netplanDoc struct {
	Network netplanNetwork `yaml:"network"`
}

type netplanNetwork struct {
	Version   int                        `yaml:"version"`
	Ethernets map[string]netplanEthernet `yaml:"ethernets"`
}

type netplanEthernet struct {
	Addresses []string       `yaml:"addresses"`
	MTU       int            `yaml:"mtu,omitempty"`
	Routes    []netplanRoute `yaml:"routes,omitempty"`
}

type netplanRoute struct {
	To  string `yaml:"to"`
	Via string `yaml:"via"`
}

// Render produces the netplan YAML fragment for this interface.
func (i Interface) Render() ([]byte, error) {
	eth := netplanEthernet{
		Addresses: []string{i.Address},
		MTU:       i.MTU,
	}
	if i.Gateway != "" {
		eth.Routes = []netplanRoute{{To: "default", Via: i.Gateway}}
	}
	doc := netplanDoc{
		Network: netplanNetwork{
			Version:   2,
			Ethernets: map[string]netplanEthernet{i.Name: eth},
		},
	}

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("rendering netplan fragment for %s: %w", i.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("rendering netplan fragment for %s: %w", i.Name, err)
	}
	return []byte(buf.String()), nil
}
