// Package identity implements the identity directory (C1), the name/key
// hierarchy (spec.md §3), and the standard/device identity records.
package identity

import (
	"fmt"
	"strings"
)

// Name is a parsed hierarchical identity name of the form
// "@@<node>/<profile>[/device/<device>]" (spec.md §3).
type Name struct {
	Node    string
	Profile string
	Device  string // empty unless this name addresses a device identity
}

// ParseName parses a full identity name string into its components.
func ParseName(full string) (Name, error) {
	if !strings.HasPrefix(full, "@@") {
		return Name{}, fmt.Errorf("identity name %q must start with @@", full)
	}
	rest := strings.TrimPrefix(full, "@@")
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Name{}, fmt.Errorf("identity name %q missing node or profile", full)
		}
		return Name{Node: parts[0], Profile: parts[1]}, nil
	case 4:
		if parts[2] != "device" {
			return Name{}, fmt.Errorf("identity name %q has invalid device segment", full)
		}
		if parts[0] == "" || parts[1] == "" || parts[3] == "" {
			return Name{}, fmt.Errorf("identity name %q missing node, profile, or device", full)
		}
		return Name{Node: parts[0], Profile: parts[1], Device: parts[3]}, nil
	default:
		return Name{}, fmt.Errorf("identity name %q has unexpected shape", full)
	}
}

// String renders the name back into its canonical wire form.
func (n Name) String() string {
	if n.Device != "" {
		return fmt.Sprintf("@@%s/%s/device/%s", n.Node, n.Profile, n.Device)
	}
	return fmt.Sprintf("@@%s/%s", n.Node, n.Profile)
}

// NodeName returns the "@@<node>" prefix, used as the C1 directory lookup key.
func (n Name) NodeName() string {
	return "@@" + n.Node
}

// IsDevice reports whether this name addresses a device identity.
func (n Name) IsDevice() bool {
	return n.Device != ""
}
