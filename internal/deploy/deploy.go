// Package deploy integrates the gateway with the host: dependency checks
// and the systemd units that make the configuration survive reboots.
package deploy

import (
	"github.com/akosykh/vpngw/internal/platform"
)

// Dependency describes a required system binary.
type Dependency struct {
	Name   string // human-readable name
	Binary string // binary to check in PATH
}

// requiredDeps lists the host tools the gateway shells out to. The VPN
// client binary is configurable and checked separately.
var requiredDeps = []Dependency{
	{Name: "iptables", Binary: "iptables"},
	{Name: "iptables-save", Binary: "iptables-save"},
	{Name: "sysctl", Binary: "sysctl"},
	{Name: "systemctl", Binary: "systemctl"},
}

// CheckDependencies returns the required binaries missing from PATH.
func CheckDependencies() []Dependency {
	var missing []Dependency
	for _, dep := range requiredDeps {
		if !platform.BinaryExists(dep.Binary) {
			missing = append(missing, dep)
		}
	}
	return missing
}
