package platform

const (
	// Config.
	ConfigDir  = "/etc/vpngw"
	ConfigFile = ConfigDir + "/config.yaml"

	// Firewall persistence (consumed by iptables-restore / netfilter-persistent).
	RulesDir  = "/etc/iptables"
	RulesFile = RulesDir + "/rules.v4"

	// Host files rewritten by the gateway.
	ResolvConfFile = "/etc/resolv.conf"
	SysctlConfFile = "/etc/sysctl.conf"

	// systemd integration.
	SystemdDir    = "/etc/systemd/system"
	SetupUnitName = "vpngw-setup.service"
	WatchUnitName = "vpngw-watch.service"
	SetupUnitFile = SystemdDir + "/" + SetupUnitName
	WatchUnitFile = SystemdDir + "/" + WatchUnitName

	// Daemon.
	PidFile    = "/run/vpngw.pid"
	BinaryPath = "/usr/local/bin/vpngw"
)
