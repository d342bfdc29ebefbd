/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package satsuki

const (
	DefaultServerCfgFile = "/etc/satsuki/satsuki-server.yaml"
	DefaultCliCfgFile    = "/etc/satsuki/satsuki-cli.yaml"

	DefaultListenAddress = "0.0.0.0:8080"
	DefaultPdnsServerID  = "localhost"

	// TTL used for the parent delegation NS rrset.
	DefaultDelegationTTL = 300

	// TTL used for the apex NS and SOA of freshly created child zones.
	DefaultApexTTL = 3600

	// Hard limit on the number of user-supplied external nameservers.
	MaxExternalNs = 6

	MinPasswordLength = 8

	TimeLayout = "2006-01-02 15:04:05"
)

// Labels that may never be claimed by a user. The operator can replace
// this set via the policy section of the config.
var DefaultReservedLabels = []string{
	"www", "mail", "ftp", "smtp", "email", "example", "invalid", "localhost", "test",
}
