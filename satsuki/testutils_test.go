/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

func newTestConfig() *Config {
	conf := &Config{}
	conf.Service.Name = "satsuki-server"
	conf.Service.Listen = "127.0.0.1:8080"
	conf.Service.ApiKey = "testapikey"
	conf.Dns.BaseDomain = "example.com"
	conf.Dns.InternalNS = []string{"ns1.example.net.", "ns2.example.net."}
	conf.Dns.MainNS = "ns1.example.net."
	conf.Dns.Contact = "hostmaster.example.com."
	conf.Dns.DelegationTTL = 300
	conf.Db.File = ":memory:"

	reserved := make(map[string]bool)
	for _, l := range DefaultReservedLabels {
		reserved[l] = true
	}
	conf.Internal.Reserved = reserved
	return conf
}
