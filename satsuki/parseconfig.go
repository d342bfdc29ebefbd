/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ReservedPolicy is the shape of an optional standalone policy file
// (key policy.reservedfile) listing labels users may not claim.
type ReservedPolicy struct {
	Reserved []string `yaml:"reserved"`
}

func ParseConfig(conf *Config, reload bool) error {
	if Globals.Debug {
		log.Printf("Enter ParseConfig")
	}
	cfgfile := conf.Internal.CfgFile
	if cfgfile == "" {
		cfgfile = DefaultServerCfgFile
	}
	viper.SetConfigFile(cfgfile)

	viper.SetDefault("service.listen", DefaultListenAddress)
	viper.SetDefault("pdns.base.serverid", DefaultPdnsServerID)
	viper.SetDefault("pdns.sub.serverid", DefaultPdnsServerID)

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else {
		log.Fatalf("Could not load config %s: Error: %v", cfgfile, err)
	}

	err := viper.Unmarshal(&conf)
	if err != nil {
		log.Fatalf("Error unmarshalling config into struct: %v", err)
	}

	if err := ValidateConfig(nil, cfgfile); err != nil {
		return err
	}

	if err := conf.NormalizeDnsConf(); err != nil {
		return err
	}

	if err := conf.SetupReservedLabels(); err != nil {
		return err
	}

	udb := conf.Internal.UserDB
	if !reload || udb == nil {
		udb, err := NewUserDB(conf.Db.File)
		if err != nil {
			log.Fatalf("Error from NewUserDB: %v", err)
		}
		conf.Internal.UserDB = udb
	}

	if Globals.Debug {
		log.Printf("ParseConfig: exit")
	}
	return nil
}

// NormalizeDnsConf applies the canonical forms the rest of the code relies
// on: base domain without trailing dot, nameserver FQDNs with exactly one.
func (conf *Config) NormalizeDnsConf() error {
	conf.Dns.BaseDomain = strings.TrimRight(strings.TrimSpace(conf.Dns.BaseDomain), ".")
	if conf.Dns.BaseDomain == "" {
		return fmt.Errorf("NormalizeDnsConf: dns.basedomain must not be empty")
	}

	for i, ns := range conf.Dns.InternalNS {
		fqdn, err := NormalizeFqdn(ns)
		if err != nil {
			return fmt.Errorf("NormalizeDnsConf: invalid dns.internalns value %q: %v", ns, err)
		}
		conf.Dns.InternalNS[i] = fqdn
	}

	if conf.Dns.MainNS == "" {
		conf.Dns.MainNS = conf.Dns.InternalNS[0]
	} else {
		fqdn, err := NormalizeFqdn(conf.Dns.MainNS)
		if err != nil {
			return fmt.Errorf("NormalizeDnsConf: invalid dns.mainns value %q: %v", conf.Dns.MainNS, err)
		}
		conf.Dns.MainNS = fqdn
	}

	if conf.Dns.Contact == "" {
		conf.Dns.Contact = "hostmaster." + conf.Dns.BaseDomain + "."
	} else {
		fqdn, err := NormalizeFqdn(conf.Dns.Contact)
		if err != nil {
			return fmt.Errorf("NormalizeDnsConf: invalid dns.contact value %q: %v", conf.Dns.Contact, err)
		}
		conf.Dns.Contact = fqdn
	}

	if conf.Dns.DelegationTTL == 0 {
		conf.Dns.DelegationTTL = DefaultDelegationTTL
	}
	return nil
}

// SetupReservedLabels assembles the effective reserved-label set from the
// built-in defaults, the policy.reserved list (which replaces the defaults
// when present) and the optional policy.reservedfile (which is merged in).
func (conf *Config) SetupReservedLabels() error {
	labels := DefaultReservedLabels
	if len(conf.Policy.Reserved) > 0 {
		labels = conf.Policy.Reserved
	}

	reserved := make(map[string]bool, len(labels))
	for _, l := range labels {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			reserved[l] = true
		}
	}

	if conf.Policy.ReservedFile != "" {
		data, err := os.ReadFile(conf.Policy.ReservedFile)
		if err != nil {
			return fmt.Errorf("SetupReservedLabels: error reading policy file %q: %v",
				conf.Policy.ReservedFile, err)
		}
		var rp ReservedPolicy
		if err := yaml.Unmarshal(data, &rp); err != nil {
			return fmt.Errorf("SetupReservedLabels: error parsing policy file %q: %v",
				conf.Policy.ReservedFile, err)
		}
		for _, l := range rp.Reserved {
			l = strings.ToLower(strings.TrimSpace(l))
			if l != "" {
				reserved[l] = true
			}
		}
		log.Printf("SetupReservedLabels: merged %d labels from policy file %s",
			len(rp.Reserved), conf.Policy.ReservedFile)
	}

	conf.Internal.Reserved = reserved
	return nil
}
