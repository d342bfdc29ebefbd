/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Service ServiceConf
	Dns     DnsConf
	Policy  PolicyConf
	Db      DbConf
	Pdns    PdnsConf
	Log     struct {
		File string
	}
	Internal InternalConf
}

type ServiceConf struct {
	Name    string `validate:"required"`
	Listen  string `validate:"required"`
	ApiKey  string `validate:"required"`
	Debug   *bool
	Verbose *bool
}

type DnsConf struct {
	BaseDomain    string   `validate:"required"`
	InternalNS    []string `validate:"required,min=1"`
	MainNS        string
	Contact       string
	DelegationTTL uint32
}

type PolicyConf struct {
	Reserved     []string
	ReservedFile string
}

type DbConf struct {
	File string `validate:"required"`
}

type PdnsConf struct {
	Base PdnsEndpointConf
	Sub  PdnsEndpointConf
}

type PdnsEndpointConf struct {
	Url      string `validate:"required"`
	ApiKey   string `validate:"required"`
	ServerID string
}

// InternalConf is runtime state hanging off the config, never read from file.
type InternalConf struct {
	CfgFile     string
	UserDB      *UserDB
	Provisioner *Provisioner
	Reserved    map[string]bool
	APIStopCh   chan struct{}
	StopOnce    sync.Once
}

func ValidateConfig(v *viper.Viper, cfgfile string) error {
	var config Config

	if v == nil {
		if err := viper.Unmarshal(&config); err != nil {
			return fmt.Errorf("ValidateConfig: Unmarshal error: %v", err)
		}
	} else {
		if err := v.Unmarshal(&config); err != nil {
			return fmt.Errorf("ValidateConfig: Unmarshal error: %v", err)
		}
	}

	var configsections = make(map[string]interface{}, 5)

	configsections["log"] = config.Log
	configsections["service"] = config.Service
	configsections["db"] = config.Db
	configsections["dns"] = config.Dns
	configsections["pdns"] = config.Pdns

	if err := ValidateBySection(&config, configsections, cfgfile); err != nil {
		return fmt.Errorf("config %q is missing required attributes:\n%v", cfgfile, err)
	}
	return nil
}

func ValidateBySection(config *Config, configsections map[string]interface{}, cfgfile string) error {
	validate := validator.New()

	for k, data := range configsections {
		if Globals.Debug {
			log.Printf("%s: Validating config for %q section\n", strings.ToUpper(Globals.App.Name), k)
		}
		if err := validate.Struct(data); err != nil {
			return fmt.Errorf("%s: Config %s, section %q: missing required attributes:\n%v",
				strings.ToUpper(Globals.App.Name), cfgfile, k, err)
		}
	}
	return nil
}
