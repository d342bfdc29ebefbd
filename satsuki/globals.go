/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package satsuki

import (
	"time"
)

type AppDetails struct {
	Name             string
	Version          string
	Date             string
	ServerBootTime   time.Time
	ServerConfigTime time.Time
}

type GlobalStuff struct {
	App         AppDetails
	Verbose     bool
	Debug       bool
	ShowHeaders bool // -H in various CLI commands
	PingCount   int
	Api         *ApiClient
}

var Globals = GlobalStuff{
	Verbose: false,
	Debug:   false,
}
