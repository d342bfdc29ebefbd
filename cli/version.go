/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package main

// Overwritten at build time via -ldflags.
var (
	appName    = "satsuki-cli"
	appVersion = "v0.9.0"
	appDate    = "unknown"
)
