/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package main

import (
	"github.com/johanix/satsuki/cli/cmd"
	"github.com/johanix/satsuki/satsuki"
)

func main() {
	satsuki.Globals.App.Name = appName
	satsuki.Globals.App.Version = appVersion
	satsuki.Globals.App.Date = appDate
	cmd.Execute()
}
