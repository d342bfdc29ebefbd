/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johanix/satsuki/satsuki"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of the app",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("This is %s, version %s, compiled on %v\n",
			satsuki.Globals.App.Name, satsuki.Globals.App.Version, satsuki.Globals.App.Date)
	},
}
