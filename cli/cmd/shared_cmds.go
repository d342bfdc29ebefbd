/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	cli "github.com/johanix/satsuki/satsuki/cli"
)

func init() {
	// From ../satsuki/cli/ping.go:
	rootCmd.AddCommand(cli.PingCmd)

	// From ../satsuki/cli/commands.go:
	rootCmd.AddCommand(cli.StopCmd, cli.StatusCmd, cli.UserlistCmd, cli.MetricsCmd)

	// From ../satsuki/cli/user_cmds.go:
	rootCmd.AddCommand(cli.AboutCmd, cli.CheckCmd, cli.DirCmd, cli.SoaCmd)
	rootCmd.AddCommand(cli.SignupCmd, cli.SigninCmd, cli.ProfileCmd, cli.PasswdCmd)

	// From ../satsuki/cli/zone_cmds.go:
	rootCmd.AddCommand(cli.ZoneCmd, cli.NsCmd)

	rootCmd.AddCommand(cli.VersionCmd)
}
