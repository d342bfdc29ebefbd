/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johanix/satsuki/satsuki"
	cli "github.com/johanix/satsuki/satsuki/cli"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "satsuki-cli",
	Short: "satsuki-cli is a tool used to interact with satsuki-server via its REST API",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig, initApi)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", satsuki.DefaultCliCfgFile))
	rootCmd.PersistentFlags().StringVarP(&cli.Username, "user", "u", "",
		"subdomain user for authenticated commands")

	rootCmd.PersistentFlags().BoolVarP(&satsuki.Globals.Debug, "debug", "d",
		false, "debug output")
	rootCmd.PersistentFlags().BoolVarP(&satsuki.Globals.Verbose, "verbose", "v",
		false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&satsuki.Globals.ShowHeaders, "headers", "H",
		false, "show headers")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(satsuki.DefaultCliCfgFile)
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		if satsuki.Globals.Verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		log.Fatalf("Could not load config %s: Error: %v", viper.ConfigFileUsed(), err)
	}

	satsuki.SetupCliLogging()
}

func initApi() {
	baseurl := viper.GetString("server.baseurl")
	if baseurl == "" {
		log.Fatalf("initApi: cli config contains no server.baseurl. Exiting.")
	}

	satsuki.Globals.Api = satsuki.NewClient("satsuki-cli", baseurl,
		viper.GetString("server.apikey"), "X-API-Key",
		satsuki.Globals.Verbose, satsuki.Globals.Debug)
	if satsuki.Globals.Debug {
		fmt.Printf("API client set up (baseurl: %q).\n", satsuki.Globals.Api.BaseUrl)
	}
}
