/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/johanix/satsuki/satsuki"
)

func mainloop(conf *satsuki.Config) {
	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	hupper := make(chan os.Signal, 1)
	signal.Notify(hupper, syscall.SIGHUP)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		for {
			select {
			case <-exit:
				log.Println("mainloop: Exit signal received. Cleaning up.")
				wg.Done()
			case <-hupper:
				log.Println("mainloop: SIGHUP received. Reloading config.")
				if err := satsuki.ParseConfig(conf, true); err != nil {
					log.Printf("mainloop: config reload failed: %v", err)
				}
			case <-conf.Internal.APIStopCh:
				log.Println("mainloop: Stop command received. Cleaning up.")
				wg.Done()
			}
		}
	}()
	wg.Wait()

	if err := conf.Internal.UserDB.Close(); err != nil {
		log.Printf("mainloop: error closing user db: %v", err)
	}
	fmt.Println("mainloop: leaving signal dispatcher")
}

func main() {
	var conf satsuki.Config

	satsuki.Globals.App.Name = appName
	satsuki.Globals.App.Version = appVersion
	satsuki.Globals.App.Date = appDate
	satsuki.Globals.App.ServerBootTime = time.Now()
	satsuki.Globals.App.ServerConfigTime = time.Now()

	flag.StringVar(&conf.Internal.CfgFile, "config", "",
		fmt.Sprintf("config file (default is %s)", satsuki.DefaultServerCfgFile))
	flag.BoolVarP(&satsuki.Globals.Debug, "debug", "d", false, "Debug mode")
	flag.BoolVarP(&satsuki.Globals.Verbose, "verbose", "v", false, "Verbose mode")
	flag.Parse()

	if err := satsuki.ParseConfig(&conf, false); err != nil {
		log.Fatalf("Error parsing config: %v", err)
	}

	satsuki.SetupLogging(&conf)
	fmt.Printf("%s version %s starting.\n", appName, appVersion)

	conf.Internal.Provisioner = satsuki.SetupProvisioner(&conf)

	if err := satsuki.SetupMetrics(&conf); err != nil {
		log.Fatalf("Error setting up metrics: %v", err)
	}

	conf.Internal.APIStopCh = make(chan struct{})

	router, err := satsuki.SetupRouter(&conf)
	if err != nil {
		log.Fatalf("Error setting up API router: %v", err)
	}
	if err := satsuki.APIdispatcher(&conf, router, conf.Internal.APIStopCh); err != nil {
		log.Fatalf("Error from APIdispatcher: %v", err)
	}

	mainloop(&conf)
}
