/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

func SetupLogging(conf *Config) {
	logfile := conf.Log.File
	if logfile == "" {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.Lshortfile | log.Ltime)
		return
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:   logfile,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     14,
	})
	log.SetFlags(log.Lshortfile | log.Ltime)
	log.Printf("SetupLogging: logging to %s", logfile)
}

// SetupCliLogging keeps client-side log output on stderr so that command
// results on stdout stay clean enough to pipe.
func SetupCliLogging() {
	log.SetOutput(os.Stderr)
	if Globals.Debug {
		log.SetFlags(log.Lshortfile | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}
