/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

type PingPost struct {
	Msg   string
	Pings int
}

type PingResponse struct {
	Time       time.Time
	Client     string
	BootTime   time.Time
	Version    string
	ServerHost string
	Daemon     string
	Msg        string
	Pings      int
	Pongs      int
}

var pongs int = 0

func APIping(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {

		log.Printf("APIping: received /ping request from %s.\n", r.RemoteAddr)

		decoder := json.NewDecoder(r.Body)
		var pp PingPost
		err := decoder.Decode(&pp)
		if err != nil {
			log.Println("APIping: error decoding ping post:", err)
		}
		pongs += 1
		hostname, _ := os.Hostname()
		response := PingResponse{
			Time:       time.Now(),
			BootTime:   Globals.App.ServerBootTime,
			Version:    Globals.App.Version,
			Daemon:     Globals.App.Name,
			ServerHost: hostname,
			Client:     r.RemoteAddr,
			Msg:        fmt.Sprintf("pong from %s @ %s", Globals.App.Name, hostname),
			Pings:      pp.Pings + 1,
			Pongs:      pongs,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Printf("writeJSON: error encoding response: %v", err)
	}
}

// writeAPIError maps an error to its HTTP status and the public
// {"error": ...} body. Internals are logged, never sent to the client.
func writeAPIError(w http.ResponseWriter, err error) {
	status := ErrorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("API: internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg})
}
