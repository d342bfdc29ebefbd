/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/johanix/satsuki/satsuki"
)

// Username is the subdomain used for authenticated commands. Set via the
// --user flag, falling back to the cli.user config key.
var Username string

var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Send stop command to satsuki-server",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := SendCommand(satsuki.CommandPost{Command: "stop"})
		if err != nil {
			log.Fatalf("Error from SendCommand: %v", err)
		}
		fmt.Printf("%s\n", resp.Msg)
	},
}

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query satsuki-server for status and counters",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := SendCommand(satsuki.CommandPost{Command: "status"})
		if err != nil {
			log.Fatalf("Error from SendCommand: %v", err)
		}
		fmt.Printf("%s (status: %s)\n", resp.Msg, resp.Status)
	},
}

var UserlistCmd = &cobra.Command{
	Use:   "users",
	Short: "List registered subdomain users",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := SendCommand(satsuki.CommandPost{Command: "userlist"})
		if err != nil {
			log.Fatalf("Error from SendCommand: %v", err)
		}
		if len(resp.Users) == 0 {
			fmt.Printf("No users registered\n")
			return
		}
		var out []string
		if satsuki.Globals.ShowHeaders {
			out = append(out, "Subdomain|NS mode|Created|Last login")
		}
		for _, u := range resp.Users {
			lastlogin := "never"
			if u.LastLogin != nil {
				lastlogin = u.LastLogin.Format(satsuki.TimeLayout)
			}
			out = append(out, fmt.Sprintf("%s|%s|%s|%s", u.Subdomain, u.NsMode,
				u.CreatedAt.Format(satsuki.TimeLayout), lastlogin))
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var MetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Fetch and print satsuki-server metrics",
	Run: func(cmd *cobra.Command, args []string) {
		api := publicClient()
		status, buf, err := api.Get("/metrics")
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if status != http.StatusOK {
			log.Fatalf("Error: unexpected status %d from /metrics", status)
		}
		// Without -v only the satsuki gauges are shown, not the Go runtime noise.
		for _, line := range strings.Split(string(buf), "\n") {
			if satsuki.Globals.Verbose || strings.Contains(line, "satsuki_") {
				fmt.Println(line)
			}
		}
	},
}

// SendCommand posts to the operator /command endpoint and decodes the
// response envelope.
func SendCommand(data satsuki.CommandPost) (satsuki.CommandResponse, error) {
	var cr satsuki.CommandResponse

	if satsuki.Globals.Api == nil {
		log.Fatalf("Error: API client not set up. Missing cli config?")
	}

	bytebuf := new(bytes.Buffer)
	json.NewEncoder(bytebuf).Encode(data)

	status, buf, err := satsuki.Globals.Api.Post("/api/v1/command", bytebuf.Bytes())
	if err != nil {
		return cr, fmt.Errorf("error from api post: %v", err)
	}
	if satsuki.Globals.Verbose {
		fmt.Printf("Status: %d\n", status)
	}

	err = json.Unmarshal(buf, &cr)
	if err != nil {
		return cr, fmt.Errorf("error from unmarshal: %v", err)
	}

	if cr.Error {
		return cr, fmt.Errorf("error from satsuki-server: %s", cr.ErrorMsg)
	}

	return cr, nil
}

func baseUrl() string {
	baseurl := viper.GetString("server.baseurl")
	if baseurl == "" {
		log.Fatalf("Error: cli config contains no server.baseurl")
	}
	return baseurl
}

// publicClient talks to the unauthenticated endpoints.
func publicClient() *satsuki.ApiClient {
	return satsuki.NewClient("satsuki-public", baseUrl(), "", "",
		satsuki.Globals.Verbose, satsuki.Globals.Debug)
}

// userClient talks to the Basic auth endpoints as the selected user.
func userClient() *satsuki.ApiClient {
	username := Username
	if username == "" {
		username = viper.GetString("cli.user")
	}
	if username == "" {
		log.Fatalf("Error: no user specified (use --user or set cli.user in config)")
	}

	api := satsuki.NewClient("satsuki-user", baseUrl(), "", "",
		satsuki.Globals.Verbose, satsuki.Globals.Debug)
	api.SetBasicAuth(username, promptPassword(fmt.Sprintf("Password for %s: ", username)))
	return api
}

// promptPassword reads a password without echo. The cli.password config
// key bypasses the prompt for scripted use.
func promptPassword(prompt string) string {
	if pw := viper.GetString("cli.password"); pw != "" {
		return pw
	}
	fmt.Fprintf(os.Stderr, "%s", prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("Error reading password: %v", err)
	}
	return string(pw)
}

// expectStatus decodes the server's {"error": ...} body into an error
// for any unexpected HTTP status.
func expectStatus(want, got int, buf []byte) error {
	if got == want {
		return nil
	}
	var er satsuki.ErrorResponse
	if err := json.Unmarshal(buf, &er); err == nil && er.Error != "" {
		return fmt.Errorf("%s (status %d)", er.Error, got)
	}
	return fmt.Errorf("unexpected status %d from server", got)
}
