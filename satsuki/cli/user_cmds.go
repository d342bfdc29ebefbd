/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/johanix/satsuki/satsuki"
)

var AboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Show the parent zone this service manages",
	Run: func(cmd *cobra.Command, args []string) {
		api := publicClient()
		status, buf, err := api.Get("/api/about")
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Error: %v", err)
		}
		var ar satsuki.AboutResponse
		if err := json.Unmarshal(buf, &ar); err != nil {
			log.Fatalf("Error from unmarshal: %v", err)
		}
		fmt.Printf("Base domain: %s\n", ar.BaseDomain)
	},
}

var CheckCmd = &cobra.Command{
	Use:   "check <subdomain>",
	Short: "Check whether a subdomain label is still available",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("check needs exactly one argument: the subdomain label")
		}

		api := publicClient()
		status, buf, err := api.Get("/api/subdomain/check?name=" + url.QueryEscape(args[0]))
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Error: %v", err)
		}
		var cr satsuki.CheckResponse
		if err := json.Unmarshal(buf, &cr); err != nil {
			log.Fatalf("Error from unmarshal: %v", err)
		}
		if cr.Available {
			fmt.Printf("%s: available\n", args[0])
		} else {
			fmt.Printf("%s: not available\n", args[0])
		}
	},
}

var DirCmd = &cobra.Command{
	Use:   "dir",
	Short: "List all delegations in the parent zone",
	Run: func(cmd *cobra.Command, args []string) {
		api := publicClient()
		status, buf, err := api.Get("/api/subdomain/list")
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Error: %v", err)
		}
		var entries []satsuki.DelegationEntry
		if err := json.Unmarshal(buf, &entries); err != nil {
			log.Fatalf("Error from unmarshal: %v", err)
		}
		if len(entries) == 0 {
			fmt.Printf("No delegations found\n")
			return
		}
		var out []string
		if satsuki.Globals.ShowHeaders {
			out = append(out, "Name|Nameservers")
		}
		for _, e := range entries {
			out = append(out, fmt.Sprintf("%s|%s", e.Name, strings.Join(e.Records, ", ")))
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var SoaCmd = &cobra.Command{
	Use:   "soa",
	Short: "Show the parent zone apex SOA",
	Run: func(cmd *cobra.Command, args []string) {
		api := publicClient()
		status, buf, err := api.Get("/api/subdomain/soa")
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Error: %v", err)
		}
		var sr satsuki.SoaResponse
		if err := json.Unmarshal(buf, &sr); err != nil {
			log.Fatalf("Error from unmarshal: %v", err)
		}
		fmt.Printf("%s\n", sr.Soa)
	},
}

var SignupCmd = &cobra.Command{
	Use:   "signup <subdomain>",
	Short: "Claim a subdomain label and get a delegated zone",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("signup needs exactly one argument: the subdomain label")
		}
		label := args[0]

		pw := promptPassword("Password: ")
		again := promptPassword("Repeat password: ")
		if pw != again {
			log.Fatalf("Error: passwords do not match")
		}

		api := publicClient()
		data, _ := json.Marshal(satsuki.SignupPost{Subdomain: label, Password: pw})
		status, buf, err := api.Post("/api/signup", data)
		if err != nil {
			log.Fatalf("Error from api post: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Signup failed: %v", err)
		}
		fmt.Printf("Subdomain %s registered\n", label)
	},
}

var SigninCmd = &cobra.Command{
	Use:   "signin",
	Short: "Verify credentials against satsuki-server",
	Run: func(cmd *cobra.Command, args []string) {
		username := Username
		if username == "" {
			username = viper.GetString("cli.user")
		}
		if username == "" {
			log.Fatalf("Error: no user specified (use --user or set cli.user in config)")
		}
		pw := promptPassword(fmt.Sprintf("Password for %s: ", username))

		api := publicClient()
		data, _ := json.Marshal(satsuki.SigninPost{Subdomain: username, Password: pw})
		status, buf, err := api.Post("/api/signin", data)
		if err != nil {
			log.Fatalf("Error from api post: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Signin failed: %v", err)
		}
		fmt.Printf("Credentials for %s verified\n", username)
	},
}

var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the signed-in user's profile",
	Run: func(cmd *cobra.Command, args []string) {
		api := userClient()
		status, buf, err := api.Get("/api/profile")
		if err != nil {
			log.Fatalf("Error from api get: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Error: %v", err)
		}
		var pr satsuki.ProfileResponse
		if err := json.Unmarshal(buf, &pr); err != nil {
			log.Fatalf("Error from unmarshal: %v", err)
		}

		fmt.Printf("Subdomain: %s\n", pr.Subdomain)
		if !pr.ExternalNs {
			fmt.Printf("NS mode: internal\n")
			return
		}
		fmt.Printf("NS mode: external\n")
		for i, ns := range []*string{pr.ExternalNs1, pr.ExternalNs2, pr.ExternalNs3,
			pr.ExternalNs4, pr.ExternalNs5, pr.ExternalNs6} {
			if ns != nil {
				fmt.Printf("NS %d: %s\n", i+1, *ns)
			}
		}
	},
}

var PasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the signed-in user's password",
	Run: func(cmd *cobra.Command, args []string) {
		username := Username
		if username == "" {
			username = viper.GetString("cli.user")
		}
		if username == "" {
			log.Fatalf("Error: no user specified (use --user or set cli.user in config)")
		}

		current := promptPassword(fmt.Sprintf("Current password for %s: ", username))
		newpw := promptPassword("New password: ")
		again := promptPassword("Repeat new password: ")
		if newpw != again {
			log.Fatalf("Error: passwords do not match")
		}

		api := satsuki.NewClient("satsuki-user", baseUrl(), "", "",
			satsuki.Globals.Verbose, satsuki.Globals.Debug)
		api.SetBasicAuth(username, current)

		data, _ := json.Marshal(satsuki.PasswordChangePost{
			CurrentPassword: current,
			NewPassword:     newpw,
		})
		status, buf, err := api.Post("/api/password/change", data)
		if err != nil {
			log.Fatalf("Error from api post: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Password change failed: %v", err)
		}
		fmt.Printf("Password changed\n")
	},
}
