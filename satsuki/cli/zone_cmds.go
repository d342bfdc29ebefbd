/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/johanix/satsuki/satsuki"
)

var addPrio int

var ZoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Prefix command, not useable by itself",
}

var zoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the records in your delegated zone",
	Run: func(cmd *cobra.Command, args []string) {
		records := fetchZone(userClient())
		if len(records) == 0 {
			fmt.Printf("Zone is empty\n")
			return
		}
		var out []string
		if satsuki.Globals.ShowHeaders {
			out = append(out, "Name|Type|TTL|Prio|Content")
		}
		for _, rec := range records {
			prio := ""
			if rec.Priority != nil {
				prio = strconv.Itoa(int(*rec.Priority))
			}
			out = append(out, fmt.Sprintf("%s|%s|%d|%s|%s",
				rec.Name, rec.Rrtype, rec.Ttl, prio, rec.Content))
		}
		fmt.Printf("%s\n", columnize.SimpleFormat(out))
	},
}

var zoneSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Replace your zone contents with the records in a JSON file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			log.Fatal("zone set needs exactly one argument: a JSON file with the new records")
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Error reading %s: %v", args[0], err)
		}
		var records []satsuki.ZoneRecord
		if err := json.Unmarshal(data, &records); err != nil {
			log.Fatalf("Error parsing %s: %v", args[0], err)
		}

		putZone(userClient(), records)
		fmt.Printf("Zone replaced (%d records)\n", len(records))
	},
}

var zoneAddCmd = &cobra.Command{
	Use:   "add <name> <type> <ttl> <content>...",
	Short: "Add a single record to your zone (read-modify-write)",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 4 {
			log.Fatal("zone add needs: <name> <type> <ttl> <content>...")
		}
		ttl, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			log.Fatalf("Error: bad TTL %q: %v", args[2], err)
		}
		rec := satsuki.ZoneRecord{
			Name:    args[0],
			Rrtype:  args[1],
			Ttl:     uint32(ttl),
			Content: strings.Join(args[3:], " "),
		}
		if addPrio >= 0 {
			prio := uint16(addPrio)
			rec.Priority = &prio
		}

		api := userClient()
		records := append(fetchZone(api), rec)
		putZone(api, records)
		fmt.Printf("Record added, zone now has %d records\n", len(records))
	},
}

var NsCmd = &cobra.Command{
	Use:   "ns",
	Short: "Prefix command, not useable by itself",
}

var nsInternalCmd = &cobra.Command{
	Use:   "internal",
	Short: "Point your delegation back at the built-in nameservers",
	Run: func(cmd *cobra.Command, args []string) {
		api := userClient()
		status, buf, err := api.Post("/api/ns-mode/internal", nil)
		if err != nil {
			log.Fatalf("Error from api post: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Switch failed: %v", err)
		}
		fmt.Printf("Delegation switched to internal nameservers\n")
	},
}

var nsExternalCmd = &cobra.Command{
	Use:   "external <ns>...",
	Short: "Point your delegation at your own nameservers",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			log.Fatal("external needs at least one nameserver name")
		}
		api := userClient()
		data, _ := json.Marshal(satsuki.NsModePost{Ns: args})
		status, buf, err := api.Post("/api/ns-mode/external", data)
		if err != nil {
			log.Fatalf("Error from api post: %v", err)
		}
		if err := expectStatus(http.StatusOK, status, buf); err != nil {
			log.Fatalf("Switch failed: %v", err)
		}
		fmt.Printf("Delegation switched to external nameservers %s\n", strings.Join(args, ", "))
	},
}

func init() {
	ZoneCmd.AddCommand(zoneListCmd, zoneSetCmd, zoneAddCmd)
	NsCmd.AddCommand(nsInternalCmd, nsExternalCmd)

	zoneAddCmd.Flags().IntVarP(&addPrio, "prio", "p", -1, "priority for MX and SRV records")
}

func fetchZone(api *satsuki.ApiClient) []satsuki.ZoneRecord {
	status, buf, err := api.Get("/api/zone")
	if err != nil {
		log.Fatalf("Error from api get: %v", err)
	}
	if err := expectStatus(http.StatusOK, status, buf); err != nil {
		log.Fatalf("Error: %v", err)
	}
	var records []satsuki.ZoneRecord
	if err := json.Unmarshal(buf, &records); err != nil {
		log.Fatalf("Error from unmarshal: %v", err)
	}
	return records
}

func putZone(api *satsuki.ApiClient, records []satsuki.ZoneRecord) {
	body, _ := json.Marshal(satsuki.ZoneUpdatePost{Records: records})
	status, buf, err := api.Put("/api/zone", body)
	if err != nil {
		log.Fatalf("Error from api put: %v", err)
	}
	if err := expectStatus(http.StatusOK, status, buf); err != nil {
		log.Fatalf("Zone update failed: %v", err)
	}
}
