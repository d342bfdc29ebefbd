/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"errors"
	"strings"
	"testing"

	"github.com/joeig/go-powerdns/v3"
)

func TestNormalizeFqdn(t *testing.T) {
	good := []struct {
		in   string
		want string
	}{
		{"example.com", "example.com."},
		{"Example.COM.", "example.com."},
		{" ns1.example.net.. ", "ns1.example.net."},
		{"_acme-challenge.alice.example.com", "_acme-challenge.alice.example.com."},
		{"*.alice.example.com.", "*.alice.example.com."},
		{"xn--dm-fka.example.com", "xn--dm-fka.example.com."},
	}
	for _, tc := range good {
		got, err := NormalizeFqdn(tc.in)
		if err != nil {
			t.Errorf("NormalizeFqdn(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeFqdn(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	bad := []string{
		"",
		".",
		"bad..name",
		"-bad.example.com",
		"bad-.example.com",
		"white space.example.com",
		strings.Repeat("a", 63) + "x.example.com",
		strings.Repeat("abcdefgh.", 32) + "com",
	}
	for _, in := range bad {
		if _, err := NormalizeFqdn(in); err == nil {
			t.Errorf("NormalizeFqdn(%q) accepted invalid name", in)
		} else if !errors.Is(err, ErrValidation) {
			t.Errorf("NormalizeFqdn(%q): error is not a validation error: %v", in, err)
		}
	}
}

func TestIsApexAndInZone(t *testing.T) {
	zone := "alice.example.com."
	if !IsApex("alice.example.com.", zone) {
		t.Errorf("IsApex failed on identical name")
	}
	if !IsApex("ALICE.Example.Com", zone) {
		t.Errorf("IsApex is not case-insensitive")
	}
	if IsApex("www.alice.example.com.", zone) {
		t.Errorf("IsApex matched a subdomain")
	}

	if !InZone("alice.example.com.", zone) {
		t.Errorf("InZone failed on the apex itself")
	}
	if !InZone("www.alice.example.com.", zone) {
		t.Errorf("InZone failed on a child name")
	}
	if InZone("malice.example.com.", zone) {
		t.Errorf("InZone matched a sibling zone")
	}
	if InZone("alice.example.com.evil.net.", zone) {
		t.Errorf("InZone matched a suffix-spoofed name")
	}
}

func TestBuildZoneUpdate(t *testing.T) {
	zone := "alice.example.com."

	t.Run("grouping", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "www.alice.example.com", Rrtype: "a", Ttl: 300, Content: "192.0.2.1"},
			{Name: "WWW.alice.example.com.", Rrtype: "A", Ttl: 300, Content: "192.0.2.2"},
			{Name: "alice.example.com.", Rrtype: "TXT", Ttl: 600, Content: "\"hello\""},
		}
		groups, err := BuildZoneUpdate(records, zone)
		if err != nil {
			t.Fatalf("BuildZoneUpdate failed: %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("expected 2 groups, got %d", len(groups))
		}
		if groups[0].Name != "www.alice.example.com." || groups[0].Rtype != "A" {
			t.Errorf("unexpected first group: %+v", groups[0])
		}
		if len(groups[0].Content) != 2 {
			t.Errorf("expected 2 records in A group, got %d", len(groups[0].Content))
		}
	})

	t.Run("mixed ttl", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "www.alice.example.com.", Rrtype: "A", Ttl: 300, Content: "192.0.2.1"},
			{Name: "www.alice.example.com.", Rrtype: "A", Ttl: 600, Content: "192.0.2.2"},
		}
		_, err := BuildZoneUpdate(records, zone)
		if err == nil || !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error on mixed TTL, got %v", err)
		}
	})

	t.Run("outside zone", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "bob.example.com.", Rrtype: "A", Ttl: 300, Content: "192.0.2.1"},
		}
		_, err := BuildZoneUpdate(records, zone)
		if err == nil || !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error on foreign owner, got %v", err)
		}
	})

	t.Run("apex ns forbidden", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "alice.example.com.", Rrtype: "NS", Ttl: 300, Content: "ns9.x."},
		}
		_, err := BuildZoneUpdate(records, zone)
		if err == nil || !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error on apex NS, got %v", err)
		}
	})

	t.Run("apex soa forbidden", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "alice.example.com.", Rrtype: "soa", Ttl: 300, Content: "ns1.example.net. hostmaster.example.com. 1 2 3 4 5"},
		}
		_, err := BuildZoneUpdate(records, zone)
		if err == nil || !errors.Is(err, ErrValidation) {
			t.Errorf("expected validation error on apex SOA, got %v", err)
		}
	})

	t.Run("non-apex ns allowed", func(t *testing.T) {
		records := []ZoneRecord{
			{Name: "sub.alice.example.com.", Rrtype: "NS", Ttl: 300, Content: "ns1.elsewhere.net."},
		}
		if _, err := BuildZoneUpdate(records, zone); err != nil {
			t.Errorf("BuildZoneUpdate rejected a non-apex NS: %v", err)
		}
	})

	t.Run("mx priority joined", func(t *testing.T) {
		prio := uint16(10)
		records := []ZoneRecord{
			{Name: "alice.example.com.", Rrtype: "MX", Ttl: 300, Content: "mail.alice.example.com.", Priority: &prio},
		}
		groups, err := BuildZoneUpdate(records, zone)
		if err != nil {
			t.Fatalf("BuildZoneUpdate failed: %v", err)
		}
		if groups[0].Content[0] != "10 mail.alice.example.com." {
			t.Errorf("priority not joined into rdata: %q", groups[0].Content[0])
		}
	})
}

func TestSplitPriority(t *testing.T) {
	prio, content := SplitPriority("MX", "10 mail.example.com.")
	if prio == nil || *prio != 10 || content != "mail.example.com." {
		t.Errorf("SplitPriority MX: got %v %q", prio, content)
	}

	prio, content = SplitPriority("SRV", "5 10 5060 sip.example.com.")
	if prio == nil || *prio != 5 || content != "10 5060 sip.example.com." {
		t.Errorf("SplitPriority SRV: got %v %q", prio, content)
	}

	prio, content = SplitPriority("TXT", "10 not a priority")
	if prio != nil || content != "10 not a priority" {
		t.Errorf("SplitPriority TXT should pass through: got %v %q", prio, content)
	}

	prio, content = SplitPriority("MX", "mail.example.com.")
	if prio != nil || content != "mail.example.com." {
		t.Errorf("SplitPriority malformed MX should pass through: got %v %q", prio, content)
	}
}

func testRRset(name, rtype string, ttl uint32, contents ...string) powerdns.RRset {
	rt := powerdns.RRType(rtype)
	rr := powerdns.RRset{
		Name: &name,
		Type: &rt,
		TTL:  &ttl,
	}
	for i := range contents {
		rr.Records = append(rr.Records, powerdns.Record{Content: &contents[i]})
	}
	return rr
}

func TestFlattenRRsets(t *testing.T) {
	zone := "alice.example.com."
	rrsets := []powerdns.RRset{
		testRRset("alice.example.com.", "NS", 300, "ns1.example.net.", "ns2.example.net."),
		testRRset("alice.example.com.", "SOA", 300, "ns1.example.net. hostmaster.example.com. 1 2 3 4 5"),
		testRRset("www.alice.example.com.", "A", 300, "192.0.2.2", "192.0.2.1"),
		testRRset("alice.example.com.", "MX", 600, "10 mail.alice.example.com."),
	}

	records := FlattenRRsets(rrsets, zone)
	if len(records) != 3 {
		t.Fatalf("expected 3 visible records, got %d: %+v", len(records), records)
	}
	for _, r := range records {
		if r.Rrtype == "NS" || r.Rrtype == "SOA" {
			t.Errorf("apex %s leaked through FlattenRRsets", r.Rrtype)
		}
	}

	if records[0].Rrtype != "MX" {
		t.Errorf("expected MX first after sorting, got %+v", records[0])
	}
	if records[0].Priority == nil || *records[0].Priority != 10 {
		t.Errorf("MX priority not split: %+v", records[0])
	}
	if records[0].Content != "mail.alice.example.com." {
		t.Errorf("MX content not split: %q", records[0].Content)
	}

	// A records sorted by content
	if records[1].Content != "192.0.2.1" || records[2].Content != "192.0.2.2" {
		t.Errorf("A records not sorted: %+v", records[1:])
	}
}

func TestBuildDelegations(t *testing.T) {
	disabled := true
	rrsets := []powerdns.RRset{
		testRRset("example.com.", "SOA", 300, "ns1.example.net. hostmaster.example.com. 1 2 3 4 5"),
		testRRset("example.com.", "NS", 300, "ns2.example.net.", "ns1.example.net."),
		testRRset("bob.example.com.", "NS", 300, "ns1.example.net.", "ns2.example.net."),
		testRRset("alice.example.com.", "NS", 300, "ns1.custom.", "ns2.custom."),
		testRRset("www.example.com.", "A", 300, "192.0.2.1"),
	}
	rrsets[3].Records = append(rrsets[3].Records, powerdns.Record{
		Content:  ptr("ns3.custom."),
		Disabled: &disabled,
	})

	entries := BuildDelegations(rrsets)
	if len(entries) != 3 {
		t.Fatalf("expected 3 NS entries, got %d", len(entries))
	}
	if entries[0].Name != "alice.example.com." ||
		entries[1].Name != "bob.example.com." ||
		entries[2].Name != "example.com." {
		t.Errorf("entries not sorted by name: %+v", entries)
	}
	if len(entries[0].Records) != 2 {
		t.Errorf("disabled record not skipped: %+v", entries[0].Records)
	}
	if entries[2].Records[0] != "ns1.example.net." {
		t.Errorf("records not sorted: %+v", entries[2].Records)
	}
}

func TestApexSoaRdata(t *testing.T) {
	rrsets := []powerdns.RRset{
		testRRset("example.com.", "NS", 300, "ns1.example.net."),
		testRRset("example.com.", "SOA", 300, "ns1.example.net. hostmaster.example.com. 1 10800 3600 604800 3600"),
	}
	soa, err := ApexSoaRdata(rrsets, "example.com.")
	if err != nil {
		t.Fatalf("ApexSoaRdata failed: %v", err)
	}
	if soa != "ns1.example.net. hostmaster.example.com. 1 10800 3600 604800 3600" {
		t.Errorf("unexpected SOA rdata: %q", soa)
	}

	if _, err := ApexSoaRdata(rrsets[:1], "example.com."); err == nil {
		t.Errorf("expected error when no SOA present")
	}
}
