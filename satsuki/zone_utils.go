/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joeig/go-powerdns/v3"
	"github.com/miekg/dns"
)

// NormalizeFqdn canonicalizes a domain name: trimmed, lowercased, exactly
// one trailing dot. Every label must be LDH (plus '_' for service labels
// and a sole '*' for wildcards).
func NormalizeFqdn(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".")
	if s == "" {
		return "", Errf(ErrValidation, "domain name is empty")
	}
	if len(s) > 253 {
		return "", Errf(ErrValidation, "domain name too long (max 253 characters)")
	}
	for _, label := range strings.Split(s, ".") {
		if err := checkHostLabel(label); err != nil {
			return "", err
		}
	}
	return dns.Fqdn(s), nil
}

func checkHostLabel(label string) error {
	if label == "" {
		return Errf(ErrValidation, "domain name contains an empty label")
	}
	if label == "*" {
		return nil
	}
	if len(label) > 63 {
		return Errf(ErrValidation, "domain label %q too long (max 63 characters)", label)
	}
	for _, c := range label {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return Errf(ErrValidation, "domain label %q contains invalid characters (only a-z, 0-9, '-' and '_' allowed)", label)
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return Errf(ErrValidation, "domain label %q must not start or end with '-'", label)
	}
	return nil
}

// ParentZoneName is the operator zone that holds the delegations.
func (conf *Config) ParentZoneName() string {
	return dns.Fqdn(conf.Dns.BaseDomain)
}

// UserZoneName is the child zone claimed by a label.
func (conf *Config) UserZoneName(label string) string {
	return dns.Fqdn(label + "." + conf.Dns.BaseDomain)
}

func IsApex(name, zone string) bool {
	return dns.CanonicalName(name) == dns.CanonicalName(zone)
}

func InZone(name, zone string) bool {
	return dns.IsSubDomain(dns.CanonicalName(zone), dns.CanonicalName(name))
}

// RRsetGroup is one rrset of a zone update, already canonicalized.
type RRsetGroup struct {
	Name    string
	Rtype   string
	Ttl     uint32
	Content []string
}

// BuildZoneUpdate turns a flat record list into grouped rrsets. Owner names
// are canonicalized and must fall inside zone, records sharing (name, type)
// must share a TTL, and the apex NS and SOA rrsets are off limits. Group
// order follows first appearance in the input.
func BuildZoneUpdate(records []ZoneRecord, zone string) ([]RRsetGroup, error) {
	type rrkey struct {
		name  string
		rtype string
	}
	index := map[rrkey]int{}
	var groups []RRsetGroup

	for _, r := range records {
		name, err := NormalizeFqdn(r.Name)
		if err != nil {
			return nil, err
		}
		rtype := strings.ToUpper(strings.TrimSpace(r.Rrtype))
		if rtype == "" {
			return nil, Errf(ErrValidation, "record %s has an empty type", name)
		}
		if !InZone(name, zone) {
			return nil, Errf(ErrValidation, "record %s is outside zone %s", name, zone)
		}
		if strings.TrimSpace(r.Content) == "" {
			return nil, Errf(ErrValidation, "record %s %s has empty content", name, rtype)
		}
		content := JoinPriority(rtype, r.Priority, r.Content)

		k := rrkey{name, rtype}
		if i, ok := index[k]; ok {
			if groups[i].Ttl != r.Ttl {
				return nil, Errf(ErrValidation, "mixed TTL values for rrset %s %s", name, rtype)
			}
			groups[i].Content = append(groups[i].Content, content)
		} else {
			index[k] = len(groups)
			groups = append(groups, RRsetGroup{Name: name, Rtype: rtype, Ttl: r.Ttl, Content: []string{content}})
		}
	}

	for _, g := range groups {
		if IsApex(g.Name, zone) && (g.Rtype == "NS" || g.Rtype == "SOA") {
			return nil, Errf(ErrValidation, "apex %s records cannot be modified", g.Rtype)
		}
	}
	return groups, nil
}

// FilterVisible drops the apex NS and SOA rrsets, which belong to the
// delegation machinery and are never exposed through the user API.
func FilterVisible(rrsets []powerdns.RRset, zone string) []powerdns.RRset {
	out := make([]powerdns.RRset, 0, len(rrsets))
	for _, rr := range rrsets {
		rtype := ""
		if rr.Type != nil {
			rtype = string(*rr.Type)
		}
		if IsApex(powerdns.StringValue(rr.Name), zone) && (rtype == "NS" || rtype == "SOA") {
			continue
		}
		out = append(out, rr)
	}
	return out
}

// FlattenRRsets converts the visible rrsets of a zone into one ZoneRecord
// per (name, type, content) triple, sorted for stable output.
func FlattenRRsets(rrsets []powerdns.RRset, zone string) []ZoneRecord {
	records := []ZoneRecord{}
	for _, rr := range FilterVisible(rrsets, zone) {
		rtype := ""
		if rr.Type != nil {
			rtype = string(*rr.Type)
		}
		var ttl uint32
		if rr.TTL != nil {
			ttl = *rr.TTL
		}
		for _, rec := range rr.Records {
			prio, content := SplitPriority(rtype, powerdns.StringValue(rec.Content))
			records = append(records, ZoneRecord{
				Name:     powerdns.StringValue(rr.Name),
				Rrtype:   rtype,
				Ttl:      ttl,
				Content:  content,
				Priority: prio,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		if records[i].Rrtype != records[j].Rrtype {
			return records[i].Rrtype < records[j].Rrtype
		}
		return records[i].Content < records[j].Content
	})
	return records
}

// BuildDelegations keeps the NS rrsets of the parent zone, apex included,
// as directory entries sorted by owner name.
func BuildDelegations(rrsets []powerdns.RRset) []DelegationEntry {
	entries := []DelegationEntry{}
	for _, rr := range rrsets {
		if rr.Type == nil || *rr.Type != powerdns.RRTypeNS {
			continue
		}
		entry := DelegationEntry{Name: powerdns.StringValue(rr.Name), Records: []string{}}
		for _, rec := range rr.Records {
			if rec.Disabled != nil && *rec.Disabled {
				continue
			}
			entry.Records = append(entry.Records, powerdns.StringValue(rec.Content))
		}
		sort.Strings(entry.Records)
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// ApexSoaRdata picks the SOA rdata out of a zone's rrsets.
func ApexSoaRdata(rrsets []powerdns.RRset, zone string) (string, error) {
	for _, rr := range rrsets {
		if rr.Type == nil || *rr.Type != powerdns.RRTypeSOA {
			continue
		}
		if !IsApex(powerdns.StringValue(rr.Name), zone) {
			continue
		}
		for _, rec := range rr.Records {
			return powerdns.StringValue(rec.Content), nil
		}
	}
	return "", Errf(ErrUpstream, "no SOA found in zone %s", zone)
}

// SplitPriority pulls the leading preference integer out of MX and SRV
// rdata. Other types pass through untouched.
func SplitPriority(rtype, content string) (*uint16, string) {
	switch rtype {
	case "MX", "SRV":
	default:
		return nil, content
	}
	parts := strings.SplitN(strings.TrimSpace(content), " ", 2)
	if len(parts) != 2 {
		return nil, content
	}
	v, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, content
	}
	prio := uint16(v)
	return &prio, strings.TrimSpace(parts[1])
}

// JoinPriority is the inverse of SplitPriority for inbound records.
func JoinPriority(rtype string, priority *uint16, content string) string {
	if priority == nil {
		return content
	}
	switch rtype {
	case "MX", "SRV":
		return fmt.Sprintf("%d %s", *priority, content)
	}
	return content
}
