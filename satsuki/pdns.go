/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/joeig/go-powerdns/v3"
)

// The two client capabilities the core needs from the PowerDNS API.
// Narrow on purpose so tests can stub them.

type ZonesClienter interface {
	Get(ctx context.Context, domain string) (*powerdns.Zone, error)
	Add(ctx context.Context, zone *powerdns.Zone) (*powerdns.Zone, error)
	Delete(ctx context.Context, domain string) error
}

type RecordsClienter interface {
	Patch(ctx context.Context, domain string, sets *powerdns.RRsets) error
	Delete(ctx context.Context, domain string, name string, recordType powerdns.RRType) error
}

// PdnsApi wraps one PowerDNS endpoint (base or sub) and maps upstream
// failures onto the error taxonomy. Upstream bodies go to the log, never
// to clients.
type PdnsApi struct {
	Name    string
	Zones   ZonesClienter
	Records RecordsClienter
}

func NewPdnsApi(name string, ecfg PdnsEndpointConf) *PdnsApi {
	client := powerdns.New(ecfg.Url, ecfg.ServerID, powerdns.WithAPIKey(ecfg.ApiKey))
	return &PdnsApi{
		Name:    name,
		Zones:   client.Zones,
		Records: client.Records,
	}
}

// CreateZone creates a Native zone with an initial NS rrset.
func (api *PdnsApi) CreateZone(ctx context.Context, zone string, nameservers []string) error {
	z := powerdns.Zone{
		Name:        ptr(zone),
		Kind:        powerdns.ZoneKindPtr(powerdns.NativeZoneKind),
		Nameservers: nameservers,
	}
	if _, err := api.Zones.Add(ctx, &z); err != nil {
		return api.wrapErr("CreateZone", zone, err)
	}
	return nil
}

// DeleteZone removes a zone. An already absent zone is not an error, so
// compensations can run twice.
func (api *PdnsApi) DeleteZone(ctx context.Context, zone string) error {
	if err := api.Zones.Delete(ctx, zone); err != nil && !IsPdnsNotFound(err) {
		return api.wrapErr("DeleteZone", zone, err)
	}
	return nil
}

func (api *PdnsApi) GetZone(ctx context.Context, zone string) (*powerdns.Zone, error) {
	z, err := api.Zones.Get(ctx, zone)
	if err != nil {
		return nil, api.wrapErr("GetZone", zone, err)
	}
	return z, nil
}

// PatchRRsets applies a set of rrset changes in one request.
func (api *PdnsApi) PatchRRsets(ctx context.Context, zone string, sets []powerdns.RRset) error {
	if len(sets) == 0 {
		return nil
	}
	if err := api.Records.Patch(ctx, zone, &powerdns.RRsets{Sets: sets}); err != nil {
		return api.wrapErr("PatchRRsets", zone, err)
	}
	return nil
}

// DeleteRRset removes one rrset, tolerating absence.
func (api *PdnsApi) DeleteRRset(ctx context.Context, zone, name string, rtype powerdns.RRType) error {
	if err := api.Records.Delete(ctx, zone, name, rtype); err != nil && !IsPdnsNotFound(err) {
		return api.wrapErr("DeleteRRset", zone, err)
	}
	return nil
}

func (api *PdnsApi) wrapErr(op, zone string, err error) error {
	if code, ok := pdnsStatusCode(err); ok {
		switch code {
		case http.StatusNotFound:
			return Errf(ErrNotFound, "zone %s not found", zone)
		case http.StatusConflict:
			return Errf(ErrConflict, "zone %s already exists", zone)
		}
		log.Printf("PdnsApi: %s %s %s: upstream status %d: %v", api.Name, op, zone, code, err)
		return Errf(ErrUpstream, "dns backend request failed")
	}
	log.Printf("PdnsApi: %s %s %s: upstream unreachable: %v", api.Name, op, zone, err)
	return Errf(ErrUpstream, "dns backend unreachable")
}

func pdnsStatusCode(err error) (int, bool) {
	var pe powerdns.Error
	if errors.As(err, &pe) {
		return pe.StatusCode, true
	}
	var pep *powerdns.Error
	if errors.As(err, &pep) {
		return pep.StatusCode, true
	}
	return 0, false
}

func IsPdnsNotFound(err error) bool {
	code, ok := pdnsStatusCode(err)
	return ok && code == http.StatusNotFound
}

func ptr[T any](v T) *T { return &v }

// ReplaceRRset builds a REPLACE entry for PatchRRsets.
func ReplaceRRset(name string, rtype powerdns.RRType, ttl uint32, contents []string) powerdns.RRset {
	rr := powerdns.RRset{
		Name:       ptr(name),
		Type:       powerdns.RRTypePtr(rtype),
		TTL:        ptr(ttl),
		ChangeType: powerdns.ChangeTypePtr(powerdns.ChangeTypeReplace),
	}
	for _, c := range contents {
		rr.Records = append(rr.Records, powerdns.Record{Content: ptr(c), Disabled: ptr(false)})
	}
	return rr
}

// DeleteRRsetEntry builds a DELETE entry for PatchRRsets.
func DeleteRRsetEntry(name string, rtype powerdns.RRType) powerdns.RRset {
	return powerdns.RRset{
		Name:       ptr(name),
		Type:       powerdns.RRTypePtr(rtype),
		ChangeType: powerdns.ChangeTypePtr(powerdns.ChangeTypeDelete),
	}
}
