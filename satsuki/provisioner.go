/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/joeig/go-powerdns/v3"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Compensations run on a detached context so a client disconnect cannot
// leave half-provisioned state behind.
const compensationTimeout = 15 * time.Second

// UserStore is the store capability the orchestrator needs. *UserDB is
// the production implementation.
type UserStore interface {
	CreateUser(label, hash string, now time.Time) (*User, error)
	GetUser(label string) (*User, error)
	UserExists(label string) (bool, error)
	VerifyAndTouch(label, password string, now time.Time) (*User, error)
	SetExternalNs(label string, nsList []string, now time.Time) error
	SetInternalNs(label string, now time.Time) error
	SetPassword(label, newHash string, now time.Time) error
	CountUsers() (int, error)
	ListUsers() ([]UserListEntry, error)
}

// Provisioner owns every state transition that spans the user store and
// the two PowerDNS instances. Per-label locking serializes a user's own
// requests; different labels proceed in parallel.
type Provisioner struct {
	conf   *Config
	store  UserStore
	base   *PdnsApi
	sub    *PdnsApi
	labels cmap.ConcurrentMap[string, *sync.Mutex]
}

func NewProvisioner(conf *Config, store UserStore, base, sub *PdnsApi) *Provisioner {
	return &Provisioner{
		conf:   conf,
		store:  store,
		base:   base,
		sub:    sub,
		labels: cmap.New[*sync.Mutex](),
	}
}

// SetupProvisioner wires a Provisioner to the configured endpoints.
func SetupProvisioner(conf *Config) *Provisioner {
	return NewProvisioner(conf, conf.Internal.UserDB,
		NewPdnsApi("base", conf.Pdns.Base),
		NewPdnsApi("sub", conf.Pdns.Sub))
}

func (p *Provisioner) lockLabel(label string) func() {
	p.labels.SetIfAbsent(label, &sync.Mutex{})
	mu, _ := p.labels.Get(label)
	mu.Lock()
	return mu.Unlock
}

// SoaRdata renders the apex SOA installed in every child zone.
func (conf *Config) SoaRdata() string {
	return fmt.Sprintf("%s %s 1 10800 3600 604800 3600", conf.Dns.MainNS, conf.Dns.Contact)
}

// Signup provisions a new label: hash the password, create the child
// zone on the sub server, force its apex to the internal nameservers,
// delegate it in the parent zone, and only then insert the user row.
// A failure at any step rolls the completed steps back in reverse, so
// either all three systems know the label or none of them do.
func (p *Provisioner) Signup(ctx context.Context, label, password string) error {
	if err := p.conf.ValidateLabel(label); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return Errf(ErrValidation, "password too short (min %d characters)", MinPasswordLength)
	}

	unlock := p.lockLabel(label)
	defer unlock()

	exists, err := p.store.UserExists(label)
	if err != nil {
		return err
	}
	if exists {
		return Errf(ErrConflict, "already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	zone := p.conf.UserZoneName(label)

	err = p.sub.CreateZone(ctx, zone, p.conf.Dns.InternalNS)
	if errors.Is(err, ErrConflict) {
		// No user row owns this zone, so it was left behind by an
		// interrupted signup. Clear it and try again.
		log.Printf("Signup: found orphaned zone %s, removing and retrying", zone)
		if derr := p.sub.DeleteZone(ctx, zone); derr != nil {
			return derr
		}
		err = p.sub.CreateZone(ctx, zone, p.conf.Dns.InternalNS)
	}
	if err != nil {
		return err
	}

	if err := p.fixChildApex(ctx, zone); err != nil {
		p.compensate(zone, false)
		return err
	}

	if err := p.delegate(ctx, zone, p.conf.Dns.InternalNS); err != nil {
		p.compensate(zone, false)
		return err
	}

	if _, err := p.store.CreateUser(label, hash, time.Now()); err != nil {
		p.compensate(zone, true)
		return err
	}

	log.Printf("Signup: provisioned %s", zone)
	return nil
}

// fixChildApex replaces the child apex NS and SOA so they match the
// configured internal nameservers and SOA template, whatever defaults the
// sub server applied on zone creation.
func (p *Provisioner) fixChildApex(ctx context.Context, zone string) error {
	sets := []powerdns.RRset{
		ReplaceRRset(zone, powerdns.RRTypeNS, DefaultApexTTL, p.conf.Dns.InternalNS),
		ReplaceRRset(zone, powerdns.RRTypeSOA, DefaultApexTTL, []string{p.conf.SoaRdata()}),
	}
	return p.sub.PatchRRsets(ctx, zone, sets)
}

// delegate replaces the NS rrset for zone inside the parent.
func (p *Provisioner) delegate(ctx context.Context, zone string, nameservers []string) error {
	set := ReplaceRRset(zone, powerdns.RRTypeNS, p.conf.Dns.DelegationTTL, nameservers)
	return p.base.PatchRRsets(ctx, p.conf.ParentZoneName(), []powerdns.RRset{set})
}

// compensate undoes the DNS-side signup steps in reverse order. Each
// step is retried once; what still fails is logged for the operator.
func (p *Provisioner) compensate(zone string, undoDelegation bool) {
	cctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	if undoDelegation {
		retryOnce("delete delegation "+zone, func() error {
			return p.base.DeleteRRset(cctx, p.conf.ParentZoneName(), zone, powerdns.RRTypeNS)
		})
	}
	retryOnce("delete zone "+zone, func() error {
		return p.sub.DeleteZone(cctx, zone)
	})
}

func retryOnce(op string, f func() error) {
	err := f()
	if err == nil {
		return
	}
	log.Printf("Provisioner: compensation %s failed, retrying: %v", op, err)
	if err = f(); err != nil {
		log.Printf("Provisioner: INCONSISTENT: compensation %s failed twice: %v", op, err)
	}
}

// SwitchExternal points the parent delegation at user-supplied
// nameservers. The child zone apex stays on the internal nameservers, so
// switching back later needs no child-side work.
func (p *Provisioner) SwitchExternal(ctx context.Context, label string, nsList []string) error {
	if len(nsList) == 0 {
		return Errf(ErrValidation, "at least one NS required")
	}
	if len(nsList) > MaxExternalNs {
		return Errf(ErrValidation, "too many nameservers (max %d)", MaxExternalNs)
	}
	fqdns := make([]string, len(nsList))
	for i, ns := range nsList {
		fqdn, err := NormalizeFqdn(ns)
		if err != nil {
			return err
		}
		fqdns[i] = fqdn
	}

	unlock := p.lockLabel(label)
	defer unlock()

	user, err := p.store.GetUser(label)
	if err != nil {
		return err
	}

	zone := p.conf.UserZoneName(label)
	if err := p.delegate(ctx, zone, fqdns); err != nil {
		return err
	}

	if err := p.store.SetExternalNs(label, fqdns, time.Now()); err != nil {
		p.revertDelegation(zone, user)
		return err
	}
	return nil
}

// SwitchInternal points the parent delegation back at the configured
// internal nameservers and clears the stored external list.
func (p *Provisioner) SwitchInternal(ctx context.Context, label string) error {
	unlock := p.lockLabel(label)
	defer unlock()

	user, err := p.store.GetUser(label)
	if err != nil {
		return err
	}

	zone := p.conf.UserZoneName(label)
	if err := p.delegate(ctx, zone, p.conf.Dns.InternalNS); err != nil {
		return err
	}

	if err := p.store.SetInternalNs(label, time.Now()); err != nil {
		p.revertDelegation(zone, user)
		return err
	}
	return nil
}

// revertDelegation restores the parent delegation to what the store still
// says after a failed store write. If the revert itself fails the two
// systems disagree and only an operator can reconcile them.
func (p *Provisioner) revertDelegation(zone string, user *User) {
	target := p.conf.Dns.InternalNS
	if user.ExternalNs {
		target = user.ExternalNsList()
	}

	cctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	retryOnce("revert delegation "+zone, func() error {
		set := ReplaceRRset(zone, powerdns.RRTypeNS, p.conf.Dns.DelegationTTL, target)
		return p.base.PatchRRsets(cctx, p.conf.ParentZoneName(), []powerdns.RRset{set})
	})
}

type rrkey struct {
	name  string
	rtype string
}

// PutZone replaces the whole user-visible record surface of a child zone
// in one PATCH: REPLACE for every submitted rrset, DELETE for every
// existing non-apex rrset the submission no longer contains.
func (p *Provisioner) PutZone(ctx context.Context, label string, records []ZoneRecord) error {
	zone := p.conf.UserZoneName(label)

	groups, err := BuildZoneUpdate(records, zone)
	if err != nil {
		return err
	}

	unlock := p.lockLabel(label)
	defer unlock()

	z, err := p.sub.GetZone(ctx, zone)
	if err != nil {
		return err
	}

	sets := make([]powerdns.RRset, 0, len(groups))
	target := make(map[rrkey]bool, len(groups))
	for _, g := range groups {
		sets = append(sets, ReplaceRRset(g.Name, powerdns.RRType(g.Rtype), g.Ttl, g.Content))
		target[rrkey{g.Name, g.Rtype}] = true
	}
	for _, rr := range FilterVisible(z.RRsets, zone) {
		k := rrkey{powerdns.StringValue(rr.Name), ""}
		if rr.Type != nil {
			k.rtype = string(*rr.Type)
		}
		if !target[k] {
			sets = append(sets, DeleteRRsetEntry(k.name, powerdns.RRType(k.rtype)))
		}
	}

	return p.sub.PatchRRsets(ctx, zone, sets)
}

// GetZone returns the user-visible records of a child zone.
func (p *Provisioner) GetZone(ctx context.Context, label string) ([]ZoneRecord, error) {
	zone := p.conf.UserZoneName(label)
	z, err := p.sub.GetZone(ctx, zone)
	if err != nil {
		return nil, err
	}
	return FlattenRRsets(z.RRsets, zone), nil
}

// ListDelegations returns all NS rrsets in the parent zone, apex
// included. Backs the public directory endpoint.
func (p *Provisioner) ListDelegations(ctx context.Context) ([]DelegationEntry, error) {
	z, err := p.base.GetZone(ctx, p.conf.ParentZoneName())
	if err != nil {
		return nil, err
	}
	return BuildDelegations(z.RRsets), nil
}

// ParentSOA returns the apex SOA rdata of the parent zone.
func (p *Provisioner) ParentSOA(ctx context.Context) (string, error) {
	z, err := p.base.GetZone(ctx, p.conf.ParentZoneName())
	if err != nil {
		return "", err
	}
	return ApexSoaRdata(z.RRsets, p.conf.ParentZoneName())
}

// CountDelegations counts distinct non-apex NS owner names in the parent
// zone. One upstream GET per call, no caching.
func (p *Provisioner) CountDelegations(ctx context.Context) (int, error) {
	z, err := p.base.GetZone(ctx, p.conf.ParentZoneName())
	if err != nil {
		return 0, err
	}
	parent := p.conf.ParentZoneName()
	owners := map[string]bool{}
	for _, rr := range z.RRsets {
		if rr.Type == nil || *rr.Type != powerdns.RRTypeNS {
			continue
		}
		name := powerdns.StringValue(rr.Name)
		if IsApex(name, parent) {
			continue
		}
		owners[name] = true
	}
	return len(owners), nil
}

// ChangePassword verifies the current password and stores a hash of the
// new one.
func (p *Provisioner) ChangePassword(label, currentPw, newPw string) error {
	if len(newPw) < MinPasswordLength {
		return Errf(ErrValidation, "new password too short (min %d characters)", MinPasswordLength)
	}

	unlock := p.lockLabel(label)
	defer unlock()

	u, err := p.store.GetUser(label)
	if err != nil {
		return err
	}
	ok, err := VerifyPassword(u.PasswordHash, currentPw)
	if err != nil {
		return fmt.Errorf("ChangePassword: hash error for user %s: %v", label, err)
	}
	if !ok {
		return Errf(ErrAuth, "invalid credentials")
	}

	hash, err := HashPassword(newPw)
	if err != nil {
		return err
	}
	return p.store.SetPassword(label, hash, time.Now())
}

// CheckAvailable implements the public availability probe: a label is
// available iff it passes validation and no user row claims it.
func (p *Provisioner) CheckAvailable(label string) (bool, error) {
	if err := p.conf.ValidateLabel(label); err != nil {
		return false, nil
	}
	exists, err := p.store.UserExists(label)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
