/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubdomainCollector(t *testing.T) {
	p, base, _, _, _ := newTestProvisioner(t)
	ctx := context.Background()

	for _, label := range []string{"alice", "bob"} {
		if err := p.Signup(ctx, label, "supers3cret"); err != nil {
			t.Fatalf("Signup(%s) failed: %v", label, err)
		}
	}

	c := NewSubdomainCollector(p)
	expected := `
# HELP satsuki_subdomains_total Number of delegated subdomains in the parent zone.
# TYPE satsuki_subdomains_total gauge
satsuki_subdomains_total 2
# HELP satsuki_users_total Number of registered users in the local store.
# TYPE satsuki_users_total gauge
satsuki_users_total 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metrics: %v", err)
	}

	// An unreachable parent server drops the subdomain sample but keeps
	// the local one.
	base.failOn("Zones.Get", errUpstream500, 0)
	if n := testutil.CollectAndCount(c); n != 1 {
		t.Errorf("expected 1 metric with parent down, got %d", n)
	}
}
