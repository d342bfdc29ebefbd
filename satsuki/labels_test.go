/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"errors"
	"strings"
	"testing"
)

func TestCheckLabelSyntax(t *testing.T) {
	valid := []string{
		"a",
		"alice",
		"a1",
		"1a",
		"my-zone",
		"0-0",
		strings.Repeat("a", 63),
	}
	for _, label := range valid {
		if err := CheckLabelSyntax(label); err != nil {
			t.Errorf("CheckLabelSyntax(%q) rejected valid label: %v", label, err)
		}
	}

	invalid := []struct {
		label string
		msg   string
	}{
		{"", "subdomain is empty"},
		{strings.Repeat("a", 64), "subdomain too long (max 63 characters)"},
		{"Alice", "subdomain contains invalid characters (only a-z, 0-9, and '-' allowed)"},
		{"foo.bar", "subdomain contains invalid characters (only a-z, 0-9, and '-' allowed)"},
		{"foo_bar", "subdomain contains invalid characters (only a-z, 0-9, and '-' allowed)"},
		{"foo bar", "subdomain contains invalid characters (only a-z, 0-9, and '-' allowed)"},
		{"-alice", "subdomain must not start or end with '-'"},
		{"alice-", "subdomain must not start or end with '-'"},
		{"al--ice", "subdomain must not contain consecutive '--'"},
	}
	for _, tc := range invalid {
		err := CheckLabelSyntax(tc.label)
		if err == nil {
			t.Errorf("CheckLabelSyntax(%q) accepted invalid label", tc.label)
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("CheckLabelSyntax(%q): error is not a validation error: %v", tc.label, err)
		}
		if err.Error() != tc.msg {
			t.Errorf("CheckLabelSyntax(%q): got message %q, want %q", tc.label, err.Error(), tc.msg)
		}
	}
}

func TestValidateLabelReserved(t *testing.T) {
	conf := newTestConfig()

	for _, label := range []string{"www", "mail", "ftp", "smtp", "email", "example", "invalid", "localhost", "test"} {
		err := conf.ValidateLabel(label)
		if err == nil {
			t.Errorf("ValidateLabel(%q) accepted reserved label", label)
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateLabel(%q): error is not a validation error: %v", label, err)
		}
		if err.Error() != "subdomain is reserved" {
			t.Errorf("ValidateLabel(%q): got message %q", label, err.Error())
		}
	}

	if err := conf.ValidateLabel("alice"); err != nil {
		t.Errorf("ValidateLabel(alice) rejected non-reserved label: %v", err)
	}

	// Operator-provided set replaces the defaults entirely.
	conf.Internal.Reserved = map[string]bool{"admin": true}
	if err := conf.ValidateLabel("www"); err != nil {
		t.Errorf("ValidateLabel(www) rejected after policy replacement: %v", err)
	}
	if err := conf.ValidateLabel("admin"); err == nil {
		t.Errorf("ValidateLabel(admin) accepted a label reserved by policy")
	}
}
