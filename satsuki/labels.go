/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"regexp"
	"strings"
)

var labelRegexp = regexp.MustCompile(`^[a-z0-9-]+$`)

// CheckLabelSyntax applies the naming rules for a user-claimed label:
// 1-63 chars from [a-z0-9-], no hyphen at either end, no "--".
func CheckLabelSyntax(label string) error {
	if label == "" {
		return Errf(ErrValidation, "subdomain is empty")
	}
	if len(label) > 63 {
		return Errf(ErrValidation, "subdomain too long (max 63 characters)")
	}
	if !labelRegexp.MatchString(label) {
		return Errf(ErrValidation, "subdomain contains invalid characters (only a-z, 0-9, and '-' allowed)")
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return Errf(ErrValidation, "subdomain must not start or end with '-'")
	}
	if strings.Contains(label, "--") {
		return Errf(ErrValidation, "subdomain must not contain consecutive '--'")
	}
	return nil
}

// ValidateLabel is the full admission predicate: syntax plus the
// reserved-label policy. Shared by signup and the availability check.
func (conf *Config) ValidateLabel(label string) error {
	if err := CheckLabelSyntax(label); err != nil {
		return err
	}
	if conf.Internal.Reserved[label] {
		return Errf(ErrValidation, "subdomain is reserved")
	}
	return nil
}
