/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"time"
)

// User-facing wire types. Field names follow the public JSON contract.

type ZoneRecord struct {
	Name     string  `json:"name"`
	Rrtype   string  `json:"rrtype"`
	Ttl      uint32  `json:"ttl"`
	Content  string  `json:"content"`
	Priority *uint16 `json:"priority"`
}

type ZoneUpdatePost struct {
	Records []ZoneRecord `json:"records"`
}

type SignupPost struct {
	Subdomain string `json:"subdomain"`
	Password  string `json:"password"`
}

type SigninPost struct {
	Subdomain string `json:"subdomain"`
	Password  string `json:"password"`
}

type NsModePost struct {
	Ns []string `json:"ns"`
}

type PasswordChangePost struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type OkResponse struct {
	Ok bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AboutResponse struct {
	BaseDomain string `json:"base_domain"`
}

type CheckResponse struct {
	Available bool `json:"available"`
}

type SoaResponse struct {
	Soa string `json:"soa"`
}

type DelegationEntry struct {
	Name    string   `json:"name"`
	Records []string `json:"records"`
}

type ProfileResponse struct {
	Subdomain   string  `json:"subdomain"`
	ExternalNs  bool    `json:"external_ns"`
	ExternalNs1 *string `json:"external_ns1"`
	ExternalNs2 *string `json:"external_ns2"`
	ExternalNs3 *string `json:"external_ns3"`
	ExternalNs4 *string `json:"external_ns4"`
	ExternalNs5 *string `json:"external_ns5"`
	ExternalNs6 *string `json:"external_ns6"`
}

// Operator channel types, used between satsuki-cli and the server.

type CommandPost struct {
	Command string
	Zone    string
}

type CommandResponse struct {
	AppName         string
	Time            time.Time
	Status          string
	Msg             string
	UserCount       int
	DelegationCount int
	Users           []UserListEntry
	Error           bool
	ErrorMsg        string
}

type UserListEntry struct {
	Subdomain string
	NsMode    string
	CreatedAt time.Time
	LastLogin *time.Time
}
