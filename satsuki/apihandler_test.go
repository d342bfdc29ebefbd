/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*httptest.Server, *fakePdnsBackend, *fakePdnsBackend, *Config) {
	t.Helper()
	_, base, sub, _, conf := newTestProvisioner(t)
	conf.Internal.APIStopCh = make(chan struct{})

	router, err := SetupRouter(conf)
	if err != nil {
		t.Fatalf("SetupRouter failed: %v", err)
	}
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, base, sub, conf
}

// doJSON sends a request with an optional JSON body. A non-empty auth is
// "label:password" and becomes a Basic Authorization header.
func doJSON(t *testing.T, method, rawurl, auth string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, rawurl, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(auth)))
	}
	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp.StatusCode, data
}

func errorMsg(t *testing.T, body []byte) string {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("error body is not JSON: %q", body)
	}
	return er.Error
}

func signupUser(t *testing.T, srv *httptest.Server, label, password string) {
	t.Helper()
	status, body := doJSON(t, "POST", srv.URL+"/api/signup", "", SignupPost{Subdomain: label, Password: password})
	if status != http.StatusOK {
		t.Fatalf("signup %s failed: %d %s", label, status, body)
	}
}

func TestAPIHealthAndAbout(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	status, body := doJSON(t, "GET", srv.URL+"/health", "", nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != `{"status":"ok"}` {
		t.Errorf("GET /health = %d %q", status, body)
	}

	status, body = doJSON(t, "GET", srv.URL+"/api/about", "", nil)
	if status != http.StatusOK || strings.TrimSpace(string(body)) != `{"base_domain":"example.com"}` {
		t.Errorf("GET /api/about = %d %q", status, body)
	}
}

func TestAPICheckEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	status, body := doJSON(t, "GET", srv.URL+"/api/subdomain/check", "", nil)
	if status != http.StatusBadRequest {
		t.Errorf("check without name = %d %q", status, body)
	}
	if msg := errorMsg(t, body); msg != "missing 'name' parameter" {
		t.Errorf("check without name msg = %q", msg)
	}

	cases := []struct {
		name      string
		available bool
	}{
		{"free", true},
		{"www", false},
		{"Not Valid", false},
		{"-bad-", false},
	}
	for _, tc := range cases {
		status, body := doJSON(t, "GET", srv.URL+"/api/subdomain/check?name="+url.QueryEscape(tc.name), "", nil)
		if status != http.StatusOK {
			t.Errorf("check %q = %d %q", tc.name, status, body)
			continue
		}
		var cr CheckResponse
		if err := json.Unmarshal(body, &cr); err != nil || cr.Available != tc.available {
			t.Errorf("check %q = %q, want available=%v", tc.name, body, tc.available)
		}
	}

	signupUser(t, srv, "alice", "supers3cret")
	status, body = doJSON(t, "GET", srv.URL+"/api/subdomain/check?name=alice", "", nil)
	var cr CheckResponse
	if err := json.Unmarshal(body, &cr); status != http.StatusOK || err != nil || cr.Available {
		t.Errorf("check taken label = %d %q", status, body)
	}
}

func TestAPISignupAndList(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	signupUser(t, srv, "alice", "supers3cret")

	status, body := doJSON(t, "GET", srv.URL+"/api/subdomain/list", "", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/subdomain/list = %d %q", status, body)
	}
	var entries []DelegationEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("list body not JSON: %q", body)
	}
	found := false
	for _, e := range entries {
		if e.Name == "alice.example.com." {
			found = true
			if len(e.Records) != 2 || e.Records[0] != "ns1.example.net." || e.Records[1] != "ns2.example.net." {
				t.Errorf("delegation records = %v", e.Records)
			}
		}
	}
	if !found {
		t.Errorf("alice.example.com. not in listing: %q", body)
	}
}

func TestAPISignupRejections(t *testing.T) {
	srv, _, sub, _ := newTestServer(t)

	status, body := doJSON(t, "POST", srv.URL+"/api/signup", "", SignupPost{Subdomain: "www", Password: "supers3cret"})
	if status != http.StatusBadRequest {
		t.Errorf("reserved signup = %d %q", status, body)
	}
	if msg := errorMsg(t, body); msg != "subdomain is reserved" {
		t.Errorf("reserved signup msg = %q", msg)
	}

	signupUser(t, srv, "alice", "supers3cret")
	status, body = doJSON(t, "POST", srv.URL+"/api/signup", "", SignupPost{Subdomain: "alice", Password: "supers3cret"})
	if status != http.StatusConflict {
		t.Errorf("duplicate signup = %d %q", status, body)
	}
	if msg := errorMsg(t, body); msg != "already exists" {
		t.Errorf("duplicate signup msg = %q", msg)
	}

	req, err := http.NewRequest("POST", srv.URL+"/api/signup", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	status, body = doRequest(t, req)
	if status != http.StatusBadRequest {
		t.Errorf("malformed signup body = %d %q", status, body)
	}

	sub.failOn("Zones.Add", errUpstream500, 0)
	status, body = doJSON(t, "POST", srv.URL+"/api/signup", "", SignupPost{Subdomain: "bob", Password: "supers3cret"})
	if status != http.StatusBadGateway {
		t.Errorf("signup with broken backend = %d %q", status, body)
	}
}

func TestAPISignin(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	status, body := doJSON(t, "POST", srv.URL+"/api/signin", "", SigninPost{Subdomain: "alice", Password: "supers3cret"})
	if status != http.StatusOK || strings.TrimSpace(string(body)) != `{"ok":true}` {
		t.Errorf("signin = %d %q", status, body)
	}

	status, body = doJSON(t, "POST", srv.URL+"/api/signin", "", SigninPost{Subdomain: "alice", Password: "wrong"})
	if status != http.StatusUnauthorized {
		t.Errorf("signin wrong password = %d %q", status, body)
	}
	wrongMsg := errorMsg(t, body)

	status, body = doJSON(t, "POST", srv.URL+"/api/signin", "", SigninPost{Subdomain: "ghost", Password: "whatever"})
	if status != http.StatusUnauthorized {
		t.Errorf("signin unknown user = %d %q", status, body)
	}
	// The response must not betray whether the label exists.
	if msg := errorMsg(t, body); msg != wrongMsg || msg != "invalid credentials" {
		t.Errorf("signin unknown user msg = %q, wrong password msg = %q", msg, wrongMsg)
	}
}

func TestAPIAuthHeaderFailures(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	cases := []struct {
		header string
		msg    string
	}{
		{"", "missing Authorization header"},
		{"Bearer sometoken", "expected Basic auth"},
		{"Basic %%%", "invalid Basic payload"},
		{"Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")), "invalid Basic payload"},
		{"Basic " + base64.StdEncoding.EncodeToString([]byte("alice:wrong")), "invalid credentials"},
		{"Basic " + base64.StdEncoding.EncodeToString([]byte("ghost:whatever")), "invalid credentials"},
	}
	for _, tc := range cases {
		req, err := http.NewRequest("GET", srv.URL+"/api/profile", nil)
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		status, body := doRequest(t, req)
		if status != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d %q", tc.header, status, body)
			continue
		}
		if msg := errorMsg(t, body); msg != tc.msg {
			t.Errorf("header %q: msg = %q, want %q", tc.header, msg, tc.msg)
		}
	}
}

func TestAPIProfile(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	status, body := doJSON(t, "GET", srv.URL+"/api/profile", "alice:supers3cret", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/profile = %d %q", status, body)
	}
	var pr ProfileResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		t.Fatalf("profile body not JSON: %q", body)
	}
	if pr.Subdomain != "alice" || pr.ExternalNs || pr.ExternalNs1 != nil {
		t.Errorf("fresh profile = %+v", pr)
	}

	status, _ = doJSON(t, "POST", srv.URL+"/api/ns-mode/external", "alice:supers3cret",
		NsModePost{Ns: []string{"ns1.custom.", "ns2.custom."}})
	if status != http.StatusOK {
		t.Fatalf("ns-mode/external = %d", status)
	}
	status, body = doJSON(t, "GET", srv.URL+"/api/profile", "alice:supers3cret", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/profile = %d %q", status, body)
	}
	if err := json.Unmarshal(body, &pr); err != nil {
		t.Fatalf("profile body not JSON: %q", body)
	}
	if !pr.ExternalNs || pr.ExternalNs1 == nil || *pr.ExternalNs1 != "ns1.custom." || pr.ExternalNs3 != nil {
		t.Errorf("external profile = %+v", pr)
	}
}

func TestAPIZoneRoundTrip(t *testing.T) {
	srv, _, sub, _ := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	prio := uint16(10)
	status, body := doJSON(t, "PUT", srv.URL+"/api/zone", "alice:supers3cret", ZoneUpdatePost{
		Records: []ZoneRecord{
			{Name: "www.alice.example.com", Rrtype: "a", Ttl: 300, Content: "192.0.2.1"},
			{Name: "alice.example.com.", Rrtype: "MX", Ttl: 300, Content: "mail.alice.example.com.", Priority: &prio},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("PUT /api/zone = %d %q", status, body)
	}

	status, body = doJSON(t, "GET", srv.URL+"/api/zone", "alice:supers3cret", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/zone = %d %q", status, body)
	}
	var records []ZoneRecord
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatalf("zone body not JSON: %q", body)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %q", body)
	}
	if records[0].Rrtype != "MX" || records[0].Priority == nil || *records[0].Priority != 10 {
		t.Errorf("MX record = %+v", records[0])
	}
	if records[1].Name != "www.alice.example.com." || records[1].Rrtype != "A" {
		t.Errorf("A record not canonicalized: %+v", records[1])
	}

	// Unchanged zone, byte-identical reads.
	_, again := doJSON(t, "GET", srv.URL+"/api/zone", "alice:supers3cret", nil)
	if !bytes.Equal(body, again) {
		t.Errorf("two reads differ:\n%q\n%q", body, again)
	}

	patches := sub.calls("Records.Patch")
	status, body = doJSON(t, "PUT", srv.URL+"/api/zone", "alice:supers3cret", ZoneUpdatePost{
		Records: []ZoneRecord{
			{Name: "alice.example.com.", Rrtype: "NS", Ttl: 300, Content: "ns9.x."},
		},
	})
	if status != http.StatusBadRequest {
		t.Errorf("apex NS put = %d %q", status, body)
	}
	if n := sub.calls("Records.Patch"); n != patches {
		t.Errorf("rejected put reached the backend (%d extra patches)", n-patches)
	}
}

func TestAPINsModeSwitch(t *testing.T) {
	srv, base, sub, conf := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	status, body := doJSON(t, "POST", srv.URL+"/api/ns-mode/external", "alice:supers3cret",
		NsModePost{Ns: []string{"ns1.custom.", "ns2.custom."}})
	if status != http.StatusOK {
		t.Fatalf("ns-mode/external = %d %q", status, body)
	}

	deleg, _ := base.rrset("example.com.", "alice.example.com.", "NS")
	if len(deleg.contents) != 2 || deleg.contents[0] != "ns1.custom." {
		t.Errorf("delegation after external switch = %v", deleg.contents)
	}
	apexNS, _ := sub.rrset("alice.example.com.", "alice.example.com.", "NS")
	if len(apexNS.contents) != 2 || apexNS.contents[0] != conf.Dns.InternalNS[0] {
		t.Errorf("child apex NS after external switch = %v", apexNS.contents)
	}

	status, body = doJSON(t, "POST", srv.URL+"/api/ns-mode/external", "alice:supers3cret", NsModePost{})
	if status != http.StatusBadRequest {
		t.Errorf("empty ns list = %d %q", status, body)
	}
	if msg := errorMsg(t, body); msg != "at least one NS required" {
		t.Errorf("empty ns list msg = %q", msg)
	}

	status, body = doJSON(t, "POST", srv.URL+"/api/ns-mode/internal", "alice:supers3cret", nil)
	if status != http.StatusOK {
		t.Fatalf("ns-mode/internal = %d %q", status, body)
	}
	deleg, _ = base.rrset("example.com.", "alice.example.com.", "NS")
	if len(deleg.contents) != 2 || deleg.contents[0] != "ns1.example.net." {
		t.Errorf("delegation after internal switch = %v", deleg.contents)
	}
}

func TestAPIPasswordChange(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	status, body := doJSON(t, "POST", srv.URL+"/api/password/change", "alice:supers3cret",
		PasswordChangePost{CurrentPassword: "wrong", NewPassword: "evenm0resecret"})
	if status != http.StatusUnauthorized {
		t.Errorf("wrong current password = %d %q", status, body)
	}

	status, body = doJSON(t, "POST", srv.URL+"/api/password/change", "alice:supers3cret",
		PasswordChangePost{CurrentPassword: "supers3cret", NewPassword: "evenm0resecret"})
	if status != http.StatusOK {
		t.Fatalf("password change = %d %q", status, body)
	}

	status, _ = doJSON(t, "GET", srv.URL+"/api/profile", "alice:supers3cret", nil)
	if status != http.StatusUnauthorized {
		t.Errorf("old password still accepted: %d", status)
	}
	status, _ = doJSON(t, "GET", srv.URL+"/api/profile", "alice:evenm0resecret", nil)
	if status != http.StatusOK {
		t.Errorf("new password rejected: %d", status)
	}
}

func TestAPISoaEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	status, body := doJSON(t, "GET", srv.URL+"/api/subdomain/soa", "", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /api/subdomain/soa = %d %q", status, body)
	}
	var sr SoaResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		t.Fatalf("soa body not JSON: %q", body)
	}
	if sr.Soa != "ns1.example.net. hostmaster.example.com. 1 10800 3600 604800 3600" {
		t.Errorf("soa = %q", sr.Soa)
	}
}

func TestAPIUpstreamFailureMapsTo502(t *testing.T) {
	srv, base, _, _ := newTestServer(t)
	base.failOn("Zones.Get", errUpstream500, 0)

	status, body := doJSON(t, "GET", srv.URL+"/api/subdomain/list", "", nil)
	if status != http.StatusBadGateway {
		t.Errorf("list with broken backend = %d %q", status, body)
	}
	if msg := errorMsg(t, body); msg != "dns backend request failed" {
		t.Errorf("502 msg = %q", msg)
	}
}

func TestAPIOperatorChannel(t *testing.T) {
	srv, _, _, conf := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	postCommand := func(apikey string, cp CommandPost) (int, []byte) {
		b, _ := json.Marshal(cp)
		req, err := http.NewRequest("POST", srv.URL+"/api/v1/command", bytes.NewReader(b))
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if apikey != "" {
			req.Header.Set("X-API-Key", apikey)
		}
		return doRequest(t, req)
	}

	status, body := postCommand("testapikey", CommandPost{Command: "status"})
	if status != http.StatusOK {
		t.Fatalf("command status = %d %q", status, body)
	}
	var cr CommandResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatalf("command body not JSON: %q", body)
	}
	if cr.Status != "ok" || cr.UserCount != 1 || cr.DelegationCount != 1 {
		t.Errorf("status response = %+v", cr)
	}

	status, body = postCommand("testapikey", CommandPost{Command: "userlist"})
	if status != http.StatusOK {
		t.Fatalf("command userlist = %d %q", status, body)
	}
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatalf("command body not JSON: %q", body)
	}
	if len(cr.Users) != 1 || cr.Users[0].Subdomain != "alice" || cr.Users[0].NsMode != "internal" {
		t.Errorf("userlist response = %+v", cr.Users)
	}

	status, body = postCommand("testapikey", CommandPost{Command: "bogus"})
	if status != http.StatusOK {
		t.Fatalf("command bogus = %d %q", status, body)
	}
	if err := json.Unmarshal(body, &cr); err != nil || !cr.Error {
		t.Errorf("bogus command response = %+v", cr)
	}

	// No API key: the operator subrouter must not match at all.
	status, _ = postCommand("", CommandPost{Command: "status"})
	if status == http.StatusOK {
		t.Errorf("command without api key succeeded")
	}

	status, body = postCommand("testapikey", CommandPost{Command: "stop"})
	if status != http.StatusOK {
		t.Fatalf("command stop = %d %q", status, body)
	}
	if err := json.Unmarshal(body, &cr); err != nil || cr.Status != "stopping" {
		t.Errorf("stop response = %+v", cr)
	}
	select {
	case <-conf.Internal.APIStopCh:
	case <-time.After(2 * time.Second):
		t.Errorf("stop command did not close the stop channel")
	}
}

func TestAPIMetricsEndpoint(t *testing.T) {
	srv, _, _, conf := newTestServer(t)
	signupUser(t, srv, "alice", "supers3cret")

	// The default registry survives across tests, so register only once.
	if err := SetupMetrics(conf); err != nil {
		t.Fatalf("SetupMetrics failed: %v", err)
	}

	status, body := doJSON(t, "GET", srv.URL+"/metrics", "", nil)
	if status != http.StatusOK {
		t.Fatalf("GET /metrics = %d", status)
	}
	text := string(body)
	if !strings.Contains(text, "satsuki_subdomains_total 1") {
		t.Errorf("metrics output misses subdomain gauge:\n%s", text)
	}
	if !strings.Contains(text, "satsuki_users_total 1") {
		t.Errorf("metrics output misses user gauge:\n%s", text)
	}
}
