/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Public, unauthenticated endpoints.

func APIhealth(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

func APIabout(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, AboutResponse{BaseDomain: conf.Dns.BaseDomain})
	}
}

// APIcheck answers the availability probe. An invalid label is simply
// not available; only a missing parameter is a client error.
func APIcheck(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			writeAPIError(w, Errf(ErrValidation, "missing 'name' parameter"))
			return
		}
		available, err := p.CheckAvailable(name)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, CheckResponse{Available: available})
	}
}

func APIlist(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := p.ListDelegations(r.Context())
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func APIsoa(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		soa, err := p.ParentSOA(r.Context())
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SoaResponse{Soa: soa})
	}
}

func APIsignup(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {

		decoder := json.NewDecoder(r.Body)
		var sp SignupPost
		err := decoder.Decode(&sp)
		if err != nil {
			log.Println("APIsignup: error decoding signup post:", err)
			writeAPIError(w, Errf(ErrValidation, "invalid JSON body"))
			return
		}

		log.Printf("APIsignup: received signup request for %q from %s.\n", sp.Subdomain, r.RemoteAddr)

		if err := p.Signup(r.Context(), sp.Subdomain, sp.Password); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

// APIsignin verifies credentials outside the Basic auth subrouter, so a
// frontend can probe a password without hitting a protected endpoint.
func APIsignin(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {

		decoder := json.NewDecoder(r.Body)
		var sp SigninPost
		err := decoder.Decode(&sp)
		if err != nil {
			log.Println("APIsignin: error decoding signin post:", err)
			writeAPIError(w, Errf(ErrValidation, "invalid JSON body"))
			return
		}

		_, err = conf.Internal.UserDB.VerifyAndTouch(sp.Subdomain, sp.Password, time.Now())
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

// Endpoints below sit behind BasicAuthMiddleware.

func APIprofile(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}
		writeJSON(w, http.StatusOK, ProfileResponse{
			Subdomain:   u.Subdomain,
			ExternalNs:  u.ExternalNs,
			ExternalNs1: u.ExternalNs1,
			ExternalNs2: u.ExternalNs2,
			ExternalNs3: u.ExternalNs3,
			ExternalNs4: u.ExternalNs4,
			ExternalNs5: u.ExternalNs5,
			ExternalNs6: u.ExternalNs6,
		})
	}
}

func APIpasswordChange(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}

		decoder := json.NewDecoder(r.Body)
		var pp PasswordChangePost
		err := decoder.Decode(&pp)
		if err != nil {
			log.Println("APIpasswordChange: error decoding password post:", err)
			writeAPIError(w, Errf(ErrValidation, "invalid JSON body"))
			return
		}

		if err := p.ChangePassword(u.Subdomain, pp.CurrentPassword, pp.NewPassword); err != nil {
			writeAPIError(w, err)
			return
		}
		log.Printf("APIpasswordChange: password changed for %s", u.Subdomain)
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

// Operator channel, behind the X-API-Key subrouter.

func APIcommand(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		stopCh := conf.Internal.APIStopCh

		decoder := json.NewDecoder(r.Body)
		var cp CommandPost
		err := decoder.Decode(&cp)
		if err != nil {
			log.Println("APIcommand: error decoding command post:", err)
		}

		log.Printf("API: received /command request (cmd: %s) from %s. AppName: %s\n",
			cp.Command, r.RemoteAddr, Globals.App.Name)

		resp := CommandResponse{
			Time:    time.Now(),
			AppName: Globals.App.Name,
		}

		switch cp.Command {
		case "status":
			count, err := conf.Internal.UserDB.CountUsers()
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			dcount, err := conf.Internal.Provisioner.CountDelegations(r.Context())
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			resp.Status = "ok"
			resp.UserCount = count
			resp.DelegationCount = dcount
			resp.Msg = fmt.Sprintf("%s: %d users, %d delegations", Globals.App.Name, count, dcount)

		case "userlist":
			resp.Users, err = conf.Internal.UserDB.ListUsers()
			if err != nil {
				resp.Error = true
				resp.ErrorMsg = err.Error()
				break
			}
			resp.Status = "ok"

		case "stop":
			log.Printf("Daemon instructed to stop\n")
			resp.Status = "stopping"
			resp.Msg = fmt.Sprintf("%s: Daemon was happy, but now winding down", Globals.App.Name)

			go func() {
				// Allow the HTTP response to be sent before triggering shutdown
				time.Sleep(200 * time.Millisecond)
				conf.Internal.StopOnce.Do(func() {
					close(stopCh)
				})
			}()

		default:
			resp.ErrorMsg = fmt.Sprintf("%s: Unknown command: %s", Globals.App.Name, cp.Command)
			resp.Error = true
		}

		w.Header().Set("Content-Type", "application/json")
		err = json.NewEncoder(w).Encode(resp)
		if err != nil {
			log.Printf("Error from json encoder: %v", err)
		}
	}
}
