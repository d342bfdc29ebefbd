/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"encoding/json"
	"log"
	"net/http"
)

// Zone and delegation endpoints, all behind BasicAuthMiddleware.

func APIzoneGet(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}

		records, err := p.GetZone(r.Context(), u.Subdomain)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func APIzonePut(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}

		decoder := json.NewDecoder(r.Body)
		var zp ZoneUpdatePost
		err := decoder.Decode(&zp)
		if err != nil {
			log.Println("APIzonePut: error decoding zone update post:", err)
			writeAPIError(w, Errf(ErrValidation, "invalid JSON body"))
			return
		}

		log.Printf("APIzonePut: replacing zone contents for %s (%d records)", u.Subdomain, len(zp.Records))

		if err := p.PutZone(r.Context(), u.Subdomain, zp.Records); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

func APInsExternal(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}

		decoder := json.NewDecoder(r.Body)
		var np NsModePost
		err := decoder.Decode(&np)
		if err != nil {
			log.Println("APInsExternal: error decoding ns post:", err)
			writeAPIError(w, Errf(ErrValidation, "invalid JSON body"))
			return
		}

		log.Printf("APInsExternal: switching %s to external NS %v", u.Subdomain, np.Ns)

		if err := p.SwitchExternal(r.Context(), u.Subdomain, np.Ns); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}

func APInsInternal(conf *Config) func(w http.ResponseWriter, r *http.Request) {
	p := conf.Internal.Provisioner
	return func(w http.ResponseWriter, r *http.Request) {
		u := AuthedUser(r)
		if u == nil {
			writeAPIError(w, Errf(ErrAuth, "invalid credentials"))
			return
		}

		log.Printf("APInsInternal: switching %s back to internal NS", u.Subdomain)

		if err := p.SwitchInternal(r.Context(), u.Subdomain); err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, OkResponse{Ok: true})
	}
}
