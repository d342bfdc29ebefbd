/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func WalkRoutes(router *mux.Router, address string) {
	log.Printf("Defined API endpoints for router on: %s\n", address)

	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Panicf("Logging err: %s\n", err.Error())
	}
}

// SetupRouter builds the full HTTP surface: public endpoints, the Basic
// auth user endpoints and the X-API-Key operator endpoints. Route order
// matters: the operator subrouter must be registered before the user
// subrouter or /api/v1 requests would hit the Basic auth middleware.
func SetupRouter(conf *Config) (*mux.Router, error) {
	r := mux.NewRouter().StrictSlash(true)
	apikey := conf.Service.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("service.apikey is not set")
	}

	// Public endpoints
	r.HandleFunc("/health", APIhealth(conf)).Methods("GET")
	r.HandleFunc("/api/about", APIabout(conf)).Methods("GET")
	r.HandleFunc("/api/subdomain/check", APIcheck(conf)).Methods("GET")
	r.HandleFunc("/api/subdomain/list", APIlist(conf)).Methods("GET")
	r.HandleFunc("/api/subdomain/soa", APIsoa(conf)).Methods("GET")
	r.HandleFunc("/api/signup", APIsignup(conf)).Methods("POST")
	r.HandleFunc("/api/signin", APIsignin(conf)).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Operator endpoints
	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()
	sr.HandleFunc("/ping", APIping(conf)).Methods("POST")
	sr.HandleFunc("/command", APIcommand(conf)).Methods("POST")

	// Per-user endpoints
	ur := r.PathPrefix("/api").Subrouter()
	ur.Use(BasicAuthMiddleware(conf))
	ur.HandleFunc("/profile", APIprofile(conf)).Methods("GET")
	ur.HandleFunc("/zone", APIzoneGet(conf)).Methods("GET")
	ur.HandleFunc("/zone", APIzonePut(conf)).Methods("PUT")
	ur.HandleFunc("/ns-mode/internal", APInsInternal(conf)).Methods("POST")
	ur.HandleFunc("/ns-mode/external", APInsExternal(conf)).Methods("POST")
	ur.HandleFunc("/password/change", APIpasswordChange(conf)).Methods("POST")

	return r, nil
}

func APIdispatcher(conf *Config, router *mux.Router, done <-chan struct{}) error {
	address := conf.Service.Listen
	if address == "" {
		log.Println("APIdispatcher: no address to listen on (key 'service.listen' not set). Not starting.")
		return fmt.Errorf("no address to listen on")
	}

	WalkRoutes(router, address)
	log.Println("")

	srv := &http.Server{
		Addr:    address,
		Handler: router,
	}

	go func() {
		log.Printf("Starting API dispatcher. Listening on '%s'\n", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	go func() {
		<-done
		log.Println("Shutting down API server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Printf("API server Shutdown: %v", err)
		}
	}()

	return nil
}
