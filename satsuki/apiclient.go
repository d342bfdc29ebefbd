/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */

package satsuki

// Client side API calls, used by satsuki-cli.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

type ApiClient struct {
	Name       string
	BaseUrl    string
	apiKey     string
	Authmethod string
	authUser   string
	authPass   string
	Client     *http.Client
	Verbose    bool
	Debug      bool
}

func NewClient(name, baseurl, apikey, authmethod string, verbose, debug bool) *ApiClient {
	api := ApiClient{
		Name:       name,
		BaseUrl:    baseurl,
		apiKey:     apikey,
		Authmethod: authmethod,
	}
	api.Client = &http.Client{}
	api.Verbose = verbose
	api.Debug = debug

	if debug {
		fmt.Printf("Setting up %s API client:\n", name)
		fmt.Printf("* baseurl is: %s \n* authmethod is: %s \n", api.BaseUrl, api.Authmethod)
	}

	return &api
}

// SetBasicAuth switches the client to user credentials for the per-user
// endpoints.
func (api *ApiClient) SetBasicAuth(username, password string) {
	api.Authmethod = "Basic"
	api.authUser = username
	api.authPass = password
}

// request helper function
func (api *ApiClient) requestHelper(req *http.Request) (int, []byte, error) {

	req.Header.Add("Content-Type", "application/json")

	switch api.Authmethod {
	case "":
		// do not add any authentication header at all
	case "X-API-Key":
		if api.apiKey == "" {
			log.Fatalf("api.requestHelper: Error: apikey not set.\n")
		}
		req.Header.Add("X-API-Key", api.apiKey)
	case "Basic":
		req.SetBasicAuth(api.authUser, api.authPass)
	default:
		log.Printf("Error: Client API request: unknown auth method: %s. Aborting.\n",
			api.Authmethod)
		return 501, []byte{}, fmt.Errorf("unknown auth method: %s", api.Authmethod)
	}

	if api.Debug {
		fmt.Printf("requestHelper: about to send request to '%s' using auth method '%s'\n",
			req.URL, api.Authmethod)
	}

	resp, err := api.Client.Do(req)

	if err != nil {
		return 501, nil, err
	}

	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if api.Debug {
		var prettyJSON bytes.Buffer
		error := json.Indent(&prettyJSON, buf, "", "  ")
		if error != nil {
			log.Println("JSON parse error: ", error)
		}
		fmt.Printf("requestHelper: received %d bytes of response data:\n%s\n", len(buf),
			prettyJSON.String())
	}

	return resp.StatusCode, buf, err
}

func (api *ApiClient) Get(endpoint string) (int, []byte, error) {

	if api.Debug {
		fmt.Printf("api.Get: GET URL '%s'\n", api.BaseUrl+endpoint)
	}

	req, err := http.NewRequest(http.MethodGet, api.BaseUrl+endpoint, nil)
	if err != nil {
		log.Fatalf("Error from http.NewRequest: Error: %v", err)
	}
	return api.requestHelper(req)
}

func (api *ApiClient) Post(endpoint string, data []byte) (int, []byte, error) {

	if api.Debug {
		var prettyJSON bytes.Buffer
		error := json.Indent(&prettyJSON, data, "", "  ")
		if error != nil {
			log.Println("JSON parse error: ", error)
		}
		fmt.Printf("api.Post: posting to URL '%s' %d bytes of data:\n%s\n",
			api.BaseUrl+endpoint, len(data), prettyJSON.String())
	}

	req, err := http.NewRequest(http.MethodPost, api.BaseUrl+endpoint,
		bytes.NewBuffer(data))
	if err != nil {
		log.Fatalf("Error from http.NewRequest: Error: %v", err)
	}
	return api.requestHelper(req)
}

func (api *ApiClient) Put(endpoint string, data []byte) (int, []byte, error) {

	if api.Debug {
		fmt.Printf("api.Put: PUT URL '%s' %d bytes of data\n", api.BaseUrl+endpoint, len(data))
	}

	req, err := http.NewRequest(http.MethodPut, api.BaseUrl+endpoint,
		bytes.NewBuffer(data))
	if err != nil {
		log.Fatalf("Error from http.NewRequest: Error: %v", err)
	}
	return api.requestHelper(req)
}

func (api *ApiClient) SendPing(pingcount int, dieOnError bool) (PingResponse, error) {
	data := PingPost{
		Msg:   "ping",
		Pings: pingcount,
	}

	bytebuf := new(bytes.Buffer)
	json.NewEncoder(bytebuf).Encode(data)

	_, buf, err := api.Post("/api/v1/ping", bytebuf.Bytes())
	if err != nil {
		if dieOnError {
			log.Fatalf("SendPing: error from api.Post: %v", err)
		}
		return PingResponse{}, err
	}

	var pr PingResponse
	err = json.Unmarshal(buf, &pr)
	if err != nil {
		return pr, fmt.Errorf("error from unmarshal: %v", err)
	}
	return pr, nil
}
