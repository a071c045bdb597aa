// Package postal resolves a 6-digit PIN code to district and state through
// the public postal API. Lookups are best effort: on any upstream problem
// the caller gets an empty result and the address fields stay editable.
package postal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Result struct {
	District string `json:"district"`
	State    string `json:"state"`
}

type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
	}
}

// upstream response shape: [{Status, PostOffice: [{District, State}]}]
type upstreamEntry struct {
	Status     string `json:"Status"`
	PostOffice []struct {
		District string `json:"District"`
		State    string `json:"State"`
	} `json:"PostOffice"`
}

// Lookup returns (nil, nil) when the code cannot be resolved; an error is
// only returned for a malformed pincode, which the caller validated anyway.
func (c *Client) Lookup(ctx context.Context, pincode string) (*Result, error) {
	if len(pincode) != 6 {
		return nil, fmt.Errorf("pincode must be 6 digits")
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/pincode/%s", c.BaseURL, pincode), nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, nil
	}

	var entries []upstreamEntry
	if err := json.NewDecoder(res.Body).Decode(&entries); err != nil {
		return nil, nil
	}
	if len(entries) == 0 || entries[0].Status != "Success" || len(entries[0].PostOffice) == 0 {
		return nil, nil
	}
	po := entries[0].PostOffice[0]
	return &Result{District: po.District, State: po.State}, nil
}
