package destination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client looks destinations up on a remote lookup service.
//
//	GET {base}/destinations?q={query}  -> []Destination
//	GET {base}/destinations/{name}     -> Destination
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client for the given base URL with a 10-second timeout.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, defaultTimeout)
}

// NewClientWithTimeout constructs a Client with a custom request timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// errStatusNotFound marks a 404 from the lookup service.
type errStatusNotFound struct{ url string }

func (e errStatusNotFound) Error() string { return "GET " + e.url + " returned status 404" }

// doGet performs a GET request and decodes the JSON response into dst.
func doGet(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errStatusNotFound{url: rawURL}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", rawURL, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawURL, err)
	}

	return nil
}

// SearchDestinations returns the destinations matching the free-text query.
func (c *Client) SearchDestinations(ctx context.Context, query string) ([]Destination, error) {
	endpoint := c.baseURL + "/destinations?q=" + url.QueryEscape(query)

	var results []Destination
	if err := doGet(ctx, c.client, endpoint, &results); err != nil {
		return nil, NewLookupError(fmt.Sprintf("searching destinations for %q", query), err)
	}

	if results == nil {
		results = []Destination{}
	}
	return results, nil
}

// GetDestinationDetails returns the full record of the destination with the given name.
func (c *Client) GetDestinationDetails(ctx context.Context, name string) (*Destination, error) {
	endpoint := c.baseURL + "/destinations/" + url.PathEscape(name)

	var d Destination
	if err := doGet(ctx, c.client, endpoint, &d); err != nil {
		var nf errStatusNotFound
		if errors.As(err, &nf) {
			return nil, NotFoundError(name)
		}
		return nil, NewLookupError(fmt.Sprintf("fetching details for %q", name), err)
	}

	return &d, nil
}
