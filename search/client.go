// Package search queries the registry's public directory service for
// one practitioner at a time and maps the response onto neutral domain
// fields. All of the service's magic numeric codes are fenced inside
// this package.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// searchPath is the form endpoint of the directory service.
const searchPath = "/FR/Suche/GetSearchData"

// EmptyRecordError reports a lookup that returned zero or ambiguous
// matches for a GLN.
type EmptyRecordError struct {
	GLN   string
	Rows  int
	Total int
}

func (e *EmptyRecordError) Error() string {
	return fmt.Sprintf("search: empty record for GLN %s (%d rows, %d total)", e.GLN, e.Rows, e.Total)
}

// FetchError reports a lookup that failed at the transport, HTTP or
// parse level.
type FetchError struct {
	GLN string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("search: unable to get data for GLN %s: %v", e.GLN, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewHTTPClient builds the retrying HTTP client shared by all remote
// calls of a run.
func NewHTTPClient(timeout time.Duration, retryMax int) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.Logger = nil
	retryClient.HTTPClient = &http.Client{Timeout: timeout}
	return retryClient.StandardClient()
}

// Client looks up individual practitioner records.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a directory service client.
func NewClient(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// Lookup performs a single form-POST search for a GLN. Exactly one of
// three outcomes occurs: a Record when the service reports exactly one
// match, an EmptyRecordError when it reports zero or several, or a
// FetchError when the call fails underway.
func (c *Client) Lookup(ctx context.Context, gln string) (*Record, error) {
	form := url.Values{"Gln": {gln}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+searchPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &FetchError{GLN: gln, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{GLN: gln, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{GLN: gln, Err: fmt.Errorf("HTTP %s", resp.Status)}
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{GLN: gln, Err: fmt.Errorf("malformed response body: %w", err)}
	}

	if len(body.Rows) != 1 || body.Settings.TotalRecords != 1 {
		return nil, &EmptyRecordError{GLN: gln, Rows: len(body.Rows), Total: body.Settings.TotalRecords}
	}

	c.log.Debug().Str("gln", gln).Msg("Record found")
	return body.record(gln), nil
}
