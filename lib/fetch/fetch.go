// Package fetch is the HTTP layer underneath every source adapter. It
// issues single and fanned-out GET requests through a shared resty
// client and returns raw bodies tagged with the role of the endpoint
// they came from, so merge logic never has to rely on completion order.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"runtime"
	"sync"
	"time"
	"macrocast-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = time.Second * 60

// TransportError wraps a network failure or a non-2xx response. There
// is no retry policy here, the caller decides what to do with it.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Err.Error())
	}
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Endpoint is one entry of an adapter's request manifest. Role lets
// merge logic identify a response no matter when it completed.
type Endpoint struct {
	Role   string
	Url    string
	Params map[string]string
}

type Response struct {
	Role       string
	Url        string
	StatusCode int
	Body       []byte
}

type Options struct {
	Timeout time.Duration
	Headers map[string]string
	// skips certificate validation for this client only, never
	// a process-wide setting
	InsecureSkipVerify bool
	// routes requests through a browser-like transport, needed by
	// some of the scraped hosts
	BrowserProfile bool
}

type Client struct {
	http *resty.Client
}

func NewClient(opts Options) *Client {
	client := resty.New()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	for k, v := range opts.Headers {
		client.SetHeader(k, v)
	}
	if opts.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if opts.BrowserProfile {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	telemetry.InstrumentResty(client, "lib/fetch")

	return &Client{http: client}
}

// Fetch performs a single GET. Any transport failure or non-2xx status
// comes back as a *TransportError.
func (c *Client) Fetch(ctx context.Context, endpoint Endpoint) (Response, error) {
	req := c.http.R().SetContext(ctx)
	if len(endpoint.Params) > 0 {
		req.SetQueryParams(endpoint.Params)
	}

	res, err := req.Get(endpoint.Url)
	if err != nil {
		return Response{}, &TransportError{URL: endpoint.Url, Err: err}
	}
	if res.IsError() {
		return Response{}, &TransportError{URL: endpoint.Url, StatusCode: res.StatusCode()}
	}

	return Response{
		Role:       endpoint.Role,
		Url:        endpoint.Url,
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
	}, nil
}

// FetchConcurrent fans out over the manifest with a bounded worker
// pool. Responses are collected as they complete; order is not
// meaningful, use Response.Role to tell them apart. The first error
// fails the whole batch.
func (c *Client) FetchConcurrent(ctx context.Context, endpoints []Endpoint) ([]Response, error) {
	workers := runtime.NumCPU()
	if workers > len(endpoints) {
		workers = len(endpoints)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan Endpoint)
	results := make([]Response, 0, len(endpoints))

	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				res, err := c.Fetch(ctx, endpoint)

				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					results = append(results, res)
				}
				mu.Unlock()
			}
		}()
	}

	for _, endpoint := range endpoints {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()

	if len(errs) > 0 {
		return nil, errs[0]
	}
	return results, nil
}
