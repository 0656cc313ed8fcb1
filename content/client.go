package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eringen/spacetravelling/metrics"
)

// Config configures a Client.
type Config struct {
	Repository  string        // repository name, used to derive the endpoint
	Endpoint    string        // full API endpoint, overrides Repository
	AccessToken string        // optional for public repositories
	Lang        string        // default document language (default "*")
	RefTTL      time.Duration // how long the master ref is reused (default 10s)
	Timeout     time.Duration // per-request timeout (default 10s)
	Retry       RetryPolicy
	HTTPClient  *http.Client
	Recorder    metrics.Recorder
}

// Endpoint returns the API endpoint for a repository name.
func Endpoint(repository string) string {
	return "https://" + repository + ".cdn.prismic.io/api/v2"
}

// Client talks to the CMS REST API (v2).
type Client struct {
	endpoint string
	token    string
	lang     string
	refTTL   time.Duration
	retry    RetryPolicy
	http     *http.Client
	recorder metrics.Recorder

	mu         sync.Mutex
	masterRef  string
	refFetched time.Time
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		if cfg.Repository == "" {
			return nil, errors.New("content: repository or endpoint is required")
		}
		endpoint = Endpoint(cfg.Repository)
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("content: invalid endpoint %q: %w", endpoint, err)
	}
	c := &Client{
		endpoint: endpoint,
		token:    cfg.AccessToken,
		lang:     cfg.Lang,
		refTTL:   cfg.RefTTL,
		retry:    cfg.Retry,
		http:     cfg.HTTPClient,
		recorder: metrics.OrNoop(cfg.Recorder),
	}
	if c.lang == "" {
		c.lang = "*"
	}
	if c.refTTL == 0 {
		c.refTTL = 10 * time.Second
	}
	if c.retry == (RetryPolicy{}) {
		c.retry = DefaultRetryPolicy()
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c, nil
}

type apiRoot struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// Ref returns the current master ref, fetching it when the cached one expired.
func (c *Client) Ref(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.masterRef != "" && time.Since(c.refFetched) < c.refTTL {
		ref := c.masterRef
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	var root apiRoot
	if err := c.getJSON(ctx, "ref", c.withToken(c.endpoint, nil), &root); err != nil {
		return "", err
	}
	for _, r := range root.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.masterRef = r.Ref
			c.refFetched = time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", errors.New("content: api returned no master ref")
}

// Search runs a typed, paginated query ordered by first publication date, newest first.
func (c *Client) Search(ctx context.Context, q Query) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf(`[[at(document.type,"%s")]]`, q.Type))
	params.Set("orderings", "[document.first_publication_date desc]")
	page := q.Page
	if page <= 0 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(size))
	var res SearchResult
	if err := c.search(ctx, "search", params, q.QueryOptions, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ByUID returns the document of docType with the given UID.
func (c *Client) ByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf(`[[at(my.%s.uid,"%s")]]`, docType, escapePredicate(uid)))
	params.Set("pageSize", "1")
	return c.single(ctx, "by_uid", params, opts)
}

// ByID returns the document with the given ID.
func (c *Client) ByID(ctx context.Context, id string, opts QueryOptions) (*Document, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf(`[[at(document.id,"%s")]]`, escapePredicate(id)))
	params.Set("pageSize", "1")
	if opts.Lang == "" {
		opts.Lang = "*"
	}
	return c.single(ctx, "by_id", params, opts)
}

func (c *Client) single(ctx context.Context, op string, params url.Values, opts QueryOptions) (*Document, error) {
	var res SearchResult
	if err := c.search(ctx, op, params, opts, &res); err != nil {
		return nil, err
	}
	if len(res.Results) == 0 {
		return nil, ErrNotFound
	}
	doc := res.Results[0]
	return &doc, nil
}

func (c *Client) search(ctx context.Context, op string, params url.Values, opts QueryOptions, out *SearchResult) error {
	ref := opts.Ref
	if ref == "" {
		var err error
		if ref, err = c.Ref(ctx); err != nil {
			return err
		}
	}
	params.Set("ref", ref)
	lang := opts.Lang
	if lang == "" {
		lang = c.lang
	}
	params.Set("lang", lang)
	return c.getJSON(ctx, op, c.withToken(c.endpoint+"/documents/search", params), out)
}

func (c *Client) withToken(base string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.token != "" {
		params.Set("access_token", c.token)
	}
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

// getJSON performs a GET and decodes the body into out, retrying transient failures.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, out any) error {
	var err error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			c.recorder.IncFetchRetry(op)
			t := time.NewTimer(c.retry.Delay(attempt))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		start := time.Now()
		err = c.fetch(ctx, rawURL, out)
		c.recorder.ObserveFetch(op, time.Since(start), err == nil)
		if err == nil || !transient(ctx, err) {
			return err
		}
	}
	return fmt.Errorf("content: %s: retries exhausted: %w", op, err)
}

func (c *Client) fetch(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, URL: redact(rawURL), Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("content: decode response: %w", err)
	}
	return nil
}

func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// redact drops the access token from URLs that end up in errors and logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func escapePredicate(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
