// Package oddsapi is a thin client for The Odds API v4. Each call is one GET
// request whose JSON body is handed back exactly as the server sent it.
package oddsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/oddsapi-go/pkg/httpclient"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com"
	apiVersion     = "v4"

	HeaderRequestsRemaining = "x-requests-remaining"
	HeaderRequestsUsed      = "x-requests-used"
)

// Observer receives one callback per completed round trip. statusCode is -1
// when no response arrived.
type Observer interface {
	ObserveRequest(op Operation, statusCode int, elapsed time.Duration, header http.Header)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(Operation, int, time.Duration, http.Header) {}

// Client issues requests against The Odds API. It keeps no per-call state and
// is safe for concurrent use.
type Client struct {
	apiKey   string
	baseURL  string
	timeout  time.Duration
	http     httpclient.Client
	log      Logger
	observer Observer
	defaults Defaults
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient swaps the transport.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the default transport. Ignored when
// WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the sink for failure and usage diagnostics.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.log = ensureLogger(l) }
}

// WithObserver registers a request observer, typically metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithDefaults overrides the stock defaults field by field.
func WithDefaults(d Defaults) Option {
	return func(c *Client) { c.defaults = d.merge(c.defaults) }
}

// New builds a client bound to apiKey. The key may be empty if every call
// supplies its own.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  DefaultBaseURL,
		timeout:  httpclient.DefaultTimeout,
		log:      noopLogger{},
		observer: nopObserver{},
		defaults: NewDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout)
	}
	return c
}

// Defaults returns the effective defaults.
func (c *Client) Defaults() Defaults { return c.defaults }

// ListSports returns the sports catalogue. With All unset or true, out-of-season
// sports are included.
func (c *Client) ListSports(ctx context.Context, p SportsParams) (json.RawMessage, error) {
	key, err := c.credential(p.APIKey)
	if err != nil {
		return nil, err
	}
	all := true
	if p.All != nil {
		all = *p.All
	}
	resp, err := c.get(ctx, OpSports, sportsPath(), map[string]string{
		"apiKey": key,
		"all":    strconv.FormatBool(all),
	})
	if err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// GetOdds returns live and upcoming events for a sport with bookmaker odds.
// Each call costs markets x regions usage credits upstream.
func (c *Client) GetOdds(ctx context.Context, p OddsParams) (json.RawMessage, error) {
	key, err := c.credential(p.APIKey)
	if err != nil {
		return nil, err
	}
	sport := firstNonEmpty(p.SportKey, c.defaults.SportKey)
	resp, err := c.get(ctx, OpOdds, sportPath(sport, "odds"), map[string]string{
		"apiKey":     key,
		"regions":    firstNonEmpty(p.Regions, c.defaults.Regions),
		"markets":    firstNonEmpty(p.Markets, c.defaults.Markets),
		"oddsFormat": firstNonEmpty(p.OddsFormat, c.defaults.OddsFormat),
		"dateFormat": firstNonEmpty(p.DateFormat, c.defaults.DateFormat),
	})
	if err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// QuotaCost is the number of usage credits GetOdds(p) will be billed upstream:
// markets x regions after defaults are applied. Nothing is enforced locally.
func (c *Client) QuotaCost(p OddsParams) int {
	return countList(firstNonEmpty(p.Markets, c.defaults.Markets)) *
		countList(firstNonEmpty(p.Regions, c.defaults.Regions))
}

// GetScores returns live and recently completed games for a sport. Games that
// have not started carry null scores.
func (c *Client) GetScores(ctx context.Context, p ScoresParams) (json.RawMessage, error) {
	key, err := c.credential(p.APIKey)
	if err != nil {
		return nil, err
	}
	days := DefaultDaysFrom
	switch {
	case p.DaysFrom != nil:
		days = *p.DaysFrom
	case c.defaults.DaysFrom != nil:
		days = *c.defaults.DaysFrom
	}
	sport := firstNonEmpty(p.SportKey, c.defaults.SportKey)
	resp, err := c.get(ctx, OpScores, sportPath(sport, "scores"), map[string]string{
		"apiKey":     key,
		"daysFrom":   strconv.Itoa(days),
		"dateFormat": firstNonEmpty(p.DateFormat, c.defaults.DateFormat),
	})
	if err != nil {
		return nil, err
	}
	return rawBody(resp), nil
}

// GetUsage hits the sports listing only to read the quota headers. The body is
// discarded. The upstream endpoint takes the key as api_key here.
func (c *Client) GetUsage(ctx context.Context, p UsageParams) (Usage, error) {
	key, err := c.credential(p.APIKey)
	if err != nil {
		return Usage{}, err
	}
	resp, err := c.get(ctx, OpUsage, sportsPath(), map[string]string{
		"api_key": key,
	})
	if err != nil {
		return Usage{}, err
	}
	usage := usageFromHeader(resp.Header())
	c.log.InfoObj("usage quota", "usage", usage.Map())
	return usage, nil
}

func (c *Client) credential(override string) (string, error) {
	key := strings.TrimSpace(firstNonEmpty(override, c.apiKey))
	if key == "" {
		return "", ErrMissingCredential
	}
	return key, nil
}

func (c *Client) get(ctx context.Context, op Operation, path string, query map[string]string) (httpclient.Response, error) {
	start := time.Now()
	resp, err := c.http.Get(ctx, c.baseURL+path, query, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		c.observer.ObserveRequest(op, -1, time.Since(start), nil)
		return nil, &TransportError{Operation: op, Err: err}
	}
	c.observer.ObserveRequest(op, resp.StatusCode(), time.Since(start), resp.Header())

	if resp.StatusCode() != http.StatusOK {
		body := string(resp.Body())
		c.log.ErrorObj(failureMessage(op), "response", map[string]any{
			"status_code": resp.StatusCode(),
			"body":        body,
		})
		return nil, &StatusError{Operation: op, StatusCode: resp.StatusCode(), Body: body}
	}
	return resp, nil
}

func failureMessage(op Operation) string {
	switch op {
	case OpOdds:
		return "failed to get sport odds"
	case OpScores:
		return "failed to get sport scores"
	case OpUsage:
		return "failed to get usage"
	default:
		return "failed to get sports"
	}
}

func sportsPath() string {
	return "/" + apiVersion + "/sports"
}

func sportPath(sport, resource string) string {
	return sportsPath() + "/" + url.PathEscape(sport) + "/" + resource
}

func rawBody(resp httpclient.Response) json.RawMessage {
	body := resp.Body()
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
