package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/oddsapi-go/pkg/httpclient"
)

type recordedLog struct {
	level string
	msg   string
	key   string
	obj   interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []recordedLog
}

func (r *recordingLogger) InfoObj(msg, key string, obj interface{}) {
	r.add("info", msg, key, obj)
}

func (r *recordingLogger) ErrorObj(msg, key string, obj interface{}) {
	r.add("error", msg, key, obj)
}

func (r *recordingLogger) add(level, msg, key string, obj interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedLog{level: level, msg: msg, key: key, obj: obj})
}

type observed struct {
	op     Operation
	status int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (r *recordingObserver) ObserveRequest(op Operation, status int, _ time.Duration, _ http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, observed{op: op, status: status})
}

// capture records the last request seen by the test server.
type capture struct {
	mu    sync.Mutex
	path  string
	query url.Values
}

func (c *capture) set(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = r.URL.EscapedPath()
	c.query = r.URL.Query()
}

func newServer(t *testing.T, status int, body string, header map[string]string) (*httptest.Server, *capture) {
	t.Helper()
	cp := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cp.set(r)
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, cp
}

func TestListSportsReturnsBodyVerbatim(t *testing.T) {
	body := `[{"key":"nba","title":"NBA"}]`
	srv, cp := newServer(t, http.StatusOK, body, nil)

	client := New("key-1", WithBaseURL(srv.URL))
	raw, err := client.ListSports(context.Background(), SportsParams{})
	require.NoError(t, err)
	assert.Equal(t, body, string(raw))

	var sports []map[string]any
	require.NoError(t, json.Unmarshal(raw, &sports))
	require.Len(t, sports, 1)
	assert.Equal(t, map[string]any{"key": "nba", "title": "NBA"}, sports[0])

	assert.Equal(t, "/v4/sports", cp.path)
	assert.Equal(t, "key-1", cp.query.Get("apiKey"))
	assert.Equal(t, "true", cp.query.Get("all"))
}

func TestListSportsAllFalse(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)

	client := New("k", WithBaseURL(srv.URL))
	_, err := client.ListSports(context.Background(), SportsParams{All: Bool(false)})
	require.NoError(t, err)
	assert.Equal(t, "false", cp.query.Get("all"))
}

func TestGetOddsPlacesParams(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)

	client := New("k", WithBaseURL(srv.URL))
	_, err := client.GetOdds(context.Background(), OddsParams{
		SportKey:   "basketball_nba",
		Regions:    "us",
		Markets:    "h2h,spreads",
		OddsFormat: "american",
		DateFormat: "unix",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v4/sports/basketball_nba/odds", cp.path)
	assert.Equal(t, url.Values{
		"apiKey":     {"k"},
		"regions":    {"us"},
		"markets":    {"h2h,spreads"},
		"oddsFormat": {"american"},
		"dateFormat": {"unix"},
	}, cp.query)
}

func TestGetOddsUsesDefaults(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)

	client := New("k", WithBaseURL(srv.URL), WithDefaults(Defaults{SportKey: "soccer_epl", Regions: "uk"}))
	_, err := client.GetOdds(context.Background(), OddsParams{})
	require.NoError(t, err)

	assert.Equal(t, "/v4/sports/soccer_epl/odds", cp.path)
	assert.Equal(t, "uk", cp.query.Get("regions"))
	assert.Equal(t, DefaultMarkets, cp.query.Get("markets"))
	assert.Equal(t, DefaultOddsFormat, cp.query.Get("oddsFormat"))
	assert.Equal(t, DefaultDateFormat, cp.query.Get("dateFormat"))
}

func TestGetScoresPassesDaysFromThrough(t *testing.T) {
	for _, days := range []int{1, 3, 0, 7, -2} {
		srv, cp := newServer(t, http.StatusOK, `[]`, nil)
		client := New("k", WithBaseURL(srv.URL))

		_, err := client.GetScores(context.Background(), ScoresParams{SportKey: "icehockey_nhl", DaysFrom: Int(days)})
		require.NoError(t, err)
		assert.Equal(t, "/v4/sports/icehockey_nhl/scores", cp.path)
		assert.Equal(t, strconv.Itoa(days), cp.query.Get("daysFrom"))
		assert.Equal(t, "iso", cp.query.Get("dateFormat"))
		assert.Equal(t, "k", cp.query.Get("apiKey"))
	}
}

func TestGetScoresDefaultDaysFrom(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)
	client := New("k", WithBaseURL(srv.URL))

	_, err := client.GetScores(context.Background(), ScoresParams{})
	require.NoError(t, err)
	assert.Equal(t, "1", cp.query.Get("daysFrom"))
	assert.Equal(t, "/v4/sports/basketball_nba/scores", cp.path)
}

func TestGetScoresDefaultsDaysFromZero(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)
	client := New("k", WithBaseURL(srv.URL), WithDefaults(Defaults{DaysFrom: Int(0)}))

	_, err := client.GetScores(context.Background(), ScoresParams{})
	require.NoError(t, err)
	assert.Equal(t, "0", cp.query.Get("daysFrom"))
}

func TestGetOddsSendsValuesAsGiven(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)
	client := New("k", WithBaseURL(srv.URL))

	_, err := client.GetOdds(context.Background(), OddsParams{
		Regions:    " us ",
		Markets:    "H2H",
		OddsFormat: "Decimal",
	})
	require.NoError(t, err)
	assert.Equal(t, " us ", cp.query.Get("regions"))
	assert.Equal(t, "H2H", cp.query.Get("markets"))
	assert.Equal(t, "Decimal", cp.query.Get("oddsFormat"))
}

func TestClientQuotaCostAppliesDefaults(t *testing.T) {
	client := New("k")
	assert.Equal(t, 2, client.QuotaCost(OddsParams{}))
	assert.Equal(t, 3, client.QuotaCost(OddsParams{Markets: "h2h,spreads,totals"}))
	assert.Equal(t, 4, client.QuotaCost(OddsParams{Regions: "us,uk"}))

	custom := New("k", WithDefaults(Defaults{Regions: "us,uk,eu", Markets: "h2h"}))
	assert.Equal(t, 3, custom.QuotaCost(OddsParams{}))
}

func TestGetUsageReadsHeadersLiterally(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[{"key":"ignored"}]`, map[string]string{
		HeaderRequestsRemaining: "4499996",
		HeaderRequestsUsed:      "0004",
	})
	log := &recordingLogger{}

	client := New("k", WithBaseURL(srv.URL), WithLogger(log))
	usage, err := client.GetUsage(context.Background(), UsageParams{})
	require.NoError(t, err)

	assert.Equal(t, Usage{Remaining: "4499996", Used: "0004"}, usage)
	assert.Equal(t, map[string]string{
		"Remaining requests": "4499996",
		"Used requests":      "0004",
	}, usage.Map())

	assert.Equal(t, "/v4/sports", cp.path)
	assert.Equal(t, "k", cp.query.Get("api_key"))
	assert.Empty(t, cp.query.Get("apiKey"))

	require.Len(t, log.entries, 1)
	assert.Equal(t, "info", log.entries[0].level)
	assert.Equal(t, usage.Map(), log.entries[0].obj)
}

func TestNon200ProducesDiagnosticAndNoValue(t *testing.T) {
	const body = `{"message":"Invalid API key"}`
	calls := map[Operation]func(*Client) (any, error){
		OpSports: func(c *Client) (any, error) { return c.ListSports(context.Background(), SportsParams{}) },
		OpOdds:   func(c *Client) (any, error) { return c.GetOdds(context.Background(), OddsParams{}) },
		OpScores: func(c *Client) (any, error) { return c.GetScores(context.Background(), ScoresParams{}) },
		OpUsage:  func(c *Client) (any, error) { return c.GetUsage(context.Background(), UsageParams{}) },
	}

	for op, call := range calls {
		for _, status := range []int{http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
			t.Run(string(op)+"_"+strconv.Itoa(status), func(t *testing.T) {
				srv, _ := newServer(t, status, body, nil)
				log := &recordingLogger{}
				client := New("k", WithBaseURL(srv.URL), WithLogger(log))

				got, err := call(client)
				require.Error(t, err)

				var se *StatusError
				require.True(t, errors.As(err, &se))
				assert.Equal(t, status, se.StatusCode)
				assert.Equal(t, body, se.Body)
				assert.Equal(t, op, se.Operation)
				assert.True(t, IsStatus(err, status))
				assert.Contains(t, err.Error(), strconv.Itoa(status))
				assert.Contains(t, err.Error(), body)

				switch v := got.(type) {
				case json.RawMessage:
					assert.Nil(t, v)
				case Usage:
					assert.Equal(t, Usage{}, v)
				}

				require.Len(t, log.entries, 1)
				entry := log.entries[0]
				assert.Equal(t, "error", entry.level)
				fields, ok := entry.obj.(map[string]any)
				require.True(t, ok)
				assert.Equal(t, status, fields["status_code"])
				assert.Equal(t, body, fields["body"])
			})
		}
	}
}

func TestMissingCredentialSkipsRequest(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits++ }))
	defer srv.Close()

	client := New("  ", WithBaseURL(srv.URL))
	_, err := client.ListSports(context.Background(), SportsParams{})
	assert.ErrorIs(t, err, ErrMissingCredential)
	_, err = client.GetUsage(context.Background(), UsageParams{})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, hits)
}

func TestPerCallCredentialOverride(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)

	client := New("", WithBaseURL(srv.URL))
	_, err := client.GetOdds(context.Background(), OddsParams{APIKey: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", cp.query.Get("apiKey"))
}

func TestTransportErrorIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	obs := &recordingObserver{}
	log := &recordingLogger{}
	client := New("k", WithBaseURL(base), WithObserver(obs), WithLogger(log), WithTimeout(time.Second))

	_, err := client.ListSports(context.Background(), SportsParams{})
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, OpSports, te.Operation)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.Empty(t, log.entries)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, -1, obs.calls[0].status)
}

func TestObserverSeesEveryRoundTrip(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `[]`, nil)
	obs := &recordingObserver{}

	client := New("k", WithBaseURL(srv.URL), WithObserver(obs))
	_, _ = client.ListSports(context.Background(), SportsParams{})
	_, _ = client.GetScores(context.Background(), ScoresParams{})

	assert.Equal(t, []observed{{OpSports, 200}, {OpScores, 200}}, obs.calls)
}

func TestSportKeyIsPathEscaped(t *testing.T) {
	srv, cp := newServer(t, http.StatusOK, `[]`, nil)

	client := New("k", WithBaseURL(srv.URL+"/"))
	_, err := client.GetOdds(context.Background(), OddsParams{SportKey: "a/b"})
	require.NoError(t, err)
	assert.Equal(t, "/v4/sports/a%2Fb/odds", cp.path)
}

func TestConcurrentCalls(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `[]`, nil)
	client := New("k", WithBaseURL(srv.URL))

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetOdds(context.Background(), OddsParams{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestRequestsCarryTransportUserAgent(t *testing.T) {
	var mu sync.Mutex
	var ua []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ua = r.Header.Values("User-Agent")
		mu.Unlock()
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := New("k", WithBaseURL(srv.URL)).ListSports(context.Background(), SportsParams{})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{httpclient.UserAgent}, ua)
}
