package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture records the last request seen by the fake API.
type capture struct {
	mu  sync.Mutex
	req *http.Request
}

func (c *capture) set(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = r.Clone(context.Background())
}

func (c *capture) last(t *testing.T) *http.Request {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotNil(t, c.req, "fake API saw no request")
	return c.req
}

func fakeAPI(t *testing.T, status int, body string) (*httptest.Server, *capture) {
	t.Helper()
	cp := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cp.set(r)
		w.Header().Set("x-requests-remaining", "99")
		w.Header().Set("x-requests-used", "1")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, cp
}

func TestRunOddsCommand(t *testing.T) {
	srv, cp := fakeAPI(t, http.StatusOK, `[{"id":"e1"}]`)
	var stdout, stderr bytes.Buffer

	err := run(context.Background(), []string{
		"odds", "--base-url", srv.URL, "--api-key", "k1",
		"--sport", "soccer_epl", "--markets", "totals", "--pretty=false", "--log-level", "error",
	}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "[{\"id\":\"e1\"}]\n", stdout.String())
	assert.Equal(t, "/v4/sports/soccer_epl/odds", cp.last(t).URL.Path)
	assert.Equal(t, "totals", cp.last(t).URL.Query().Get("markets"))
	assert.Equal(t, "us", cp.last(t).URL.Query().Get("regions"))
	assert.Equal(t, "k1", cp.last(t).URL.Query().Get("apiKey"))
}

func TestRunSportsAllFalse(t *testing.T) {
	srv, cp := fakeAPI(t, http.StatusOK, `[]`)
	var stdout bytes.Buffer

	err := run(context.Background(), []string{
		"sports", "--all=false", "--base-url", srv.URL, "--api-key", "k1", "--log-level", "error",
	}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "false", cp.last(t).URL.Query().Get("all"))
}

func TestRunNon200LeavesStdoutEmpty(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusUnprocessableEntity, `{"message":"bad sport"}`)
	var stdout bytes.Buffer

	err := run(context.Background(), []string{
		"scores", "--base-url", srv.URL, "--api-key", "k1", "--days-from", "9", "--log-level", "error",
	}, &stdout, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status_code 422")
	assert.Empty(t, stdout.String())
}

func TestRunProfileCommand(t *testing.T) {
	srv, cp := fakeAPI(t, http.StatusOK, `[]`)
	profiles := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(profiles, []byte(`
profiles:
  - id: quota
    operation: usage
`), 0o644))
	var stdout bytes.Buffer

	err := run(context.Background(), []string{
		"run", "quota", "--profiles", profiles, "--base-url", srv.URL, "--api-key", "k1", "--log-level", "error",
	}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "/v4/sports", cp.last(t).URL.Path)
	assert.Equal(t, "k1", cp.last(t).URL.Query().Get("api_key"))
	assert.JSONEq(t, `{"Remaining requests":"99","Used requests":"1"}`, stdout.String())
}

func TestRunUnknownCommand(t *testing.T) {
	var stderr bytes.Buffer
	err := run(context.Background(), []string{"parlays"}, io.Discard, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "Commands:")
}

func TestRunHelp(t *testing.T) {
	var stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"odds", "--help"}, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "--odds-format")
}

func TestRunScoresDaysFromZero(t *testing.T) {
	srv, cp := fakeAPI(t, http.StatusOK, `[]`)

	err := run(context.Background(), []string{
		"scores", "--days-from", "0", "--base-url", srv.URL, "--api-key", "k1", "--log-level", "error",
	}, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "0", cp.last(t).URL.Query().Get("daysFrom"))
}

func TestRunScoresDefaultDaysFrom(t *testing.T) {
	srv, cp := fakeAPI(t, http.StatusOK, `[]`)

	err := run(context.Background(), []string{
		"scores", "--base-url", srv.URL, "--api-key", "k1", "--log-level", "error",
	}, io.Discard, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "1", cp.last(t).URL.Query().Get("daysFrom"))
}
