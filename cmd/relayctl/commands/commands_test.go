package commands_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olahtaxi/taxirelay/cmd/relayctl/commands"
)

type captured struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newRelay(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.header = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)

		if status >= 400 {
			w.Header().Set("Content-Type", "application/problem+json")
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRequest(t *testing.T) {
	srv, got := newRelay(t, http.StatusOK, `{"ok":true,"fcm":{"name":"projects/p/messages/1"}}`)

	out, err := run(t, "--url", srv.URL, "--key", "k1",
		"request", "--serial", "SN-1", "--location", "Mezzeh", "--type", "van", "--timestamp", "1700000000")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/request", got.path)
	assert.Equal(t, "k1", got.header.Get("X-Api-Key"))
	assert.Equal(t, "1700000000", got.header.Get("X-Timestamp"))
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.JSONEq(t, `{"serial":"SN-1","location":"Mezzeh","type":"van"}`, string(got.body))
	assert.Contains(t, out, `"ok":true`)
}

func TestRequest_DefaultTimestampIsNow(t *testing.T) {
	srv, got := newRelay(t, http.StatusOK, `{"ok":true,"fcm":{}}`)

	before := time.Now().Unix()
	_, err := run(t, "--url", srv.URL, "--key", "k1",
		"request", "--serial", "SN-1", "--location", "Mezzeh", "--type", "van")
	require.NoError(t, err)

	ts, err := strconv.ParseInt(got.header.Get("X-Timestamp"), 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ts, before)
	assert.LessOrEqual(t, ts, time.Now().Unix())
}

func TestRequest_RequiresKey(t *testing.T) {
	t.Setenv(commands.KeyEnv, "")
	srv, got := newRelay(t, http.StatusOK, `{}`)

	_, err := run(t, "--url", srv.URL, "request", "--serial", "SN-1", "--location", "Mezzeh", "--type", "van")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key required")
	assert.Empty(t, got.path, "nothing should be sent without a key")
}

func TestRequest_ProblemBecomesError(t *testing.T) {
	srv, _ := newRelay(t, http.StatusForbidden,
		`{"type":"about:blank","title":"Forbidden","status":403,"code":"DeviceBlocked","detail":"Device blocked","traceId":"req_1"}`)

	_, err := run(t, "--url", srv.URL, "--key", "k1",
		"request", "--serial", "SN-1", "--location", "Mezzeh", "--type", "van")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 Forbidden: Device blocked (DeviceBlocked)")
}

func TestBlock(t *testing.T) {
	t.Run("replaces list", func(t *testing.T) {
		srv, got := newRelay(t, http.StatusOK, `Blocked list updated successfully`)

		out, err := run(t, "--url", srv.URL, "block", "D1", "D2")
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "/update-blocked", got.path)
		assert.JSONEq(t, `{"list":["D1","D2"]}`, string(got.body))
		assert.Contains(t, out, "Blocked list updated successfully")
	})

	t.Run("no ids clears", func(t *testing.T) {
		srv, got := newRelay(t, http.StatusOK, `Blocked list updated successfully`)

		_, err := run(t, "--url", srv.URL, "block")
		require.NoError(t, err)

		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(got.body, &body))
		assert.JSONEq(t, `[]`, string(body["list"]))
	})
}

func TestBlocked(t *testing.T) {
	srv, got := newRelay(t, http.StatusOK, `{"list":["D1","D2"]}`)

	out, err := run(t, "--url", srv.URL, "blocked")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/blocked", got.path)
	assert.Equal(t, "D1\nD2\n", out)
}

func TestStatus(t *testing.T) {
	srv, _ := newRelay(t, http.StatusOK, `{
		"status":"DEGRADED","time":"2026-01-01T00:00:00Z",
		"subsystems":[{"name":"blocklist","status":"OK"}],
		"providers":[{"provider":"fcm-send","status":"DEGRADED","circuitState":"half-open"}]
	}`)

	out, err := run(t, "--url", srv.URL, "status")
	require.NoError(t, err)

	assert.Contains(t, out, "overall  DEGRADED")
	assert.Contains(t, out, "blocklist OK")
	assert.Contains(t, out, "fcm-send DEGRADED circuit=half-open")
}

func TestNonProblemErrorBody(t *testing.T) {
	srv, _ := newRelay(t, http.StatusBadGateway, "upstream down\n")

	_, err := run(t, "--url", srv.URL, "blocked")
	require.Error(t, err)
	assert.Equal(t, "relay returned 502: upstream down", err.Error())
}
