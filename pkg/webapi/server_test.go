package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"director/pkg/config"
	"director/pkg/director"
)

// stubHandler returns a fixed response or error.
type stubHandler struct {
	resp *director.Response
	err  error
}

func (s *stubHandler) HandleTurn(context.Context, *director.Request) (*director.Response, error) {
	return s.resp, s.err
}

func newTestServer(t *testing.T, handler TurnHandler) *httptest.Server {
	t.Helper()
	config.SetServicePassword("test-password")
	t.Cleanup(config.ClearServicePassword)

	mux := http.NewServeMux()
	NewServer(handler).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func postTurn(t *testing.T, ts *httptest.Server, body string, authenticated bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/director/turn", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.SetBasicAuth("director", "test-password")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestTurnEndpointSuccess(t *testing.T) {
	ts := newTestServer(t, &stubHandler{resp: &director.Response{
		Message:  "## Budget Check",
		Provider: director.ProviderNone,
	}})

	resp := postTurn(t, ts, `{"message":"budget first","tool":"Director"}`, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out director.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "## Budget Check", out.Message)
	assert.Equal(t, director.ProviderNone, out.Provider)
	assert.Nil(t, out.Usage)
}

func TestTurnEndpointRequiresAuth(t *testing.T) {
	ts := newTestServer(t, &stubHandler{resp: &director.Response{Message: "x"}})

	resp := postTurn(t, ts, `{"message":"hi","tool":"Director"}`, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func TestTurnEndpointBadJSON(t *testing.T) {
	ts := newTestServer(t, &stubHandler{resp: &director.Response{Message: "x"}})

	resp := postTurn(t, ts, `{not json`, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.NotEmpty(t, e.Error)
}

func TestTurnEndpointContractErrorsAre400(t *testing.T) {
	ts := newTestServer(t, &stubHandler{err: director.ErrUnknownTool})

	resp := postTurn(t, ts, `{"message":"hi","tool":"storyboard"}`, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTurnEndpointBoundaryErrorsAre502(t *testing.T) {
	ts := newTestServer(t, &stubHandler{err: errors.New("model invocation failed: backend down")})

	resp := postTurn(t, ts, `{"message":"hi","tool":"Director"}`, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestTurnEndpointMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubHandler{resp: &director.Response{Message: "x"}})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/director/turn", nil)
	require.NoError(t, err)
	req.SetBasicAuth("director", "test-password")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t, &stubHandler{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
