package rpc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"outboxd/core"
)

const (
	testOwner   = "0x1111111111111111111111111111111111111111"
	testManager = "0x2222222222222222222222222222222222222222"
	testOther   = "0x3333333333333333333333333333333333333333"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(core.NewOutbox(1000))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func call(t *testing.T, ts *httptest.Server, method string, params interface{}, headers map[string]string) rpcResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func result(t *testing.T, resp rpcResponse) map[string]interface{} {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	out, ok := resp.Result.(map[string]interface{})
	require.True(t, ok, "result is %T", resp.Result)
	return out
}

func TestServerLifecycle(t *testing.T) {
	_, ts := newTestServer(t)

	res := result(t, call(t, ts, "outbox_initialize", map[string]string{
		"from": testOwner, "validatorManager": testManager,
	}, nil))
	require.Equal(t, "active", res["state"])

	res = result(t, call(t, ts, "outbox_dispatch", map[string]interface{}{
		"from": testOwner, "destination": 5, "recipient": testOther, "body": "0x6869",
	}, nil))
	require.Equal(t, float64(0), res["leafIndex"])

	res = result(t, call(t, ts, "outbox_nonces", map[string]interface{}{"domain": 5}, nil))
	require.Equal(t, float64(1), res["nextNonce"])

	rootRes := result(t, call(t, ts, "outbox_root", nil, nil))
	cpRes := result(t, call(t, ts, "outbox_checkpoint", nil, nil))
	require.Equal(t, rootRes["root"], cpRes["root"])
	require.Equal(t, float64(1), cpRes["index"])

	res = result(t, call(t, ts, "outbox_checkpoints", map[string]interface{}{"root": cpRes["root"]}, nil))
	require.Equal(t, true, res["known"])
	require.Equal(t, float64(1), res["index"])

	res = result(t, call(t, ts, "outbox_latestCheckpoint", nil, nil))
	require.Equal(t, cpRes["root"], res["root"])

	// Unauthorized fail leaves the outbox active.
	resp := call(t, ts, "outbox_fail", map[string]string{"from": testOther}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
	res = result(t, call(t, ts, "outbox_state", nil, nil))
	require.Equal(t, "active", res["state"])

	res = result(t, call(t, ts, "outbox_fail", map[string]string{"from": testManager}, nil))
	require.Equal(t, "failed", res["state"])

	resp = call(t, ts, "outbox_dispatch", map[string]interface{}{
		"from": testOwner, "destination": 5, "recipient": testOther, "body": "0x6869",
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeServerError, resp.Error.Code)
	require.Contains(t, resp.Error.Message, "halted")

	// Reads survive the halt.
	res = result(t, call(t, ts, "outbox_count", nil, nil))
	require.Equal(t, float64(1), res["count"])
}

func TestServerReadsAndConstants(t *testing.T) {
	_, ts := newTestServer(t)

	res := result(t, call(t, ts, "outbox_localDomain", nil, nil))
	require.Equal(t, float64(1000), res["localDomain"])

	res = result(t, call(t, ts, "outbox_maxMessageBodyBytes", nil, nil))
	require.Equal(t, float64(2048), res["maxMessageBodyBytes"])

	res = result(t, call(t, ts, "outbox_state", nil, nil))
	require.Equal(t, "uninitialized", res["state"])
}

func TestServerRejectsBadParams(t *testing.T) {
	_, ts := newTestServer(t)

	resp := call(t, ts, "outbox_initialize", map[string]string{
		"from": "not-an-address", "validatorManager": testManager,
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, ts, "outbox_dispatch", map[string]interface{}{
		"from": testOwner, "destination": 5, "recipient": testOther, "body": "nothex",
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, ts, "outbox_noSuchMethod", nil, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServerBearerToken(t *testing.T) {
	t.Setenv("OUTBOX_RPC_TOKEN", "secret")
	srv := NewServer(core.NewOutbox(1000))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp := call(t, ts, "outbox_initialize", map[string]string{
		"from": testOwner, "validatorManager": testManager,
	}, nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	res := result(t, call(t, ts, "outbox_initialize", map[string]string{
		"from": testOwner, "validatorManager": testManager,
	}, map[string]string{"Authorization": "Bearer secret"}))
	require.Equal(t, "active", res["state"])

	// Reads stay open without a token.
	res = result(t, call(t, ts, "outbox_state", nil, nil))
	require.Equal(t, "active", res["state"])
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}
