package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/bigcalc/bigcalc/internal/session"
	"github.com/bigcalc/bigcalc/internal/testutil"
)

func newTestServer(t *testing.T, releaseDir string) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{
		ReleaseDir: releaseDir,
		Log:        testutil.NewNopLogger(),
		Sessions:   session.NewStore(time.Hour, 0),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postEval(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/api/eval", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealth(t *testing.T) {
	s := New(Config{Log: testutil.NewNopLogger()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	s := New(Config{Log: testutil.NewNopLogger()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEvalCreatesAndReusesSessions(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, first := postEval(t, ts.URL, `{"input":"x = 2 ** 100"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	id, _ := first["session"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "1267650600228229401496703205376", first["output"])
	assert.Equal(t, false, first["error"])

	_, second := postEval(t, ts.URL, `{"session":"`+id+`","input":"x % 7"}`)
	assert.Equal(t, id, second["session"])
	assert.Equal(t, "2", second["output"])

	_, failed := postEval(t, ts.URL, `{"session":"`+id+`","input":"1 / 0"}`)
	assert.Equal(t, true, failed["error"])
	assert.Equal(t, "divide by zero", failed["output"])
}

func TestEvalRejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t, "")

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"malformed json", `{"input":`, http.StatusBadRequest, "invalid request body"},
		{"blank input", `{"input":"   "}`, http.StatusBadRequest, "input is blank"},
		{"input too long", `{"input":"` + strings.Repeat("1", 20*1024) + `"}`, http.StatusRequestEntityTooLarge, "input too long"},
		{"body too large", `{"input":"` + strings.Repeat("1", 70*1024) + `"}`, http.StatusRequestEntityTooLarge, "request body too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/eval", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.msg, body["error"])
		})
	}
}

func TestSessionTranscriptAndReset(t *testing.T) {
	_, ts := newTestServer(t, "")

	_, res := postEval(t, ts.URL, `{"input":"a = 6"}`)
	id := res["session"].(string)
	postEval(t, ts.URL, `{"session":"`+id+`","input":"b"}`)

	resp, err := http.Get(ts.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	var got sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()

	assert.Equal(t, []string{"> a = 6", "6", "> b", "error: undefined variable"}, got.Transcript)
	assert.Equal(t, []session.Binding{{Name: "a", Value: "6"}}, got.Variables)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	assert.Empty(t, got.Transcript)
	assert.Empty(t, got.Variables)
}

func TestUnknownSession(t *testing.T) {
	_, ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/sessions/does-not-exist")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/does-not-exist", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketSession(t *testing.T) {
	_, ts := newTestServer(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	for _, line := range []string{"x = 10", "", "x ** 3", "y"} {
		require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(line)))
	}

	var res session.Result
	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.Equal(t, "10", res.Output)

	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.Equal(t, "x ** 3", res.Input)
	assert.Equal(t, "1000", res.Output)

	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.True(t, res.Error)
	assert.Equal(t, "undefined variable", res.Output)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebsocketSessionsAreLimited(t *testing.T) {
	s := New(Config{Log: testutil.NewNopLogger(), MaxResultBits: 64})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("(2 ** 40) * (2 ** 40)")))

	var res session.Result
	require.NoError(t, wsjson.Read(ctx, conn, &res))
	assert.True(t, res.Error)
	assert.Equal(t, "result too large", res.Output)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestWebsocketRejectsBinaryFrames(t *testing.T) {
	_, ts := newTestServer(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, []byte{1, 2}))
	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(err))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := New(Config{Log: testutil.NewNopLogger()})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeSweepsIdleSessions(t *testing.T) {
	store := session.NewStore(time.Millisecond, 0)
	store.Create()
	s := New(Config{Log: testutil.NewNopLogger(), Sessions: store, SweepSchedule: "@every 1s"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestServeRejectsBadSweepSchedule(t *testing.T) {
	s := New(Config{Log: testutil.NewNopLogger(), SweepSchedule: "every now and then"})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = s.Serve(context.Background(), ln)
	assert.ErrorContains(t, err, "invalid sweep schedule")
}
