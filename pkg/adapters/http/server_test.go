package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adapter "github.com/aretw0/statebridge/pkg/adapters/http"
	"github.com/aretw0/statebridge/pkg/bridge"
	"github.com/aretw0/statebridge/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type game struct {
	Score     int  `json:"score"`
	IsPlaying bool `json:"isPlaying"`
}

type fixture struct {
	el     *scene.Element
	sys    *bridge.System[game]
	server *adapter.Server
	http   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	el := scene.NewElement()
	sys, err := bridge.New(bridge.Definition[game]{
		Name: "game",
		Handlers: map[string]bridge.Handler[game]{
			"addScore": bridge.Typed(func(s *game, p struct {
				Points int `json:"points"`
			}) error {
				s.Score += p.Points
				return nil
			}),
			"togglePlay": bridge.Mutate(func(s *game, _ any) { s.IsPlaying = !s.IsPlaying }),
			"reject": func(*game, any) error { return errors.New("not now") },
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sys.Init(ctx, el))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = el.Run(ctx)
	}()

	server := adapter.NewServer(sys, el)
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		server.Close()
		ts.Close()
		cancel()
		<-done
	})
	return &fixture{el: el, sys: sys, server: server, http: ts}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestServer_GetState(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/state", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "game", body["system"])
	assert.Equal(t, map[string]any{"score": 0.0, "isPlaying": false}, body["state"])
}

func TestServer_ListActions(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/actions", "")
	assert.Equal(t, []any{"addScore", "reject", "togglePlay"}, body["actions"])
}

func TestServer_DispatchAction(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/actions/addScore", `{"points": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "addScore", body["action"])
	assert.Equal(t, 3.0, body["state"].(map[string]any)["score"])

	resp, body = f.do(t, http.MethodPost, "/actions/togglePlay", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["state"].(map[string]any)["isPlaying"])
}

func TestServer_DispatchErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown action", "/actions/fly", "", http.StatusNotFound},
		{"bad json", "/actions/addScore", `{"points":`, http.StatusBadRequest},
		{"handler error", "/actions/reject", "", http.StatusUnprocessableEntity},
		{"payload decode error", "/actions/addScore", `{"points": "many"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, f.http.URL+tt.path, strings.NewReader(tt.body))
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	_, body := f.do(t, http.MethodGet, "/state", "")
	assert.Equal(t, 0.0, body["state"].(map[string]any)["score"], "failed dispatches leave the state alone")
}

func TestServer_DispatchBodyTooLarge(t *testing.T) {
	f := newFixture(t)

	body := `{"points": 1, "note": "` + strings.Repeat("x", 1<<20) + `"}`
	req, err := http.NewRequest(http.MethodPost, f.http.URL+"/actions/addScore", strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	_, state := f.do(t, http.MethodGet, "/state", "")
	assert.Equal(t, 0.0, state["state"].(map[string]any)["score"])
}

func TestServer_DestroyedSystemIsUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.el.Do(context.Background(), func(ctx context.Context) {
		_ = f.sys.Destroy(ctx)
	}))

	resp, _ := f.do(t, http.MethodPost, "/actions/togglePlay", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.http.URL+"/actions/addScore", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_HealthAndInfo(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, "ok", body["status"])

	_, body = f.do(t, http.MethodGet, "/info", "")
	assert.Equal(t, "game", body["system"])
	assert.NotEmpty(t, body["version"])
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.http.URL+"/events?action=addScore", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l, ok := <-lines:
			require.True(t, ok, "stream closed")
			return l
		case <-ctx.Done():
			t.Fatal("timed out waiting for SSE line")
			return ""
		}
	}
	require.Equal(t, "event: ping", next())

	f.do(t, http.MethodPost, "/actions/togglePlay", "") // filtered out
	f.do(t, http.MethodPost, "/actions/addScore", `{"points": 2}`)

	var data string
	for data == "" {
		if l := next(); strings.HasPrefix(l, "data: {") {
			data = strings.TrimPrefix(l, "data: ")
		}
	}

	var msg adapter.UpdateMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	assert.Equal(t, "addScore", msg.Action)
	assert.Equal(t, map[string]any{"points": 2.0}, msg.Payload)
	assert.Equal(t, map[string]any{"score": 2.0, "isPlaying": true}, msg.State)
}
