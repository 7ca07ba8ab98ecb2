package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/lvsctl/internal/api/mocks"
	"github.com/mattjoyce/lvsctl/internal/client"
	"github.com/mattjoyce/lvsctl/internal/events"
	"github.com/mattjoyce/lvsctl/internal/protocol"
)

const testToken = "test-token"

func newTestServer(t *testing.T, token string) (*mocks.MockController, *events.Hub, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	mc := mocks.NewMockController(ctrl)
	hub := events.NewHub(16)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(Config{Listen: "127.0.0.1:0", Token: token}, mc, hub, logger)
	return mc, hub, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	mc, _, h := newTestServer(t, testToken)

	mc.EXPECT().State().Return(client.State{Phase: client.PhaseRunning})
	mc.EXPECT().EngineAlive().Return(true)

	rr := do(t, h, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthzResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "running", resp.Phase)
	assert.True(t, resp.EngineAlive)
}

func TestHealthzUnavailable(t *testing.T) {
	mc, _, h := newTestServer(t, testToken)

	mc.EXPECT().State().Return(client.State{Phase: client.PhaseRunning})
	mc.EXPECT().EngineAlive().Return(false)

	rr := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unavailable"`)
}

func TestAuthRequired(t *testing.T) {
	_, _, h := newTestServer(t, testToken)

	rr := do(t, h, http.MethodGet, "/state", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, h, http.MethodGet, "/state", "", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid API key")
}

func TestNoTokenConfiguredSkipsAuth(t *testing.T) {
	mc, _, h := newTestServer(t, "")

	mc.EXPECT().State().Return(client.State{PresetQueue: []protocol.PresetQueueEntry{}})

	rr := do(t, h, http.MethodGet, "/state", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetState(t *testing.T) {
	mc, _, h := newTestServer(t, testToken)

	st := client.State{
		PresetQueue: []protocol.PresetQueueEntry{
			{PresetName: "b.milk", TimestampMs: 5000},
			{PresetName: "a.milk", TimestampMs: 1000},
		},
		LastTimestampMs:  1500,
		IsPreviewPlaying: true,
		Phase:            client.PhaseRunning,
	}
	mc.EXPECT().State().Return(st).Times(2)

	rr := do(t, h, http.MethodGet, "/state", "", testToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "running", got["phase"])
	assert.Equal(t, float64(1500), got["lastTimestampMs"])
	assert.Equal(t, true, got["isPreviewPlaying"])
	queue := got["presetQueue"].([]any)
	assert.Equal(t, "b.milk", queue[0].(map[string]any)["presetName"])

	rr = do(t, h, http.MethodGet, "/state?sorted=true", "", testToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var sorted struct {
		PresetQueue []protocol.PresetQueueEntry `json:"presetQueue"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sorted))
	assert.Equal(t, []protocol.PresetQueueEntry{
		{PresetName: "a.milk", TimestampMs: 1000},
		{PresetName: "b.milk", TimestampMs: 5000},
	}, sorted.PresetQueue)
}

func TestGetStats(t *testing.T) {
	mc, _, h := newTestServer(t, testToken)

	mc.EXPECT().Stats().Return(client.Stats{Received: 3, Sent: 2})

	rr := do(t, h, http.MethodGet, "/stats", "", testToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received":3,"dispatched":0,"decodeErrors":0,"sent":2,"sendErrors":0}`, rr.Body.String())
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		expect func(mc *mocks.MockController)
		status int
		kind   string
	}{
		{
			name:   "set timestamp",
			method: http.MethodPost, target: "/timestamp", body: `{"timestampMs":1500}`,
			expect: func(mc *mocks.MockController) { mc.EXPECT().SetTimestamp(uint64(1500)).Return(nil) },
			status: http.StatusAccepted, kind: "SET_TIMESTAMP",
		},
		{
			name:   "set timestamp zero",
			method: http.MethodPost, target: "/timestamp", body: `{"timestampMs":0}`,
			expect: func(mc *mocks.MockController) { mc.EXPECT().SetTimestamp(uint64(0)).Return(nil) },
			status: http.StatusAccepted, kind: "SET_TIMESTAMP",
		},
		{
			name:   "set timestamp missing field",
			method: http.MethodPost, target: "/timestamp", body: `{}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "set timestamp negative",
			method: http.MethodPost, target: "/timestamp", body: `{"timestampMs":-1}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "load preset",
			method: http.MethodPost, target: "/presets", body: `{"presetName":"a.milk","startTimestampMs":2000}`,
			expect: func(mc *mocks.MockController) { mc.EXPECT().LoadPreset("a.milk", uint64(2000)).Return(nil) },
			status: http.StatusAccepted, kind: "LOAD_PRESET",
		},
		{
			name:   "load preset empty name",
			method: http.MethodPost, target: "/presets", body: `{"presetName":""}`,
			expect: func(mc *mocks.MockController) {
				mc.EXPECT().LoadPreset("", uint64(0)).Return(fmt.Errorf("load preset: %w: preset name is empty", client.ErrInvalidArgument))
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "load preset no body",
			method: http.MethodPost, target: "/presets",
			status: http.StatusBadRequest,
		},
		{
			name:   "load preset invalid json",
			method: http.MethodPost, target: "/presets", body: `{"presetName":`,
			status: http.StatusBadRequest,
		},
		{
			name:   "delete preset",
			method: http.MethodDelete, target: "/presets/geiss.milk?timestampMs=12000",
			expect: func(mc *mocks.MockController) { mc.EXPECT().DeletePreset("geiss.milk", uint64(12000)).Return(nil) },
			status: http.StatusAccepted, kind: "DELETE_PRESET",
		},
		{
			name:   "delete preset escaped name",
			method: http.MethodDelete, target: "/presets/my%20preset.milk?timestampMs=1",
			expect: func(mc *mocks.MockController) { mc.EXPECT().DeletePreset("my preset.milk", uint64(1)).Return(nil) },
			status: http.StatusAccepted, kind: "DELETE_PRESET",
		},
		{
			name:   "delete preset missing timestamp",
			method: http.MethodDelete, target: "/presets/geiss.milk",
			status: http.StatusBadRequest,
		},
		{
			name:   "delete preset bad timestamp",
			method: http.MethodDelete, target: "/presets/geiss.milk?timestampMs=soon",
			status: http.StatusBadRequest,
		},
		{
			name:   "start preview with body",
			method: http.MethodPost, target: "/preview/start", body: `{"fromTimestampMs":3000}`,
			expect: func(mc *mocks.MockController) { mc.EXPECT().StartPreview(uint64(3000)).Return(nil) },
			status: http.StatusAccepted, kind: "START_PREVIEW",
		},
		{
			name:   "start preview without body",
			method: http.MethodPost, target: "/preview/start",
			expect: func(mc *mocks.MockController) { mc.EXPECT().StartPreview(uint64(0)).Return(nil) },
			status: http.StatusAccepted, kind: "START_PREVIEW",
		},
		{
			name:   "stop preview",
			method: http.MethodPost, target: "/preview/stop",
			expect: func(mc *mocks.MockController) { mc.EXPECT().StopPreview().Return(nil) },
			status: http.StatusAccepted, kind: "STOP_PREVIEW",
		},
		{
			name:   "engine closed",
			method: http.MethodPost, target: "/preview/stop",
			expect: func(mc *mocks.MockController) {
				mc.EXPECT().StopPreview().Return(fmt.Errorf("send STOP_PREVIEW: %w", client.ErrNotRunning))
			},
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "write failed",
			method: http.MethodPost, target: "/timestamp", body: `{"timestampMs":1}`,
			expect: func(mc *mocks.MockController) {
				mc.EXPECT().SetTimestamp(uint64(1)).Return(fmt.Errorf("send SET_TIMESTAMP: %w", client.ErrWriteFailed))
			},
			status: http.StatusBadGateway,
		},
		{
			name:   "unexpected error",
			method: http.MethodPost, target: "/timestamp", body: `{"timestampMs":1}`,
			expect: func(mc *mocks.MockController) {
				mc.EXPECT().SetTimestamp(uint64(1)).Return(fmt.Errorf("boom"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc, _, h := newTestServer(t, testToken)
			if tt.expect != nil {
				tt.expect(mc)
			}

			rr := do(t, h, tt.method, tt.target, tt.body, testToken)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())

			if tt.kind != "" {
				var resp CommandResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "sent", resp.Status)
				assert.Equal(t, tt.kind, resp.Name)
			} else {
				var resp ErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.NotEmpty(t, resp.Error)
			}
		})
	}
}

func TestOpenAPI(t *testing.T) {
	_, _, h := newTestServer(t, testToken)

	rr := do(t, h, http.MethodGet, "/openapi.json", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&doc))
	assert.Equal(t, "3.1.0", doc["openapi"])

	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/healthz", "/state", "/timestamp", "/presets", "/presets/{name}", "/preview/start", "/preview/stop", "/events"} {
		assert.Contains(t, paths, p)
	}
}

// readEvent reads one SSE frame and returns its id, event and data fields.
func readEvent(t *testing.T, r *bufio.Reader) (id, event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if id != "" {
				return id, event, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	_, hub, h := newTestServer(t, testToken)
	ts := httptest.NewServer(h)
	defer ts.Close()

	hub.Publish("PRESET_LOADED", protocol.PresetLoaded{PresetName: "a.milk", StartTimestampMs: 10})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	id, event, data := readEvent(t, r)
	assert.Equal(t, "1", id)
	assert.Equal(t, "PRESET_LOADED", event)
	assert.JSONEq(t, `{"presetName":"a.milk","startTimestampMs":10}`, data)

	hub.Publish("PREVIEW_STATUS", protocol.PreviewStatus{IsPlaying: true, CurrentTimestampMs: 5})
	id, event, data = readEvent(t, r)
	assert.Equal(t, "2", id)
	assert.Equal(t, "PREVIEW_STATUS", event)
	assert.JSONEq(t, `{"isPlaying":true,"currentTimestampMs":5}`, data)
}

func TestEventsReplayFromLastEventID(t *testing.T) {
	_, hub, h := newTestServer(t, testToken)
	ts := httptest.NewServer(h)
	defer ts.Close()

	for i := range 3 {
		hub.Publish("ERROR", protocol.ErrorReport{Error: fmt.Sprintf("e%d", i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Last-Event-ID", "2")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	id, _, data := readEvent(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "3", id)
	assert.JSONEq(t, `{"error":"e2"}`, data)
}

func TestEventsEndOnHubClose(t *testing.T) {
	_, hub, h := newTestServer(t, testToken)
	ts := httptest.NewServer(h)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	hub.Close()

	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after hub close")
	}
}

func TestParseLastEventID(t *testing.T) {
	cases := map[string]int64{"": 0, "7": 7, "-1": 0, "x": 0}
	for in, want := range cases {
		assert.Equal(t, want, parseLastEventID(in), in)
	}
}
