package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/combee/resistor-time-config/internal/bridge"
	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/logging"
	"github.com/combee/resistor-time-config/internal/settings"
	"github.com/combee/resistor-time-config/internal/store"
	"github.com/combee/resistor-time-config/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWatch struct {
	mu   sync.Mutex
	sent []map[string]int32
}

func (f *fakeWatch) SendAppMessage(ctx context.Context, values map[string]int32) *watch.Pending {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, values)
	return watch.Resolved(watch.Delivery{Transport: "phone"})
}

func (f *fakeWatch) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeWatch) Transports() []watch.TransportInfo {
	return []watch.TransportInfo{{ID: "phone", Type: watch.TypeDevConn, Status: watch.Status{Connected: true}}}
}

func (f *fakeWatch) Connected() bool { return true }

func (f *fakeWatch) Discover() ([]watch.DiscoveredPort, error) {
	return []watch.DiscoveredPort{{ID: "rfcomm0", Device: "/dev/rfcomm0", Type: watch.TypeSerial}}, nil
}

type testEnv struct {
	srv   *httptest.Server
	watch *fakeWatch
	store *store.Memory
	host  *Host
	logs  *logging.Buffer
}

func newTestEnv(t *testing.T, variant bridge.Variant) *testEnv {
	t.Helper()
	env := &testEnv{
		watch: &fakeWatch{},
		store: store.NewMemory(),
		host:  NewHost(nil, nil),
		logs:  logging.NewBuffer(10),
	}
	cfg := config.Default()
	b := bridge.New(bridge.Options{
		Variant:       variant,
		LegacyPageURL: cfg.Bridge.LegacyPageURL,
		FormURL:       "http://localhost:8080/config",
	}, nil, env.host, env.watch, env.store, nil)

	s := NewServer(cfg, b, env.watch, env.host, env.logs, nil)
	env.srv = httptest.NewServer(s.Handler())
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (e *testEnv) page(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	resp, body := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, _ = env.do(t, "POST", "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestShowConfigurationEvent(t *testing.T) {
	env := newTestEnv(t, bridge.VariantLegacy)
	require.NoError(t, env.store.Set(store.KeyColor, "white"))

	resp, body := env.do(t, "POST", "/api/events/show-configuration", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	want := "http://www.combee.net/resistor-time/config.html?color=white"
	assert.Equal(t, want, body["url"])
	assert.Equal(t, want, env.host.LastURL())

	_, status := env.do(t, "GET", "/api/status", "")
	assert.Equal(t, want, status["last_url"])
	assert.Equal(t, "legacy", status["variant"])
	assert.Equal(t, true, status["watch_connected"])
}

func TestWebviewClosedEvent(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	payload, _ := json.Marshal(WebviewClosedRequest{
		Response: settings.Record{settings.KeyColorChoice: settings.ChoiceBlackOnWhite}.Encode(),
	})
	resp, body := env.do(t, "POST", "/api/events/webview-closed", string(payload))
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, true, body["sent"])

	require.Equal(t, 1, env.watch.count())
	assert.Equal(t, int32(0x000000), env.watch.sent[0][settings.FieldSilkColor])
	assert.Equal(t, int32(0xFFFFFF), env.watch.sent[0][settings.FieldBgColor])

	_, msgs := env.do(t, "GET", "/api/messages", "")
	assert.Len(t, msgs["messages"], 1)
}

func TestWebviewClosedEventEmpty(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	resp, body := env.do(t, "POST", "/api/events/webview-closed", `{"response":""}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["sent"])
	assert.Zero(t, env.watch.count())
}

func TestWebviewClosedEventErrors(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	resp, _ := env.do(t, "POST", "/api/events/webview-closed", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, "POST", "/api/events/webview-closed", `{"response":"nonsense"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Zero(t, env.watch.count())
}

func TestConfigFormPreselectsPersisted(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)
	rec := settings.Default().Normalize(settings.Record{
		settings.KeyColorChoice: settings.ChoiceWhiteOnPurple,
		settings.KeyVibeOnBT:    "2",
	})
	require.NoError(t, env.store.Set(store.KeySettings, rec.Encode()))

	code, html := env.page(t, "/config?return_to="+url.QueryEscape("pebblejs://close#"))
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, html, `<option value="white-on-purple" selected>`)
	assert.Contains(t, html, `value="2" checked`)
	assert.Contains(t, html, `class="form-group hidden" data-key="bgColor"`)
	assert.Contains(t, html, "close#")
}

func TestConfigFormRejectsScriptReturnTarget(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	code, html := env.page(t, "/config?return_to="+url.QueryEscape("javascript:alert(document.cookie)//"))
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, html, "alert")
	assert.Contains(t, html, "close?response=")
}

func TestReturnTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", defaultReturnTo},
		{"pebblejs://close#", "pebblejs://close#"},
		{"https://example.net/done?x=", "https://example.net/done?x="},
		{"/close?response=", "/close?response="},
		{"javascript:alert(1)//", defaultReturnTo},
		{"JavaScript:alert(1)", defaultReturnTo},
		{"data:text/html,hi", defaultReturnTo},
		{"//evil.example/", defaultReturnTo},
		{"close", defaultReturnTo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, returnTarget(tt.raw), tt.raw)
	}
}

func TestConfigFormShowsCustomColors(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)
	rec := settings.Default().Normalize(settings.Record{
		settings.KeyColorChoice: settings.ChoiceCustom,
		settings.KeyBgColor:     "FF0000",
	})
	require.NoError(t, env.store.Set(store.KeySettings, rec.Encode()))

	_, html := env.page(t, "/config")
	assert.Contains(t, html, `class="form-group" data-key="bgColor"`)
	assert.Contains(t, html, `value="#FF0000"`)
}

func TestCloseWithoutResponseSendsNothing(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	code, html := env.page(t, "/close")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, html, "Nothing to send")
	assert.Zero(t, env.watch.count())
}

func TestCloseSendsResponse(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)
	resp := settings.Record{settings.KeyResistorType: "3"}.Encode()

	code, html := env.page(t, "/close?response="+url.QueryEscape(resp))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, html, "Settings sent")
	require.Equal(t, 1, env.watch.count())
	assert.Equal(t, int32(3), env.watch.sent[0][settings.FieldResistorType])

	code, html = env.page(t, "/close?response=nonsense")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, html, "Settings not sent")
}

func TestLogsEndpoint(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)
	env.logs.Add("info", "hello")
	env.logs.Add("error", "boom")

	_, body := env.do(t, "GET", "/api/logs?level=error", "")
	logs := body["logs"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "boom", logs[0].(map[string]interface{})["message"])

	env.do(t, "DELETE", "/api/logs", "")
	_, body = env.do(t, "GET", "/api/logs", "")
	assert.Empty(t, body["logs"])
}

func TestTransportsAndPorts(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	_, body := env.do(t, "GET", "/api/transports", "")
	assert.Len(t, body["transports"], 1)

	_, body = env.do(t, "GET", "/api/ports", "")
	assert.Len(t, body["ports"], 1)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	code, html := env.page(t, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, html, "Resistor Time Bridge")
}

func TestReadyEvent(t *testing.T) {
	env := newTestEnv(t, bridge.VariantCurrent)

	resp, body := env.do(t, "POST", "/api/events/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Zero(t, env.watch.count())
}
