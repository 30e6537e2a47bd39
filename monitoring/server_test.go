package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serialtool/codec"
	"serialtool/config"
	"serialtool/controller"
	"serialtool/eventlog"
	"serialtool/library"
	"serialtool/serial"
	"serialtool/session"
)

type testEnv struct {
	bus    *serial.MockBus
	ctrl   *controller.Controller
	cfg    *config.Config
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	bus := serial.NewMockBus("COM-TEST")
	dir := t.TempDir()

	ctrl := controller.New(controller.Options{
		Opener: bus.Open,
		Lister: bus.List,
		DetailedLister: func() ([]serial.PortInfo, error) {
			return []serial.PortInfo{{Name: "COM-TEST", IsUSB: true, VID: "0403", PID: "6001"}}, nil
		},
		EventLog:    eventlog.New(filepath.Join(dir, "logs")),
		Library:     library.New(library.Entry{Name: "ping", Payload: "AT", Encoding: codec.ModeASCII}),
		LibraryPath: filepath.Join(dir, "commands.json"),
		WorkerOptions: []session.Option{
			session.WithPollInterval(time.Millisecond),
			session.WithReadTimeout(5 * time.Millisecond),
		},
	})
	t.Cleanup(func() { _ = ctrl.Close(context.Background()) })

	cfg := config.Default()
	cfg.App.InstanceID = "bench-1"
	cfg.Notify.WebhookURL = "https://hooks.example.com/secret"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		bus:    bus,
		ctrl:   ctrl,
		cfg:    cfg,
		server: NewServer(cfg, "1.2.3", ctrl, logger),
	}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "bench-1", resp.InstanceID)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, session.StateIdle, resp.Session.State)
}

func TestHealth_DegradedAfterOpenError(t *testing.T) {
	env := newTestEnv(t)
	env.bus.FailOpen("COM-TEST", errors.New("device busy"))

	require.Error(t, env.ctrl.Start(context.Background(), "COM-TEST", 9600))

	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
	assert.Contains(t, rec.Body.String(), "device busy")
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.ctrl.Start(context.Background(), "COM-TEST", 9600))
	require.NoError(t, env.ctrl.Send("AT"))

	rec := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/plain")

	body := rec.Body.String()
	assert.Contains(t, body, `serialtool_tx_bytes_total{port="COM-TEST"} 2`)
	assert.Contains(t, body, `serialtool_port_up{port="COM-TEST"} 1`)
	assert.Contains(t, body, "serialtool_session_opened_timestamp")
}

func TestPorts(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/ports")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Ports []serial.PortInfo `json:"ports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Ports, 1)
	assert.Equal(t, "COM-TEST", resp.Ports[0].Name)
	assert.Equal(t, "0403", resp.Ports[0].VID)
}

func TestEvents(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, env.ctrl.Send("AT"))
	}

	rec := env.get(t, "/api/events?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mode   string            `json:"mode"`
		Events []controller.Line `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ASCII", resp.Mode)
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, controller.DirectionStatus, resp.Events[0].Direction)
}

func TestEvents_InvalidLimit(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/events?limit=0", "/api/events?limit=abc"} {
		rec := env.get(t, path)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestCommands(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/commands")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"commands":[{"name":"ping","command":"AT","type":"ASCII","note":""}]}`, rec.Body.String())
}

func TestConfig_RedactsWebhook(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), redacted)
	assert.Equal(t, "https://hooks.example.com/secret", env.cfg.Notify.WebhookURL)
}
