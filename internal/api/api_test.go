package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethanbaker/voice-assistant/internal/artifacts"
	"github.com/ethanbaker/voice-assistant/internal/ledger"
	"github.com/ethanbaker/voice-assistant/internal/metrics"
	"github.com/ethanbaker/voice-assistant/internal/pipeline"
	"github.com/ethanbaker/voice-assistant/internal/retention"
	"github.com/ethanbaker/voice-assistant/pkg/sdk"
	"github.com/ethanbaker/voice-assistant/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct{}

func (stubPipeline) Process(context.Context, []byte) (*pipeline.Result, error) {
	return &pipeline.Result{SessionID: "ab12cd34", State: pipeline.StateCompleted}, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, *artifacts.Store, *metrics.Metrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := artifacts.New(t.TempDir())
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	engine, err := NewEngine(utils.NewConfig(nil), Services{
		Pipeline: stubPipeline{},
		Store:    store,
		Recorder: ledger.NewInMemoryStore(),
		Metrics:  m,
		Gatherer: registry,
	})
	require.NoError(t, err)

	return engine, store, m
}

func TestNewEngine_RequiresStore(t *testing.T) {
	_, err := NewEngine(utils.NewConfig(nil), Services{Pipeline: stubPipeline{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	engine, store, m := newTestEngine(t)

	t.Run("live", func(t *testing.T) {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var out sdk.ApiResponse[sdk.HealthResponse]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.True(t, out.Data.Ready)
		assert.Equal(t, "ok", out.Data.Checks["storage"])
		assert.Equal(t, "ok", out.Data.Checks["ledger"])
	})

	t.Run("storage gone", func(t *testing.T) {
		require.NoError(t, os.RemoveAll(store.Dir(artifacts.NamespaceAudioTemp)))
		t.Cleanup(func() { _ = os.MkdirAll(store.Dir(artifacts.NamespaceAudioTemp), 0o755) })

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/health/ready", "200"))+
		testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/health", "200")))
}

func TestStaticAudio(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	ref, err := store.CommitAssistantArtifact([]byte("ID3-audio"), "mp3", "هلا", artifacts.Metadata{SessionID: "ab12cd34"})
	require.NoError(t, err)
	locator, err := store.ResolveAudioRef(ref)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(store.AudioRoot(), filepath.FromSlash(locator)))
	require.NoError(t, err)

	userFile := "user_20250314_092653_cafef00d.wav"
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(artifacts.NamespaceAudioUser), userFile), []byte("RIFF-user"), 0o644))

	tempFile := "input_20250314_092653_cafef00d.wav"
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(artifacts.NamespaceAudioTemp), tempFile), []byte("RIFF-staged"), 0o644))

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"assistant reply", "/audio/" + locator, http.StatusOK, "ID3-audio"},
		{"user recording", "/audio/user_messages/" + userFile, http.StatusOK, "RIFF-user"},
		{"staged upload", "/audio/temp/" + tempFile, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.NotContains(t, rec.Body.String(), "RIFF-staged")
			}
		})
	}
}

type sweeperFunc func(maxAge time.Duration) ([]string, error)

func (f sweeperFunc) CleanupTemp(maxAge time.Duration) ([]string, error) { return f(maxAge) }

func TestHealth_RetentionSweep(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store, err := artifacts.New(t.TempDir())
	require.NoError(t, err)

	var sweepErr error
	janitor, err := retention.NewJanitor(sweeperFunc(func(time.Duration) ([]string, error) {
		return nil, sweepErr
	}), retention.JanitorOptions{})
	require.NoError(t, err)

	engine, err := NewEngine(utils.NewConfig(nil), Services{
		Pipeline: stubPipeline{},
		Store:    store,
		Janitor:  janitor,
	})
	require.NoError(t, err)

	ready := func() (int, sdk.HealthResponse) {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

		var out struct {
			Data  sdk.HealthResponse `json:"data"`
			Error sdk.HealthResponse `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		if rec.Code == http.StatusOK {
			return rec.Code, out.Data
		}
		return rec.Code, out.Error
	}

	// no sweep yet
	code, health := ready()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Checks["retention"])

	sweepErr = errors.New("permission denied")
	janitor.Sweep()

	code, health = ready()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, health.Ready)
	assert.Contains(t, health.Checks["retention"], "permission denied")

	sweepErr = nil
	janitor.Sweep()

	code, health = ready()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Checks["retention"])
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route="/api/health"`))
	assert.True(t, strings.Contains(rec.Body.String(), `route="unmatched"`))
}
