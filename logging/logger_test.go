package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}).WithComponent(ComponentAMQP)

	logger.Info("published", FieldExchange, "admin.events")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "published", line["msg"])
	assert.Equal(t, ComponentAMQP, line[FieldComponent])
	assert.Equal(t, "admin.events", line[FieldExchange])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: ParseLevel("warn"), Output: &buf})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestMiddleware_AttachesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf, Component: ComponentHTTP})
	requestID := func(context.Context) string { return "req-42" }

	handler := Middleware(base, requestID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handled")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-42", line[FieldRequestID])
	assert.Equal(t, ComponentHTTP, line[FieldComponent])
}

func TestFromContext_FallsBack(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, "unknown", l.Component())
}
