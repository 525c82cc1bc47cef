// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/qrattend/internal/telemetry"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_NamesSpanByRoutePattern(t *testing.T) {
	rec := recordSpans(t)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Tracing("test-tracer"))
	r.Get("/student/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, trace.SpanFromContext(r.Context()).SpanContext().IsValid())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/student/S42", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "GET /student/{id}", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, codes.Ok, span.Status().Code)

	route, ok := attrValue(span.Attributes(), telemetry.HTTPRouteKey)
	require.True(t, ok)
	assert.Equal(t, "/student/{id}", route.AsString())
	reqID, ok := attrValue(span.Attributes(), telemetry.HTTPRequestIDKey)
	require.True(t, ok)
	assert.Equal(t, "req-1", reqID.AsString())
}

func TestTracing_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   codes.Code
	}{
		{http.StatusOK, codes.Ok},
		{http.StatusBadRequest, codes.Ok},
		{http.StatusForbidden, codes.Ok},
		{http.StatusInternalServerError, codes.Error},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			rec := recordSpans(t)
			h := Tracing("test-tracer")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mark", nil))

			spans := rec.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.want, spans[0].Status().Code)
			code, ok := attrValue(spans[0].Attributes(), telemetry.HTTPStatusCodeKey)
			require.True(t, ok)
			assert.Equal(t, int64(tt.status), code.AsInt64())
		})
	}
}

func TestTracing_SkipsProbes(t *testing.T) {
	rec := recordSpans(t)
	h := Tracing("test-tracer")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Empty(t, rec.Ended())
}

type flushRecorder struct {
	*httptest.ResponseRecorder
}

func (flushRecorder) Flush() {}

func TestTracing_PreservesFlusher(t *testing.T) {
	recordSpans(t)
	h := Tracing("test-tracer")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok, "expected ResponseWriter to implement http.Flusher")
		w.WriteHeader(http.StatusOK)
	}))

	rec := flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
